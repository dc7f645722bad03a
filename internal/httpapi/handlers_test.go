package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/service"
	"bizu/backend/internal/store/memory"
)

const (
	testSecret   = "test-secret-key-that-is-long-enough"
	adminEmail   = "dono@bizu.com.br"
	cashierEmail = "balcao@bizu.com.br"
)

type testEnv struct {
	handler  http.Handler
	repo     *memory.Store
	verifier *TokenVerifier
}

// newTestEnv builds the full API over a seeded in-memory store so handler
// tests exercise the complete request path.
func newTestEnv(t *testing.T, opts service.Options) *testEnv {
	t.Helper()

	repo := memory.NewSeeded()
	if _, err := repo.UpsertCollaborator(context.Background(), domain.Collaborator{Email: cashierEmail, Role: domain.RoleCollaborator}); err != nil {
		t.Fatalf("seed collaborator: %v", err)
	}
	opts.BootstrapAdmin = adminEmail
	svc := service.New(repo, opts)
	verifier := NewTokenVerifier(testSecret, "authenticated")

	return &testEnv{handler: New(svc, verifier, "*").Handler(), repo: repo, verifier: verifier}
}

func (e *testEnv) do(t *testing.T, method, path, email string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "127.0.0.1:5000"
	if email != "" {
		token, err := e.verifier.Sign(email, time.Hour)
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) productID(t *testing.T, name string) string {
	t.Helper()
	products, _ := e.repo.ListProducts(context.Background())
	for _, p := range products {
		if p.Name == name {
			return p.ID
		}
	}
	t.Fatalf("product %q not seeded", name)
	return ""
}

func (e *testEnv) customerID(t *testing.T, name string) string {
	t.Helper()
	customers, _ := e.repo.ListCustomers(context.Background())
	for _, c := range customers {
		if c.FullName == name {
			return c.ID
		}
	}
	t.Fatalf("customer %q not seeded", name)
	return ""
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, service.Options{})

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestSessionReportsRole(t *testing.T) {
	env := newTestEnv(t, service.Options{})

	rec := env.do(t, http.MethodGet, "/api/v1/session", cashierEmail, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Session domain.Session `json:"session"`
	}
	decodeBody(t, rec, &body)
	if body.Session.Role != domain.RoleCollaborator || body.Session.Email != cashierEmail {
		t.Fatalf("unexpected session %+v", body.Session)
	}
}

func TestCheckoutFlow(t *testing.T) {
	env := newTestEnv(t, service.Options{})
	frango := env.productID(t, "Sanduíche de Frango")
	refri := env.productID(t, "Refrigerante Lata")

	lines := []domain.CartLine{
		{ProductID: frango, Quantity: 1, Combo: true},
		{ProductID: refri, Quantity: 1, Combo: true},
	}

	rec := env.do(t, http.MethodPost, "/api/v1/cart/quote", cashierEmail, domain.CartRequest{Lines: lines})
	if rec.Code != http.StatusOK {
		t.Fatalf("quote: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var quote domain.CartQuote
	decodeBody(t, rec, &quote)
	if quote.Bundle != "Combo G" || quote.Total.String() != "12" {
		t.Fatalf("unexpected quote %+v", quote)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/checkout", cashierEmail, domain.CheckoutRequest{PaymentMethod: "cash", Lines: lines})
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.CheckoutResponse
	decodeBody(t, rec, &resp)
	if !resp.Sale.Paid || len(resp.Items) != 2 {
		t.Fatalf("unexpected checkout response %+v", resp)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/checkout", cashierEmail, domain.CheckoutRequest{
		Lines: []domain.CartLine{{ProductID: refri, Quantity: 10000}},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for insufficient stock, got %d", rec.Code)
	}
}

func TestCheckoutValidationReturnsFieldMap(t *testing.T) {
	env := newTestEnv(t, service.Options{})

	rec := env.do(t, http.MethodPost, "/api/v1/checkout", cashierEmail, map[string]any{
		"payment_method": "cheque",
		"lines":          []map[string]any{{"product_id": "", "quantity": 0}},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	decodeBody(t, rec, &body)
	for _, field := range []string{"payment_method", "lines[0].product_id", "lines[0].quantity"} {
		if _, ok := body.Fields[field]; !ok {
			t.Fatalf("expected field error for %s, got %v", field, body.Fields)
		}
	}

	rec = env.do(t, http.MethodPost, "/api/v1/checkout", cashierEmail, map[string]any{"unexpected": true})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown fields, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/products", adminEmail, map[string]any{"name": "Bolo", "sale_price": "-1"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for negative price, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreditDebtorLifecycle(t *testing.T) {
	env := newTestEnv(t, service.Options{PixKey: "chave@pix"})
	joao := env.customerID(t, "João Pereira")
	suco := env.productID(t, "Suco Natural")

	rec := env.do(t, http.MethodPost, "/api/v1/checkout", cashierEmail, domain.CheckoutRequest{
		CustomerID:    joao,
		PaymentMethod: domain.PaymentCredit,
		Lines:         []domain.CartLine{{ProductID: suco, Quantity: 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("credit checkout: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/debtors", adminEmail, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("debtors: expected 200, got %d", rec.Code)
	}
	var list domain.DebtorListResponse
	decodeBody(t, rec, &list)
	if len(list.Debtors) != 1 || list.Total.String() != "12" {
		t.Fatalf("unexpected debtors %+v", list)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/debtors/"+joao+"/reminder", adminEmail, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reminder: expected 200, got %d", rec.Code)
	}
	var reminder domain.ReminderResponse
	decodeBody(t, rec, &reminder)
	if !strings.HasPrefix(reminder.Link, "https://wa.me/5561998765432?text=") {
		t.Fatalf("unexpected link %q", reminder.Link)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/debtors/"+joao+"/statement.pdf", adminEmail, nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("statement: expected pdf, got %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = env.do(t, http.MethodGet, "/api/v1/closing", adminEmail, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("closing: expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/debtors/"+joao+"/liquidate", adminEmail, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("liquidate: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var liquidated domain.LiquidateResponse
	decodeBody(t, rec, &liquidated)
	if liquidated.SalesPaid != 1 {
		t.Fatalf("expected one sale paid, got %d", liquidated.SalesPaid)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/debtors/"+joao+"/reminder", adminEmail, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 once the balance is settled, got %d", rec.Code)
	}
}

func TestLedgerAndReverse(t *testing.T) {
	env := newTestEnv(t, service.Options{})
	monster := env.productID(t, "Energético Monster")

	rec := env.do(t, http.MethodPost, "/api/v1/write-offs", adminEmail, domain.WriteOffRequest{ProductID: monster, Quantity: 1, Reason: domain.ReasonExpiry})
	if rec.Code != http.StatusCreated {
		t.Fatalf("write-off: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		WriteOff domain.WriteOff `json:"write_off"`
	}
	decodeBody(t, rec, &created)

	rec = env.do(t, http.MethodGet, "/api/v1/ledger?kind=write_off&q=vencimento", adminEmail, nil)
	var ledger struct {
		Entries []domain.LedgerEntry `json:"entries"`
	}
	decodeBody(t, rec, &ledger)
	if len(ledger.Entries) != 1 || ledger.Entries[0].Description != "PERDA: Energético Monster" {
		t.Fatalf("unexpected ledger %+v", ledger.Entries)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/ledger/write_off/"+created.WriteOff.ID+"/reverse", adminEmail, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reverse: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var reversed domain.ReverseResponse
	decodeBody(t, rec, &reversed)
	if reversed.RestoredUnits != 1 {
		t.Fatalf("expected 1 restored unit, got %d", reversed.RestoredUnits)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/ledger/write_off/"+created.WriteOff.ID+"/reverse", adminEmail, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected second reversal to be 404, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/ledger?kind=refund", adminEmail, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %d", rec.Code)
	}
}

func TestAnalyticsFormats(t *testing.T) {
	env := newTestEnv(t, service.Options{})
	pacoca := env.productID(t, "Paçoca")

	rec := env.do(t, http.MethodPost, "/api/v1/checkout", cashierEmail, domain.CheckoutRequest{
		Lines: []domain.CartLine{{ProductID: pacoca, Quantity: 3}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/analytics?period=today", adminEmail, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("analytics: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report domain.AnalyticsReport
	decodeBody(t, rec, &report)
	if report.GrossRevenue.String() != "3" || report.NetProfit.String() != "1.8" {
		t.Fatalf("unexpected report gross=%s net=%s", report.GrossRevenue, report.NetProfit)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/analytics?period=today&format=csv", adminEmail, nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("csv: got %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "Paçoca,3") {
		t.Fatalf("expected best seller row in csv, got %q", rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/analytics?period=today&format=xlsx", adminEmail, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("xlsx: expected 200, got %d", rec.Code)
	}
	book, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer book.Close()
	if idx, _ := book.GetSheetIndex("Mais vendidos"); idx < 0 {
		t.Fatalf("expected best sellers sheet, got %v", book.GetSheetList())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/analytics?period=year", adminEmail, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown period, got %d", rec.Code)
	}
}

func TestCollaboratorManagement(t *testing.T) {
	env := newTestEnv(t, service.Options{})

	rec := env.do(t, http.MethodPost, "/api/v1/collaborators", adminEmail, domain.CollaboratorRequest{Email: "Novo@Bizu.com.br"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("grant: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/products", "novo@bizu.com.br", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("new collaborator should list products, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/collaborators/novo@bizu.com.br", adminEmail, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("revoke: expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/products", "novo@bizu.com.br", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("revoked collaborator should be forbidden, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/collaborators", adminEmail, domain.CollaboratorRequest{Email: "not-an-email"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad email, got %d", rec.Code)
	}
}

func TestSelectComboReportsUnknownBundle(t *testing.T) {
	env := newTestEnv(t, service.Options{})

	rec := env.do(t, http.MethodPost, "/api/v1/combos/select", cashierEmail, domain.ComboSelectRequest{Bundle: "Combo Suco"})
	if rec.Code != http.StatusOK {
		t.Fatalf("select: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var sel domain.ComboSelection
	decodeBody(t, rec, &sel)
	if sel.Bundle != "Combo Suco" || len(sel.Lines) != 2 {
		t.Fatalf("unexpected selection %+v", sel)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/combos/select", cashierEmail, domain.ComboSelectRequest{Bundle: "Combo Família"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown bundle, got %d", rec.Code)
	}
}
