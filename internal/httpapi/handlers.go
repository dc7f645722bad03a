package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"bizu/backend/internal/analytics"
	"bizu/backend/internal/domain"
	"bizu/backend/internal/service"
)

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListProducts(r.Context(), sessionFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	product, err := a.service.CreateProduct(r.Context(), sessionFrom(r), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product": product})
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductUpdateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	product, err := a.service.UpdateProduct(r.Context(), sessionFrom(r), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := a.service.ListCustomers(r.Context(), sessionFrom(r), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (a *API) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerCreateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	customer, err := a.service.CreateCustomer(r.Context(), sessionFrom(r), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"customer": customer})
}

func (a *API) handleListCombos(w http.ResponseWriter, r *http.Request) {
	bundles, err := a.service.ListCombos(r.Context(), sessionFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"combos": bundles})
}

func (a *API) handleSelectCombo(w http.ResponseWriter, r *http.Request) {
	var req domain.ComboSelectRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	sel, err := a.service.SelectCombo(r.Context(), sessionFrom(r), req.Bundle)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (a *API) handleQuoteCart(w http.ResponseWriter, r *http.Request) {
	var req domain.CartRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	quote, err := a.service.QuoteCart(r.Context(), sessionFrom(r), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	resp, err := a.service.Checkout(r.Context(), sessionFrom(r), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleListWriteOffs(w http.ResponseWriter, r *http.Request) {
	writeOffs, err := a.service.ListWriteOffs(r.Context(), sessionFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"write_offs": writeOffs})
}

func (a *API) handleCreateWriteOff(w http.ResponseWriter, r *http.Request) {
	var req domain.WriteOffRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	writeOff, err := a.service.RegisterWriteOff(r.Context(), sessionFrom(r), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"write_off": writeOff})
}

func (a *API) handleDebtors(w http.ResponseWriter, r *http.Request) {
	resp, err := a.service.ListDebtors(r.Context(), sessionFrom(r), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	resp, err := a.service.Liquidate(r.Context(), sessionFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleReminder(w http.ResponseWriter, r *http.Request) {
	resp, err := a.service.DebtorReminder(r.Context(), sessionFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleStatementPDF(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := a.service.ClosingStatementPDF(r.Context(), sessionFrom(r), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="fechamento-%s.pdf"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (a *API) handleClosing(w http.ResponseWriter, r *http.Request) {
	statements, err := a.service.ClosingStatements(r.Context(), sessionFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"statements": statements})
}

func (a *API) handleLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := a.service.Ledger(r.Context(), sessionFrom(r), q.Get("kind"), q.Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (a *API) handleReverse(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	limitKey := clientKey(r) + "|" + sess.Email
	if a.pinLimiter.Blocked(limitKey) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many failed reversal attempts"))
		return
	}

	// The body is optional when no reversal PIN is configured.
	var req domain.ReverseRequest
	if err := decodeAndValidate(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeDecodeError(w, err)
		return
	}
	resp, err := a.service.Reverse(r.Context(), sess, r.PathValue("kind"), r.PathValue("id"), req.PIN)
	if errors.Is(err, service.ErrInvalidPIN) {
		a.pinLimiter.Fail(limitKey)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := a.service.Analytics(r.Context(), sessionFrom(r), q.Get("period"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("bizu-%s-%s", report.Period, report.ReferenceDate)
	switch format := strings.ToLower(strings.TrimSpace(q.Get("format"))); format {
	case "", "json":
		writeJSON(w, http.StatusOK, report)
	case "csv":
		var buf bytes.Buffer
		if err := analytics.WriteCSV(&buf, report); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeAttachment(w, "text/csv; charset=utf-8", filename+".csv", buf.Bytes())
	case "xlsx":
		var buf bytes.Buffer
		if err := analytics.WriteXLSX(&buf, report); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", filename+".xlsx", buf.Bytes())
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown format %q", format))
	}
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (a *API) handleListCollaborators(w http.ResponseWriter, r *http.Request) {
	collaborators, err := a.service.ListCollaborators(r.Context(), sessionFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collaborators": collaborators})
}

func (a *API) handleGrantAccess(w http.ResponseWriter, r *http.Request) {
	var req domain.CollaboratorRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	collaborator, err := a.service.GrantAccess(r.Context(), sessionFrom(r), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"collaborator": collaborator})
}

func (a *API) handleRevokeAccess(w http.ResponseWriter, r *http.Request) {
	if err := a.service.RevokeAccess(r.Context(), sessionFrom(r), r.PathValue("email")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
