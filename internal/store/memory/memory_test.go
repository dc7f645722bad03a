package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/store"
)

func TestSetStockRejectsNegativeQuantity(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	products, err := s.ListProducts(ctx)
	if err != nil || len(products) == 0 {
		t.Fatalf("list products: %v (%d)", err, len(products))
	}
	if err := s.SetStock(ctx, products[0].ID, -1); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if err := s.SetStock(ctx, "missing", 3); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkCustomerSalesPaidOnlyTouchesUnpaidSalesOfCustomer(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, sale := range []domain.Sale{
		{CustomerID: "c1", Total: decimal.NewFromInt(10)},
		{CustomerID: "c1", Total: decimal.NewFromInt(5)},
		{CustomerID: "c1", Total: decimal.NewFromInt(7), Paid: true},
		{CustomerID: "c2", Total: decimal.NewFromInt(3)},
	} {
		if _, err := s.CreateSale(ctx, sale); err != nil {
			t.Fatalf("create sale: %v", err)
		}
	}

	updated, err := s.MarkCustomerSalesPaid(ctx, "c1")
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 sales updated, got %d", updated)
	}

	unpaid, err := s.ListSales(ctx, store.SaleFilter{UnpaidOnly: true})
	if err != nil {
		t.Fatalf("list unpaid: %v", err)
	}
	if len(unpaid) != 1 || unpaid[0].CustomerID != "c2" {
		t.Fatalf("expected only c2 unpaid, got %+v", unpaid)
	}
}

func TestSaleItemsFollowTheirSale(t *testing.T) {
	s := New()
	ctx := context.Background()

	sale, err := s.CreateSale(ctx, domain.Sale{Total: decimal.NewFromInt(9), Paid: true})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if _, err := s.CreateSaleItem(ctx, domain.SaleItem{SaleID: "ghost", ProductID: "p1", Quantity: 1}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for orphan item, got %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := s.CreateSaleItem(ctx, domain.SaleItem{SaleID: sale.ID, ProductID: "p1", Quantity: 1, UnitPrice: decimal.NewFromInt(9)}); err != nil {
			t.Fatalf("create item: %v", err)
		}
	}

	items, err := s.ListSaleItems(ctx, []string{sale.ID})
	if err != nil || len(items) != 2 {
		t.Fatalf("expected 2 items, got %d (%v)", len(items), err)
	}
	deleted, err := s.DeleteSaleItems(ctx, sale.ID)
	if err != nil || deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d (%v)", deleted, err)
	}
}

func TestCollaboratorEmailsAreCaseInsensitive(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.UpsertCollaborator(ctx, domain.Collaborator{Email: " Caixa@Bizu.com ", Role: domain.RoleCollaborator}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := s.GetCollaborator(ctx, "CAIXA@bizu.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != "caixa@bizu.com" {
		t.Fatalf("expected lower-cased email, got %q", got.Email)
	}
	if err := s.DeleteCollaborator(ctx, "caixa@BIZU.com"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetCollaborator(ctx, "caixa@bizu.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
