//go:build integration

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/store"
)

// openTestStore uses BIZU_TEST_DATABASE_URL when set and otherwise starts a
// throwaway Postgres container.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	databaseURL := os.Getenv("BIZU_TEST_DATABASE_URL")
	if databaseURL == "" {
		container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("bizu_test"),
			tcpostgres.WithUsername("bizu"),
			tcpostgres.WithPassword("bizu"),
			tcpostgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
		t.Cleanup(func() { _ = container.Terminate(ctx) })

		databaseURL, err = container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	s, err := New(ctx, databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestSaleReversalRowsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	product, err := s.CreateProduct(ctx, domain.Product{
		Name:      "Sanduíche IT",
		CostPrice: decimal.RequireFromString("5.00"),
		SalePrice: decimal.RequireFromString("9.00"),
		Stock:     10,
		Category:  domain.CategoryFood,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = s.db.ExecContext(ctx, `DELETE FROM produtos WHERE id = $1`, product.ID) })

	sale, err := s.CreateSale(ctx, domain.Sale{
		CustomerID:    "cliente-it",
		Total:         decimal.RequireFromString("18.00"),
		PaymentMethod: domain.PaymentCredit,
	})
	require.NoError(t, err)
	_, err = s.CreateSaleItem(ctx, domain.SaleItem{SaleID: sale.ID, ProductID: product.ID, Quantity: 2, UnitPrice: product.SalePrice})
	require.NoError(t, err)
	require.NoError(t, s.SetStock(ctx, product.ID, 8))

	items, err := s.ListSaleItems(ctx, []string{sale.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.True(t, items[0].UnitPrice.Equal(decimal.RequireFromString("9.00")))

	unpaid, err := s.ListSales(ctx, store.SaleFilter{UnpaidOnly: true, CustomerID: "cliente-it"})
	require.NoError(t, err)
	require.Len(t, unpaid, 1)

	require.NoError(t, s.SetStock(ctx, product.ID, 10))
	deleted, err := s.DeleteSaleItems(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, 1, deleted)
	require.NoError(t, s.DeleteSale(ctx, sale.ID))

	_, err = s.GetSale(ctx, sale.ID)
	require.True(t, errors.Is(err, store.ErrNotFound))

	got, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 10, got.Stock)
}

func TestMarkCustomerSalesPaidCountsUpdatedRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, paid := range []bool{false, false, true} {
		_, err := s.CreateSale(ctx, domain.Sale{CustomerID: "cliente-liq", Total: decimal.NewFromInt(4), Paid: paid})
		require.NoError(t, err)
	}
	t.Cleanup(func() { _, _ = s.db.ExecContext(ctx, `DELETE FROM vendas WHERE cliente_id = 'cliente-liq'`) })

	n, err := s.MarkCustomerSalesPaid(ctx, "cliente-liq")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = s.MarkCustomerSalesPaid(ctx, "cliente-liq")
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestCollaboratorUpsertKeepsSingleRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertCollaborator(ctx, domain.Collaborator{Email: "Caixa@Bizu.com", Role: domain.RoleCollaborator})
	require.NoError(t, err)
	_, err = s.UpsertCollaborator(ctx, domain.Collaborator{Email: "caixa@bizu.com", Role: domain.RoleAdmin})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.DeleteCollaborator(ctx, "caixa@bizu.com") })

	got, err := s.GetCollaborator(ctx, "CAIXA@bizu.com")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, got.Role)

	err = s.SetStock(ctx, "produto-inexistente", 1)
	require.True(t, errors.Is(err, store.ErrNotFound))
}
