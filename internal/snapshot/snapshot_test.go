package snapshot

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/store"
	"bizu/backend/internal/store/memory"
)

type failingSales struct {
	store.Repository
}

func (failingSales) ListSales(context.Context, store.SaleFilter) ([]domain.Sale, error) {
	return nil, errors.New("connection reset")
}

func TestLoadIndexesRequestedCollections(t *testing.T) {
	repo := memory.NewSeeded()
	ctx := context.Background()
	_, err := repo.CreateSale(ctx, domain.Sale{Total: decimal.NewFromInt(9), Paid: true})
	require.NoError(t, err)
	_, err = repo.CreateSale(ctx, domain.Sale{Total: decimal.NewFromInt(5)})
	require.NoError(t, err)

	snap, err := NewLoader(repo).Load(ctx, Want{Products: true, Customers: true, Sales: true, UnpaidOnly: true})
	require.NoError(t, err)

	assert.NotEmpty(t, snap.Products)
	assert.Len(t, snap.ProductByID, len(snap.Products))
	assert.Len(t, snap.CustomerByID, len(snap.Customers))
	require.Len(t, snap.Sales, 1)
	assert.False(t, snap.Sales[0].Paid)
	assert.Nil(t, snap.WriteOffs)
	assert.Nil(t, snap.SaleItems)
}

func TestLoadReturnsFirstFailure(t *testing.T) {
	repo := failingSales{Repository: memory.NewSeeded()}

	_, err := NewLoader(repo).Load(context.Background(), Want{Products: true, Sales: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load sales")
}

func TestLoadWithNothingWantedIsEmpty(t *testing.T) {
	snap, err := NewLoader(memory.New()).Load(context.Background(), Want{})
	require.NoError(t, err)
	assert.Empty(t, snap.ProductByID)
	assert.Empty(t, snap.CustomerByID)
}
