// Package snapshot reads whole collections from the row store in one burst
// and indexes them for the aggregators.
package snapshot

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/store"
)

// Want selects the collections a Load call reads. UnpaidOnly narrows Sales to
// open credit.
type Want struct {
	Products   bool
	Customers  bool
	Sales      bool
	SaleItems  bool
	WriteOffs  bool
	UnpaidOnly bool
}

type Snapshot struct {
	Products  []domain.Product
	Customers []domain.Customer
	Sales     []domain.Sale
	SaleItems []domain.SaleItem
	WriteOffs []domain.WriteOff

	ProductByID  map[string]domain.Product
	CustomerByID map[string]domain.Customer
}

// Loader is never cached; every Load reflects the store at call time.
type Loader struct {
	repo store.Repository
}

func NewLoader(repo store.Repository) *Loader {
	return &Loader{repo: repo}
}

// Load fetches the requested collections concurrently. The first failing read
// cancels the others and is returned.
func (l *Loader) Load(ctx context.Context, want Want) (*Snapshot, error) {
	snap := &Snapshot{}
	g, ctx := errgroup.WithContext(ctx)

	if want.Products {
		g.Go(func() error {
			products, err := l.repo.ListProducts(ctx)
			if err != nil {
				return fmt.Errorf("load products: %w", err)
			}
			snap.Products = products
			return nil
		})
	}
	if want.Customers {
		g.Go(func() error {
			customers, err := l.repo.ListCustomers(ctx)
			if err != nil {
				return fmt.Errorf("load customers: %w", err)
			}
			snap.Customers = customers
			return nil
		})
	}
	if want.Sales {
		g.Go(func() error {
			sales, err := l.repo.ListSales(ctx, store.SaleFilter{UnpaidOnly: want.UnpaidOnly})
			if err != nil {
				return fmt.Errorf("load sales: %w", err)
			}
			snap.Sales = sales
			return nil
		})
	}
	if want.SaleItems {
		g.Go(func() error {
			items, err := l.repo.ListSaleItems(ctx, nil)
			if err != nil {
				return fmt.Errorf("load sale items: %w", err)
			}
			snap.SaleItems = items
			return nil
		})
	}
	if want.WriteOffs {
		g.Go(func() error {
			writeOffs, err := l.repo.ListWriteOffs(ctx)
			if err != nil {
				return fmt.Errorf("load write-offs: %w", err)
			}
			snap.WriteOffs = writeOffs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.ProductByID = IndexProducts(snap.Products)
	snap.CustomerByID = IndexCustomers(snap.Customers)
	return snap, nil
}

func IndexProducts(products []domain.Product) map[string]domain.Product {
	out := make(map[string]domain.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out
}

func IndexCustomers(customers []domain.Customer) map[string]domain.Customer {
	out := make(map[string]domain.Customer, len(customers))
	for _, c := range customers {
		out[c.ID] = c
	}
	return out
}
