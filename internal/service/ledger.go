package service

import (
	"context"
	"errors"
	"time"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/ledger"
	"bizu/backend/internal/logger"
	"bizu/backend/internal/saga"
	"bizu/backend/internal/snapshot"
	"bizu/backend/internal/store"
)

func (s *Service) Ledger(ctx context.Context, sess domain.Session, kind, query string) ([]domain.LedgerEntry, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if !ledger.ValidKind(kind) {
		return nil, invalid("unknown ledger kind %q", kind)
	}
	snap, err := s.loader.Load(ctx, snapshot.Want{Products: true, Customers: true, Sales: true, WriteOffs: true})
	if err != nil {
		return nil, err
	}
	entries := ledger.Merge(snap.Sales, snap.WriteOffs, snap.CustomerByID, snap.ProductByID)
	return ledger.Filter(entries, kind, query), nil
}

// Reverse undoes a ledger entry: the stock it moved goes back on the shelf
// and its rows are deleted.
func (s *Service) Reverse(ctx context.Context, sess domain.Session, kind, id, pin string) (domain.ReverseResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return domain.ReverseResponse{}, err
	}
	if err := s.checkPIN(pin); err != nil {
		logger.Log.Warn().Str("by", sess.Email).Str("kind", kind).Str("id", id).Msg("reversal rejected: bad pin")
		return domain.ReverseResponse{}, err
	}

	var (
		restored int
		err      error
	)
	switch kind {
	case domain.LedgerKindSale:
		restored, err = s.reverseSale(ctx, id)
	case domain.LedgerKindWriteOff:
		restored, err = s.reverseWriteOff(ctx, id)
	default:
		return domain.ReverseResponse{}, invalid("unknown ledger kind %q", kind)
	}
	if err != nil {
		return domain.ReverseResponse{}, err
	}
	s.invalidateReports(ctx, "reverse_"+kind)

	logger.Log.Info().Str("kind", kind).Str("id", id).Int("restored_units", restored).Str("by", sess.Email).Msg("ledger entry reversed")
	return domain.ReverseResponse{
		ID:            id,
		Kind:          kind,
		RestoredUnits: restored,
		ReversedAt:    s.now().Format(time.RFC3339),
	}, nil
}

// restoreStep puts qty units of a product back. A product deleted since the
// movement is skipped; there is nothing left to restock.
func (s *Service) restoreStep(productID string, qty int, restored *int) saga.Step {
	var (
		before  int
		applied bool
	)
	return saga.Step{
		Name: "restore stock " + productID,
		Do: func(ctx context.Context) error {
			p, err := s.repo.GetProduct(ctx, productID)
			if errors.Is(err, store.ErrNotFound) {
				logger.Log.Warn().Str("product_id", productID).Int("qty", qty).Msg("reversal skipped restock of missing product")
				return nil
			}
			if err != nil {
				return err
			}
			before = p.Stock
			if err := s.repo.SetStock(ctx, productID, before+qty); err != nil {
				return err
			}
			applied = true
			*restored += qty
			return nil
		},
		Undo: func(ctx context.Context) error {
			if !applied {
				return nil
			}
			return s.repo.SetStock(ctx, productID, before)
		},
	}
}

func (s *Service) reverseSale(ctx context.Context, id string) (int, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return 0, err
	}
	items, err := s.repo.ListSaleItems(ctx, []string{sale.ID})
	if err != nil {
		return 0, err
	}

	restored := 0
	steps := make([]saga.Step, 0, len(items)+2)
	for _, item := range items {
		steps = append(steps, s.restoreStep(item.ProductID, item.Quantity, &restored))
	}
	steps = append(steps,
		saga.Step{
			Name: "delete sale items",
			Do: func(ctx context.Context) error {
				_, err := s.repo.DeleteSaleItems(ctx, sale.ID)
				return err
			},
			Undo: func(ctx context.Context) error {
				for _, item := range items {
					if _, err := s.repo.CreateSaleItem(ctx, item); err != nil {
						return err
					}
				}
				return nil
			},
		},
		saga.Step{
			Name: "delete sale",
			Do:   func(ctx context.Context) error { return s.repo.DeleteSale(ctx, sale.ID) },
			Undo: func(ctx context.Context) error {
				_, err := s.repo.CreateSale(ctx, *sale)
				return err
			},
		},
	)

	if err := s.runSaga(ctx, "reverse_sale", steps...); err != nil {
		return restored, err
	}
	return restored, nil
}

func (s *Service) reverseWriteOff(ctx context.Context, id string) (int, error) {
	w, err := s.repo.GetWriteOff(ctx, id)
	if err != nil {
		return 0, err
	}

	restored := 0
	err = s.runSaga(ctx, "reverse_write_off",
		s.restoreStep(w.ProductID, w.Quantity, &restored),
		saga.Step{
			Name: "delete write-off",
			Do:   func(ctx context.Context) error { return s.repo.DeleteWriteOff(ctx, w.ID) },
			Undo: func(ctx context.Context) error {
				_, err := s.repo.CreateWriteOff(ctx, *w)
				return err
			},
		},
	)
	if err != nil {
		return restored, err
	}
	return restored, nil
}
