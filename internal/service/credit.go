package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"bizu/backend/internal/debt"
	"bizu/backend/internal/domain"
	"bizu/backend/internal/logger"
	"bizu/backend/internal/snapshot"
	"bizu/backend/internal/store"
)

func (s *Service) ListDebtors(ctx context.Context, sess domain.Session, query string) (domain.DebtorListResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return domain.DebtorListResponse{}, err
	}
	snap, err := s.loader.Load(ctx, snapshot.Want{Customers: true, Sales: true, UnpaidOnly: true})
	if err != nil {
		return domain.DebtorListResponse{}, err
	}

	debtors := debt.Filter(debt.List(debt.Aggregate(snap.Sales, snap.CustomerByID)), query)
	return domain.DebtorListResponse{Debtors: debtors, Total: debt.Total(debtors)}, nil
}

// Liquidate marks every open sale of the customer as paid in one bulk
// update. A credit sale recorded while the update runs may be swept with it.
func (s *Service) Liquidate(ctx context.Context, sess domain.Session, customerID string) (domain.LiquidateResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return domain.LiquidateResponse{}, err
	}
	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return domain.LiquidateResponse{}, err
	}

	n, err := s.repo.MarkCustomerSalesPaid(ctx, customerID)
	if err != nil {
		return domain.LiquidateResponse{}, err
	}
	if n > 0 {
		s.invalidateReports(ctx, "liquidate")
	}

	logger.Log.Info().Str("customer_id", customerID).Int("sales", n).Str("by", sess.Email).Msg("debt liquidated")
	return domain.LiquidateResponse{
		CustomerID:  customerID,
		SalesPaid:   n,
		LiquidateAt: s.now().Format(time.RFC3339),
	}, nil
}

func (s *Service) debtorFor(ctx context.Context, customerID string) (domain.Debtor, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return domain.Debtor{}, err
	}
	sales, err := s.repo.ListSales(ctx, store.SaleFilter{UnpaidOnly: true, CustomerID: customerID})
	if err != nil {
		return domain.Debtor{}, err
	}
	debtors := debt.Aggregate(sales, map[string]domain.Customer{customer.ID: *customer})
	d, ok := debtors[customer.ID]
	if !ok {
		return domain.Debtor{}, fmt.Errorf("%w: no open balance for %s", store.ErrNotFound, customer.FullName)
	}
	return *d, nil
}

// DebtorReminder builds the short balance reminder and its WhatsApp link.
func (s *Service) DebtorReminder(ctx context.Context, sess domain.Session, customerID string) (domain.ReminderResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return domain.ReminderResponse{}, err
	}
	d, err := s.debtorFor(ctx, customerID)
	if err != nil {
		return domain.ReminderResponse{}, err
	}
	link, err := debt.ReminderLink(d)
	if err != nil {
		if errors.Is(err, debt.ErrNoPhone) {
			return domain.ReminderResponse{}, invalid("%s has no phone number", d.Name)
		}
		return domain.ReminderResponse{}, err
	}
	return domain.ReminderResponse{CustomerID: d.CustomerID, Message: debt.ReminderMessage(d), Link: link}, nil
}

// ClosingStatements itemises every open balance for the monthly close.
// Debtors without a phone still get a statement, with no link.
func (s *Service) ClosingStatements(ctx context.Context, sess domain.Session) ([]domain.ClosingStatement, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	snap, err := s.loader.Load(ctx, snapshot.Want{Products: true, Customers: true, Sales: true, UnpaidOnly: true})
	if err != nil {
		return nil, err
	}
	return s.statements(ctx, debt.List(debt.Aggregate(snap.Sales, snap.CustomerByID)), snap.ProductByID)
}

func (s *Service) statements(ctx context.Context, debtors []domain.Debtor, products map[string]domain.Product) ([]domain.ClosingStatement, error) {
	var saleIDs []string
	for _, d := range debtors {
		saleIDs = append(saleIDs, d.SaleIDs...)
	}
	if len(saleIDs) == 0 {
		return []domain.ClosingStatement{}, nil
	}
	items, err := s.repo.ListSaleItems(ctx, saleIDs)
	if err != nil {
		return nil, fmt.Errorf("load sale items: %w", err)
	}

	out := debt.Statements(debtors, items, products)
	for i := range out {
		out[i].Message = debt.ClosingMessage(out[i], s.opts.BusinessName, s.opts.PixKey)
		link, err := debt.StatementLink(out[i], s.opts.BusinessName, s.opts.PixKey)
		if err != nil && !errors.Is(err, debt.ErrNoPhone) {
			return nil, err
		}
		out[i].Link = link
	}
	return out, nil
}

// ClosingStatementPDF renders one customer's statement as a printable slip.
func (s *Service) ClosingStatementPDF(ctx context.Context, sess domain.Session, customerID string) ([]byte, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	d, err := s.debtorFor(ctx, customerID)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	sts, err := s.statements(ctx, []domain.Debtor{d}, snapshot.IndexProducts(products))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := debt.WritePDF(&buf, sts[0], s.opts.BusinessName, s.opts.PixKey, s.now()); err != nil {
		return nil, fmt.Errorf("render statement: %w", err)
	}
	return buf.Bytes(), nil
}
