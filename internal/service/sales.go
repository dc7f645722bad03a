package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bizu/backend/internal/combo"
	"bizu/backend/internal/domain"
	"bizu/backend/internal/logger"
	"bizu/backend/internal/money"
	"bizu/backend/internal/saga"
	"bizu/backend/internal/snapshot"
	"bizu/backend/internal/store"
	"bizu/backend/internal/xid"
)

var paymentMethods = map[string]bool{
	domain.PaymentPix:    true,
	domain.PaymentCash:   true,
	domain.PaymentCard:   true,
	domain.PaymentCredit: true,
}

func (s *Service) ListCombos(_ context.Context, sess domain.Session) ([]combo.Bundle, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return s.combos.Bundles(), nil
}

// SelectCombo fills the named bundle from the current catalog.
func (s *Service) SelectCombo(ctx context.Context, sess domain.Session, name string) (domain.ComboSelection, error) {
	if err := requireSession(sess); err != nil {
		return domain.ComboSelection{}, err
	}
	catalog, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.ComboSelection{}, err
	}

	bundle, picks, err := s.combos.SelectBundle(catalog, name)
	if err != nil {
		return domain.ComboSelection{}, err
	}

	sel := domain.ComboSelection{
		Bundle:   bundle.Name,
		Price:    bundle.Price,
		Lines:    make([]domain.CartLine, 0, len(picks)),
		Products: make([]domain.Product, 0, len(picks)),
	}
	for _, p := range picks {
		sel.Lines = append(sel.Lines, domain.CartLine{ProductID: p.Product.ID, Quantity: p.Quantity, Combo: true})
		sel.Products = append(sel.Products, p.Product)
	}
	return sel, nil
}

// QuoteCart prices a basket without touching stock.
func (s *Service) QuoteCart(ctx context.Context, sess domain.Session, req domain.CartRequest) (domain.CartQuote, error) {
	if err := requireSession(sess); err != nil {
		return domain.CartQuote{}, err
	}
	catalog, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.CartQuote{}, err
	}
	cart, err := s.buildCart(req.Lines, req.DiscountOverride, snapshot.IndexProducts(catalog))
	if err != nil {
		return domain.CartQuote{}, err
	}
	return cart.Quote(), nil
}

func (s *Service) buildCart(lines []domain.CartLine, override *decimal.Decimal, products map[string]domain.Product) (*combo.Cart, error) {
	if len(lines) == 0 {
		return nil, invalid("cart is empty")
	}
	cart := combo.NewCart(s.combos)
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, invalid("quantity must be positive")
		}
		p, ok := products[l.ProductID]
		if !ok {
			return nil, invalid("unknown product %s", l.ProductID)
		}
		cart.Add(p, l.Quantity, l.Combo)
	}
	if override != nil {
		if override.IsNegative() {
			return nil, invalid("discount must not be negative")
		}
		cart.SetOverride(*override)
	}
	return cart, nil
}

// Checkout records a sale. Stock is read once per product up front; the
// sale row, its lines and the stock decrements are then written one by one.
func (s *Service) Checkout(ctx context.Context, sess domain.Session, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	if err := requireSession(sess); err != nil {
		return domain.CheckoutResponse{}, err
	}
	if len(req.Lines) == 0 {
		return domain.CheckoutResponse{}, invalid("cart is empty")
	}

	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = domain.PaymentPix
	}
	if !paymentMethods[method] {
		return domain.CheckoutResponse{}, invalid("unknown payment method %q", req.PaymentMethod)
	}

	customerID := strings.TrimSpace(req.CustomerID)
	if method == domain.PaymentCredit && customerID == "" {
		return domain.CheckoutResponse{}, invalid("credit sales need a customer")
	}
	if customerID != "" {
		if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.CheckoutResponse{}, invalid("unknown customer %s", customerID)
			}
			return domain.CheckoutResponse{}, err
		}
	}

	products := make(map[string]domain.Product, len(req.Lines))
	need := make(map[string]int, len(req.Lines))
	for _, l := range req.Lines {
		if l.Quantity <= 0 {
			return domain.CheckoutResponse{}, invalid("quantity must be positive")
		}
		need[l.ProductID] += l.Quantity
		if _, ok := products[l.ProductID]; ok {
			continue
		}
		p, err := s.repo.GetProduct(ctx, l.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.CheckoutResponse{}, invalid("unknown product %s", l.ProductID)
			}
			return domain.CheckoutResponse{}, err
		}
		products[l.ProductID] = *p
	}
	for id, qty := range need {
		if p := products[id]; p.Stock < qty {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: %s has %d, requested %d", store.ErrInsufficientStock, p.Name, p.Stock, qty)
		}
	}

	cart, err := s.buildCart(req.Lines, req.DiscountOverride, products)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	quote := cart.Quote()

	sale := domain.Sale{
		ID:            xid.New(),
		CustomerID:    customerID,
		Total:         quote.Total,
		Paid:          method != domain.PaymentCredit,
		PaymentMethod: method,
		Discount:      quote.Discount,
		CreatedAt:     s.now(),
	}

	steps := []saga.Step{{
		Name: "create sale",
		Do: func(ctx context.Context) error {
			_, err := s.repo.CreateSale(ctx, sale)
			return err
		},
		Undo: func(ctx context.Context) error { return s.repo.DeleteSale(ctx, sale.ID) },
	}}

	stock := make(map[string]int, len(products))
	for id, p := range products {
		stock[id] = p.Stock
	}
	items := make([]domain.SaleItem, 0, len(cart.Lines()))
	for _, line := range cart.Lines() {
		item := domain.SaleItem{
			ID:        xid.New(),
			SaleID:    sale.ID,
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
			UnitPrice: line.Product.SalePrice,
		}
		items = append(items, item)

		before := stock[item.ProductID]
		after := before - item.Quantity
		stock[item.ProductID] = after

		steps = append(steps,
			saga.Step{
				Name: "insert item " + line.Product.Name,
				Do: func(ctx context.Context) error {
					_, err := s.repo.CreateSaleItem(ctx, item)
					return err
				},
				Undo: func(ctx context.Context) error { return s.repo.DeleteSaleItem(ctx, item.ID) },
			},
			saga.Step{
				Name: "decrement stock " + line.Product.Name,
				Do:   func(ctx context.Context) error { return s.repo.SetStock(ctx, item.ProductID, after) },
				Undo: func(ctx context.Context) error { return s.repo.SetStock(ctx, item.ProductID, before) },
			},
		)
	}

	if err := s.runSaga(ctx, "checkout", steps...); err != nil {
		return domain.CheckoutResponse{}, err
	}
	s.invalidateReports(ctx, "checkout")

	logger.Log.Info().
		Str("sale_id", sale.ID).
		Str("method", sale.PaymentMethod).
		Str("total", sale.Total.StringFixed(2)).
		Str("bundle", quote.Bundle).
		Str("by", sess.Email).
		Msg("sale recorded")

	return domain.CheckoutResponse{Sale: sale, Items: items, Quote: quote}, nil
}

func (s *Service) ListWriteOffs(ctx context.Context, sess domain.Session) ([]domain.WriteOff, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	return s.repo.ListWriteOffs(ctx)
}

// RegisterWriteOff books stock lost outside a sale at current cost.
func (s *Service) RegisterWriteOff(ctx context.Context, sess domain.Session, req domain.WriteOffRequest) (domain.WriteOff, error) {
	if err := requireAdmin(sess); err != nil {
		return domain.WriteOff{}, err
	}
	if req.Quantity <= 0 {
		return domain.WriteOff{}, invalid("quantity must be positive")
	}
	reason := req.Reason
	if reason == "" {
		reason = domain.ReasonConsumption
	}
	if _, ok := domain.ReasonLabels[reason]; !ok {
		return domain.WriteOff{}, invalid("unknown write-off reason %q", req.Reason)
	}

	p, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return domain.WriteOff{}, err
	}
	if p.Stock < req.Quantity {
		return domain.WriteOff{}, fmt.Errorf("%w: %s has %d, requested %d", store.ErrInsufficientStock, p.Name, p.Stock, req.Quantity)
	}

	w := domain.WriteOff{
		ID:        xid.New(),
		ProductID: p.ID,
		Quantity:  req.Quantity,
		Reason:    reason,
		Cost:      money.Times(p.CostPrice, req.Quantity),
		CreatedAt: s.now(),
	}
	before := p.Stock

	err = s.runSaga(ctx, "write_off",
		saga.Step{
			Name: "record write-off",
			Do: func(ctx context.Context) error {
				_, err := s.repo.CreateWriteOff(ctx, w)
				return err
			},
			Undo: func(ctx context.Context) error { return s.repo.DeleteWriteOff(ctx, w.ID) },
		},
		saga.Step{
			Name: "decrement stock " + p.Name,
			Do:   func(ctx context.Context) error { return s.repo.SetStock(ctx, p.ID, before-w.Quantity) },
			Undo: func(ctx context.Context) error { return s.repo.SetStock(ctx, p.ID, before) },
		},
	)
	if err != nil {
		return domain.WriteOff{}, err
	}
	s.invalidateReports(ctx, "write_off")
	return w, nil
}
