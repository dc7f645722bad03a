package service

import (
	"context"
	"strings"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/search"
)

func (s *Service) ListProducts(ctx context.Context, sess domain.Session) ([]domain.Product, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, sess domain.Session, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireAdmin(sess); err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Product{}, invalid("product name is required")
	}
	if req.CostPrice.IsNegative() || req.SalePrice.IsNegative() {
		return domain.Product{}, invalid("prices must not be negative")
	}
	if req.Stock < 0 {
		return domain.Product{}, invalid("stock must not be negative")
	}
	if req.Category == "" {
		req.Category = domain.CategoryFood
	}
	if req.Storage == "" {
		req.Storage = domain.StoragePantry
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:           req.Name,
		CostPrice:      req.CostPrice,
		SalePrice:      req.SalePrice,
		Stock:          req.Stock,
		Category:       req.Category,
		ParentCategory: strings.TrimSpace(req.ParentCategory),
		Storage:        req.Storage,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.invalidateReports(ctx, "product_create")
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, sess domain.Session, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireAdmin(sess); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, invalid("product name is required")
		}
		updated.Name = name
	}
	if req.CostPrice != nil {
		if req.CostPrice.IsNegative() {
			return domain.Product{}, invalid("cost price must not be negative")
		}
		updated.CostPrice = *req.CostPrice
	}
	if req.SalePrice != nil {
		if req.SalePrice.IsNegative() {
			return domain.Product{}, invalid("sale price must not be negative")
		}
		updated.SalePrice = *req.SalePrice
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.Product{}, invalid("stock must not be negative")
		}
		updated.Stock = *req.Stock
	}
	if req.Category != nil {
		updated.Category = *req.Category
	}
	if req.ParentCategory != nil {
		updated.ParentCategory = strings.TrimSpace(*req.ParentCategory)
	}
	if req.Storage != nil {
		updated.Storage = *req.Storage
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	s.invalidateReports(ctx, "product_update")
	return *saved, nil
}

// ListCustomers matches query against the name, and against the phone digits
// when the query has any.
func (s *Service) ListCustomers(ctx context.Context, sess domain.Session, query string) ([]domain.Customer, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return customers, nil
	}
	digits := search.Digits(query)
	out := make([]domain.Customer, 0, len(customers))
	for _, c := range customers {
		if search.Contains(query, c.FullName) || (digits != "" && strings.Contains(search.Digits(c.Phone), digits)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) CreateCustomer(ctx context.Context, sess domain.Session, req domain.CustomerCreateRequest) (domain.Customer, error) {
	if err := requireAdmin(sess); err != nil {
		return domain.Customer{}, err
	}

	c := domain.Customer{
		FullName:  strings.TrimSpace(req.FullName),
		Phone:     strings.TrimSpace(req.Phone),
		Type:      req.Type,
		Rank:      strings.TrimSpace(req.Rank),
		Unit:      strings.TrimSpace(req.Unit),
		CreatedAt: s.now(),
	}
	if c.FullName == "" || c.Phone == "" {
		return domain.Customer{}, invalid("name and phone are required")
	}
	if c.Type == "" {
		c.Type = domain.CustomerCivil
	}
	if c.Type == domain.CustomerMilitary && (c.Rank == "" || c.Unit == "") {
		return domain.Customer{}, invalid("military customers need rank and unit")
	}

	created, err := s.repo.CreateCustomer(ctx, c)
	if err != nil {
		return domain.Customer{}, err
	}
	return *created, nil
}
