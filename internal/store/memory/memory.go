package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/store"
	"bizu/backend/internal/xid"
)

type Store struct {
	mu            sync.RWMutex
	products      map[string]domain.Product
	customers     map[string]domain.Customer
	sales         map[string]domain.Sale
	saleItems     map[string]domain.SaleItem
	writeOffs     map[string]domain.WriteOff
	collaborators map[string]domain.Collaborator
	now           func() time.Time
}

func New() *Store {
	return &Store{
		products:      make(map[string]domain.Product),
		customers:     make(map[string]domain.Customer),
		sales:         make(map[string]domain.Sale),
		saleItems:     make(map[string]domain.SaleItem),
		writeOffs:     make(map[string]domain.WriteOff),
		collaborators: make(map[string]domain.Collaborator),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// NewSeeded returns a store holding the canteen's counter shortcuts and a few
// regular customers.
func NewSeeded() *Store {
	s := New()
	now := s.now()

	products := []domain.Product{
		{Name: "Sanduíche de Frango", CostPrice: dec("5.00"), SalePrice: dec("9.00"), Stock: 30, Category: domain.CategoryFood, ParentCategory: "Sanduíche", Storage: domain.StorageFridge},
		{Name: "Sanduíche de Calabresa", CostPrice: dec("5.00"), SalePrice: dec("9.00"), Stock: 30, Category: domain.CategoryFood, ParentCategory: "Sanduíche", Storage: domain.StorageFridge},
		{Name: "Sanduíche de Salame", CostPrice: dec("5.50"), SalePrice: dec("9.00"), Stock: 20, Category: domain.CategoryFood, ParentCategory: "Sanduíche", Storage: domain.StorageFridge},
		{Name: "Sanduíche de Peito de Peru", CostPrice: dec("5.50"), SalePrice: dec("9.00"), Stock: 20, Category: domain.CategoryFood, ParentCategory: "Sanduíche", Storage: domain.StorageFridge},
		{Name: "Refrigerante Lata", CostPrice: dec("2.50"), SalePrice: dec("5.00"), Stock: 48, Category: domain.CategoryDrink, ParentCategory: "Refrigerante", Storage: domain.StorageFridge},
		{Name: "Suco Natural", CostPrice: dec("3.00"), SalePrice: dec("6.00"), Stock: 24, Category: domain.CategoryDrink, ParentCategory: "Suco", Storage: domain.StorageFridge},
		{Name: "Energético Monster", CostPrice: dec("6.00"), SalePrice: dec("10.00"), Stock: 24, Category: domain.CategoryDrink, ParentCategory: "Energético", Storage: domain.StorageFridge},
		{Name: "Paçoca", CostPrice: dec("0.40"), SalePrice: dec("1.00"), Stock: 100, Category: domain.CategoryFood, ParentCategory: "Doces", Storage: domain.StoragePantry},
	}
	for i, p := range products {
		p.ID = xid.New()
		p.CreatedAt = now.Add(time.Duration(i) * time.Second)
		s.products[p.ID] = p
	}

	customers := []domain.Customer{
		{FullName: "João Pereira", Phone: "(61) 99876-5432", Type: domain.CustomerMilitary, Rank: "Sgt", Unit: "1ª Cia"},
		{FullName: "Carlos Souza", Phone: "(61) 98123-4567", Type: domain.CustomerMilitary, Rank: "Cb", Unit: "2ª Cia"},
		{FullName: "Maria Oliveira", Phone: "61991234567", Type: domain.CustomerCivil},
	}
	for i, c := range customers {
		c.ID = xid.New()
		c.CreatedAt = now.Add(time.Duration(i) * time.Second)
		s.customers[c.ID] = c
	}
	return s
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.Product) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.Stock < 0 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New()
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrInvalid
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = s.now()
	}
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.Stock < 0 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	product.CreatedAt = existing.CreatedAt
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) SetStock(_ context.Context, productID string, qty int) error {
	if qty < 0 {
		return store.ErrInsufficientStock
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	p.Stock = qty
	s.products[productID] = p
	return nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Customer) int {
		return cmp.Or(strings.Compare(a.FullName, b.FullName), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.FullName) == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" {
		customer.ID = xid.New()
	}
	if _, exists := s.customers[customer.ID]; exists {
		return nil, store.ErrInvalid
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = s.now()
	}
	s.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) ListSales(_ context.Context, filter store.SaleFilter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if filter.UnpaidOnly && sale.Paid {
			continue
		}
		if filter.CustomerID != "" && sale.CustomerID != filter.CustomerID {
			continue
		}
		out = append(out, sale)
	}
	slices.SortFunc(out, func(a, b domain.Sale) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sale, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.Total.IsNegative() {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" {
		sale.ID = xid.New()
	}
	if _, exists := s.sales[sale.ID]; exists {
		return nil, store.ErrInvalid
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = s.now()
	}
	s.sales[sale.ID] = sale
	return &sale, nil
}

func (s *Store) DeleteSale(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sales[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.sales, id)
	return nil
}

func (s *Store) MarkCustomerSalesPaid(_ context.Context, customerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for id, sale := range s.sales {
		if sale.CustomerID != customerID || sale.Paid {
			continue
		}
		sale.Paid = true
		s.sales[id] = sale
		updated++
	}
	return updated, nil
}

// ListSaleItems returns the items of the given sales, or every item when
// saleIDs is empty.
func (s *Store) ListSaleItems(_ context.Context, saleIDs []string) ([]domain.SaleItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(saleIDs))
	for _, id := range saleIDs {
		wanted[id] = struct{}{}
	}

	out := make([]domain.SaleItem, 0, len(s.saleItems))
	for _, item := range s.saleItems {
		if len(wanted) > 0 {
			if _, ok := wanted[item.SaleID]; !ok {
				continue
			}
		}
		out = append(out, item)
	}
	slices.SortFunc(out, func(a, b domain.SaleItem) int {
		return cmp.Or(strings.Compare(a.SaleID, b.SaleID), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) CreateSaleItem(_ context.Context, item domain.SaleItem) (*domain.SaleItem, error) {
	if item.SaleID == "" || item.ProductID == "" || item.Quantity <= 0 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sales[item.SaleID]; !ok {
		return nil, store.ErrNotFound
	}
	if item.ID == "" {
		item.ID = xid.New()
	}
	s.saleItems[item.ID] = item
	return &item, nil
}

func (s *Store) DeleteSaleItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.saleItems[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.saleItems, id)
	return nil
}

func (s *Store) DeleteSaleItems(_ context.Context, saleID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, item := range s.saleItems {
		if item.SaleID == saleID {
			delete(s.saleItems, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) ListWriteOffs(_ context.Context) ([]domain.WriteOff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.WriteOff, 0, len(s.writeOffs))
	for _, w := range s.writeOffs {
		out = append(out, w)
	}
	slices.SortFunc(out, func(a, b domain.WriteOff) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) GetWriteOff(_ context.Context, id string) (*domain.WriteOff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.writeOffs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &w, nil
}

func (s *Store) CreateWriteOff(_ context.Context, writeOff domain.WriteOff) (*domain.WriteOff, error) {
	if writeOff.ProductID == "" || writeOff.Quantity <= 0 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if writeOff.ID == "" {
		writeOff.ID = xid.New()
	}
	if writeOff.CreatedAt.IsZero() {
		writeOff.CreatedAt = s.now()
	}
	s.writeOffs[writeOff.ID] = writeOff
	return &writeOff, nil
}

func (s *Store) DeleteWriteOff(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.writeOffs[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.writeOffs, id)
	return nil
}

func (s *Store) ListCollaborators(_ context.Context) ([]domain.Collaborator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Collaborator, 0, len(s.collaborators))
	for _, c := range s.collaborators {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Collaborator) int {
		return strings.Compare(a.Email, b.Email)
	})
	return out, nil
}

func (s *Store) GetCollaborator(_ context.Context, email string) (*domain.Collaborator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collaborators[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) UpsertCollaborator(_ context.Context, collaborator domain.Collaborator) (*domain.Collaborator, error) {
	collaborator.Email = strings.ToLower(strings.TrimSpace(collaborator.Email))
	if collaborator.Email == "" || collaborator.Role == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.collaborators[collaborator.Email]; ok {
		collaborator.CreatedAt = existing.CreatedAt
	}
	if collaborator.CreatedAt.IsZero() {
		collaborator.CreatedAt = s.now()
	}
	s.collaborators[collaborator.Email] = collaborator
	return &collaborator, nil
}

func (s *Store) DeleteCollaborator(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(email))
	if _, ok := s.collaborators[key]; !ok {
		return store.ErrNotFound
	}
	delete(s.collaborators, key)
	return nil
}

var _ store.Repository = (*Store)(nil)
