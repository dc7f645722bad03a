package store

import (
	"context"
	"errors"

	"bizu/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalid           = errors.New("invalid row")
)

type SaleFilter struct {
	UnpaidOnly bool
	CustomerID string
}

// Repository exposes plain row verbs per collection. Multi-row operations are
// composed by the service layer; no method here spans two collections.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	SetStock(ctx context.Context, productID string, qty int) error

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)

	ListSales(ctx context.Context, filter SaleFilter) ([]domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	DeleteSale(ctx context.Context, id string) error
	MarkCustomerSalesPaid(ctx context.Context, customerID string) (int, error)

	ListSaleItems(ctx context.Context, saleIDs []string) ([]domain.SaleItem, error)
	CreateSaleItem(ctx context.Context, item domain.SaleItem) (*domain.SaleItem, error)
	DeleteSaleItem(ctx context.Context, id string) error
	DeleteSaleItems(ctx context.Context, saleID string) (int, error)

	ListWriteOffs(ctx context.Context) ([]domain.WriteOff, error)
	GetWriteOff(ctx context.Context, id string) (*domain.WriteOff, error)
	CreateWriteOff(ctx context.Context, writeOff domain.WriteOff) (*domain.WriteOff, error)
	DeleteWriteOff(ctx context.Context, id string) error

	ListCollaborators(ctx context.Context) ([]domain.Collaborator, error)
	GetCollaborator(ctx context.Context, email string) (*domain.Collaborator, error)
	UpsertCollaborator(ctx context.Context, collaborator domain.Collaborator) (*domain.Collaborator, error)
	DeleteCollaborator(ctx context.Context, email string) error
}
