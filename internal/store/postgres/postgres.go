package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/money"
	"bizu/backend/internal/store"
	"bizu/backend/internal/xid"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sqlx.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables when they are missing. It never alters existing
// columns.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Numeric columns are read as text and coerced, so a malformed legacy value
// becomes zero instead of failing the whole listing.
type productRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"nome"`
	CostPrice sql.NullString `db:"preco_custo"`
	SalePrice sql.NullString `db:"preco_venda"`
	Stock     int            `db:"estoque"`
	Category  string         `db:"categoria"`
	Group     string         `db:"grupo"`
	Storage   string         `db:"local"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r productRow) toDomain() domain.Product {
	return domain.Product{
		ID:             r.ID,
		Name:           r.Name,
		CostPrice:      money.Coerce(r.CostPrice),
		SalePrice:      money.Coerce(r.SalePrice),
		Stock:          r.Stock,
		Category:       r.Category,
		ParentCategory: r.Group,
		Storage:        r.Storage,
		CreatedAt:      r.CreatedAt,
	}
}

type customerRow struct {
	ID        string         `db:"id"`
	FullName  string         `db:"nome_completo"`
	Phone     sql.NullString `db:"telefone"`
	Type      sql.NullString `db:"tipo"`
	Rank      sql.NullString `db:"posto_grad"`
	Unit      sql.NullString `db:"companhia"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r customerRow) toDomain() domain.Customer {
	return domain.Customer{
		ID:        r.ID,
		FullName:  r.FullName,
		Phone:     r.Phone.String,
		Type:      r.Type.String,
		Rank:      r.Rank.String,
		Unit:      r.Unit.String,
		CreatedAt: r.CreatedAt,
	}
}

type saleRow struct {
	ID            string         `db:"id"`
	CustomerID    sql.NullString `db:"cliente_id"`
	Total         sql.NullString `db:"valor_total"`
	Paid          bool           `db:"pago"`
	PaymentMethod sql.NullString `db:"metodo_pagamento"`
	Discount      sql.NullString `db:"desconto"`
	CreatedAt     sql.NullTime   `db:"created_at"`
}

func (r saleRow) toDomain() domain.Sale {
	return domain.Sale{
		ID:            r.ID,
		CustomerID:    r.CustomerID.String,
		Total:         money.Coerce(r.Total),
		Paid:          r.Paid,
		PaymentMethod: r.PaymentMethod.String,
		Discount:      money.Coerce(r.Discount),
		CreatedAt:     r.CreatedAt.Time,
	}
}

type saleItemRow struct {
	ID        string         `db:"id"`
	SaleID    string         `db:"venda_id"`
	ProductID string         `db:"produto_id"`
	Quantity  int            `db:"quantidade"`
	UnitPrice sql.NullString `db:"preco_unitario"`
}

func (r saleItemRow) toDomain() domain.SaleItem {
	return domain.SaleItem{
		ID:        r.ID,
		SaleID:    r.SaleID,
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		UnitPrice: money.Coerce(r.UnitPrice),
	}
}

type writeOffRow struct {
	ID        string         `db:"id"`
	ProductID string         `db:"produto_id"`
	Quantity  int            `db:"quantidade"`
	Reason    sql.NullString `db:"motivo"`
	Cost      sql.NullString `db:"custo_total"`
	CreatedAt sql.NullTime   `db:"created_at"`
}

func (r writeOffRow) toDomain() domain.WriteOff {
	return domain.WriteOff{
		ID:        r.ID,
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		Reason:    r.Reason.String,
		Cost:      money.Coerce(r.Cost),
		CreatedAt: r.CreatedAt.Time,
	}
}

type collaboratorRow struct {
	Email     string    `db:"email"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

const (
	productColumns  = `id, nome, preco_custo::text AS preco_custo, preco_venda::text AS preco_venda, estoque, categoria, grupo, local, created_at`
	customerColumns = `id, nome_completo, telefone, tipo, posto_grad, companhia, created_at`
	saleColumns     = `id, cliente_id, valor_total::text AS valor_total, pago, metodo_pagamento, desconto::text AS desconto, created_at`
	itemColumns     = `id, venda_id, produto_id, quantidade, preco_unitario::text AS preco_unitario`
	writeOffColumns = `id, produto_id, quantidade, motivo, custo_total::text AS custo_total, created_at`
)

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+productColumns+` FROM produtos ORDER BY nome, id`); err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.toDomain())
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var row productRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+productColumns+` FROM produtos WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	product := row.toDomain()
	return &product, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.Stock < 0 {
		return nil, store.ErrInvalid
	}
	if product.ID == "" {
		product.ID = xid.New()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO produtos (id, nome, preco_custo, preco_venda, estoque, categoria, grupo, local, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, product.ID, product.Name, product.CostPrice.String(), product.SalePrice.String(), product.Stock,
		product.Category, product.ParentCategory, product.Storage, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.Stock < 0 {
		return nil, store.ErrInvalid
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE produtos
		SET nome = $2, preco_custo = $3, preco_venda = $4, estoque = $5, categoria = $6, grupo = $7, local = $8
		WHERE id = $1
	`, product.ID, product.Name, product.CostPrice.String(), product.SalePrice.String(), product.Stock,
		product.Category, product.ParentCategory, product.Storage)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *Store) SetStock(ctx context.Context, productID string, qty int) error {
	if qty < 0 {
		return store.ErrInsufficientStock
	}
	res, err := s.db.ExecContext(ctx, `UPDATE produtos SET estoque = $2 WHERE id = $1`, productID, qty)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	var rows []customerRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+customerColumns+` FROM clientes ORDER BY nome_completo, id`); err != nil {
		return nil, err
	}

	customers := make([]domain.Customer, 0, len(rows))
	for _, row := range rows {
		customers = append(customers, row.toDomain())
	}
	return customers, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var row customerRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+customerColumns+` FROM clientes WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	customer := row.toDomain()
	return &customer, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.FullName) == "" {
		return nil, store.ErrInvalid
	}
	if customer.ID == "" {
		customer.ID = xid.New()
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clientes (id, nome_completo, telefone, tipo, posto_grad, companhia, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, customer.ID, customer.FullName, customer.Phone, customer.Type, customer.Rank, customer.Unit, customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}
	return &customer, nil
}

func (s *Store) ListSales(ctx context.Context, filter store.SaleFilter) ([]domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM vendas WHERE 1=1`
	args := make([]any, 0, 2)
	if filter.UnpaidOnly {
		query += ` AND pago = false`
	}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		query += ` AND cliente_id = $1`
	}
	query += ` ORDER BY created_at DESC, id`

	var rows []saleRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	sales := make([]domain.Sale, 0, len(rows))
	for _, row := range rows {
		sales = append(sales, row.toDomain())
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	var row saleRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+saleColumns+` FROM vendas WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	sale := row.toDomain()
	return &sale, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.Total.IsNegative() {
		return nil, store.ErrInvalid
	}
	if sale.ID == "" {
		sale.ID = xid.New()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	var customerID sql.NullString
	if sale.CustomerID != "" {
		customerID = sql.NullString{String: sale.CustomerID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vendas (id, cliente_id, valor_total, pago, metodo_pagamento, desconto, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, sale.ID, customerID, sale.Total.String(), sale.Paid, sale.PaymentMethod, sale.Discount.String(), sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}
	return &sale, nil
}

func (s *Store) DeleteSale(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vendas WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// MarkCustomerSalesPaid settles whatever is unpaid for the customer at the
// moment the statement runs, including sales created after the caller last
// read the balance.
func (s *Store) MarkCustomerSalesPaid(ctx context.Context, customerID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE vendas SET pago = true WHERE cliente_id = $1 AND pago = false`, customerID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) ListSaleItems(ctx context.Context, saleIDs []string) ([]domain.SaleItem, error) {
	query := `SELECT ` + itemColumns + ` FROM itens_venda`
	var args []any
	if len(saleIDs) > 0 {
		q, a, err := sqlx.In(query+` WHERE venda_id IN (?)`, saleIDs)
		if err != nil {
			return nil, err
		}
		query, args = s.db.Rebind(q), a
	}
	query += ` ORDER BY venda_id, id`

	var rows []saleItemRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	items := make([]domain.SaleItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, nil
}

func (s *Store) CreateSaleItem(ctx context.Context, item domain.SaleItem) (*domain.SaleItem, error) {
	if item.SaleID == "" || item.ProductID == "" || item.Quantity <= 0 {
		return nil, store.ErrInvalid
	}
	if item.ID == "" {
		item.ID = xid.New()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO itens_venda (id, venda_id, produto_id, quantidade, preco_unitario)
		VALUES ($1,$2,$3,$4,$5)
	`, item.ID, item.SaleID, item.ProductID, item.Quantity, item.UnitPrice.String())
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) DeleteSaleItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM itens_venda WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeleteSaleItems(ctx context.Context, saleID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM itens_venda WHERE venda_id = $1`, saleID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) ListWriteOffs(ctx context.Context) ([]domain.WriteOff, error) {
	var rows []writeOffRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+writeOffColumns+` FROM baixas ORDER BY created_at DESC, id`); err != nil {
		return nil, err
	}

	writeOffs := make([]domain.WriteOff, 0, len(rows))
	for _, row := range rows {
		writeOffs = append(writeOffs, row.toDomain())
	}
	return writeOffs, nil
}

func (s *Store) GetWriteOff(ctx context.Context, id string) (*domain.WriteOff, error) {
	var row writeOffRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+writeOffColumns+` FROM baixas WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	writeOff := row.toDomain()
	return &writeOff, nil
}

func (s *Store) CreateWriteOff(ctx context.Context, writeOff domain.WriteOff) (*domain.WriteOff, error) {
	if writeOff.ProductID == "" || writeOff.Quantity <= 0 {
		return nil, store.ErrInvalid
	}
	if writeOff.ID == "" {
		writeOff.ID = xid.New()
	}
	if writeOff.CreatedAt.IsZero() {
		writeOff.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO baixas (id, produto_id, quantidade, motivo, custo_total, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, writeOff.ID, writeOff.ProductID, writeOff.Quantity, writeOff.Reason, writeOff.Cost.String(), writeOff.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &writeOff, nil
}

func (s *Store) DeleteWriteOff(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM baixas WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) ListCollaborators(ctx context.Context) ([]domain.Collaborator, error) {
	var rows []collaboratorRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT email, role, created_at FROM colaboradores ORDER BY email`); err != nil {
		return nil, err
	}

	out := make([]domain.Collaborator, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Collaborator(row))
	}
	return out, nil
}

func (s *Store) GetCollaborator(ctx context.Context, email string) (*domain.Collaborator, error) {
	var c domain.Collaborator
	err := s.db.QueryRowxContext(ctx, `
		SELECT email, role, created_at FROM colaboradores WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email))).Scan(&c.Email, &c.Role, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) UpsertCollaborator(ctx context.Context, collaborator domain.Collaborator) (*domain.Collaborator, error) {
	collaborator.Email = strings.ToLower(strings.TrimSpace(collaborator.Email))
	if collaborator.Email == "" || collaborator.Role == "" {
		return nil, store.ErrInvalid
	}

	var c domain.Collaborator
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO colaboradores (email, role, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (email) DO UPDATE SET role = EXCLUDED.role
		RETURNING email, role, created_at
	`, collaborator.Email, collaborator.Role).Scan(&c.Email, &c.Role, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) DeleteCollaborator(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM colaboradores WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ store.Repository = (*Store)(nil)
