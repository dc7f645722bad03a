package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	CostPrice      decimal.Decimal `json:"cost_price"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	Stock          int             `json:"stock"`
	Category       string          `json:"category"`
	ParentCategory string          `json:"parent_category,omitempty"`
	Storage        string          `json:"storage,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type ProductCreateRequest struct {
	Name           string          `json:"name" validate:"required,max=120"`
	CostPrice      decimal.Decimal `json:"cost_price" validate:"gte=0"`
	SalePrice      decimal.Decimal `json:"sale_price" validate:"gte=0"`
	Stock          int             `json:"stock" validate:"gte=0"`
	Category       string          `json:"category" validate:"omitempty,oneof=food drink"`
	ParentCategory string          `json:"parent_category" validate:"max=60"`
	Storage        string          `json:"storage" validate:"omitempty,oneof=pantry fridge"`
}

type ProductUpdateRequest struct {
	Name           *string          `json:"name,omitempty" validate:"omitempty,max=120"`
	CostPrice      *decimal.Decimal `json:"cost_price,omitempty" validate:"omitempty,gte=0"`
	SalePrice      *decimal.Decimal `json:"sale_price,omitempty" validate:"omitempty,gte=0"`
	Stock          *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Category       *string          `json:"category,omitempty" validate:"omitempty,oneof=food drink"`
	ParentCategory *string          `json:"parent_category,omitempty" validate:"omitempty,max=60"`
	Storage        *string          `json:"storage,omitempty" validate:"omitempty,oneof=pantry fridge"`
}

type Customer struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Type      string    `json:"type"`
	Rank      string    `json:"rank,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"required,max=30"`
	Type     string `json:"type" validate:"omitempty,oneof=civil military"`
	Rank     string `json:"rank" validate:"max=40"`
	Unit     string `json:"unit" validate:"max=60"`
}

// UnknownCustomer is the placeholder used wherever a sale points at a
// customer whose row, or one of its fields, is missing.
var UnknownCustomer = Customer{
	FullName: "Cliente",
	Type:     CustomerCivil,
	Phone:    "",
	Rank:     "",
	Unit:     "S/C",
}

// WithDefaults fills empty fields from UnknownCustomer.
func (c Customer) WithDefaults() Customer {
	if c.FullName == "" {
		c.FullName = UnknownCustomer.FullName
	}
	if c.Type == "" {
		c.Type = UnknownCustomer.Type
	}
	if c.Unit == "" {
		c.Unit = UnknownCustomer.Unit
	}
	return c
}

type Sale struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customer_id,omitempty"`
	Total         decimal.Decimal `json:"total"`
	Paid          bool            `json:"paid"`
	PaymentMethod string          `json:"payment_method"`
	Discount      decimal.Decimal `json:"discount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SaleItem stores the unit price charged at sale time; later product price
// changes never touch it.
type SaleItem struct {
	ID        string          `json:"id"`
	SaleID    string          `json:"sale_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type WriteOff struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Reason    string          `json:"reason"`
	Cost      decimal.Decimal `json:"cost"`
	CreatedAt time.Time       `json:"created_at"`
}

type WriteOffRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	Reason    string `json:"reason" validate:"omitempty,oneof=consumption damage expiry gift"`
}

type Collaborator struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type CollaboratorRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Session is the authenticated caller, passed explicitly into every service
// call.
type Session struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

type Debtor struct {
	CustomerID string          `json:"customer_id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Rank       string          `json:"rank"`
	Unit       string          `json:"unit"`
	Phone      string          `json:"phone"`
	Total      decimal.Decimal `json:"total"`
	SaleIDs    []string        `json:"sale_ids"`
}

type StatementLine struct {
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
}

type DebtorListResponse struct {
	Debtors []Debtor        `json:"debtors"`
	Total   decimal.Decimal `json:"total"`
}

type ReminderResponse struct {
	CustomerID string `json:"customer_id"`
	Message    string `json:"message"`
	Link       string `json:"link"`
}

type ClosingStatement struct {
	Debtor  Debtor          `json:"debtor"`
	Lines   []StatementLine `json:"lines"`
	Details string          `json:"details"`
	Message string          `json:"message"`
	Link    string          `json:"link,omitempty"`
}

type LedgerEntry struct {
	ID             string          `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	SubDescription string          `json:"sub_description"`
	Date           time.Time       `json:"date"`
	Kind           string          `json:"kind"`
	Status         string          `json:"status"`
}

type ReverseRequest struct {
	PIN string `json:"pin"`
}

type ReverseResponse struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	RestoredUnits int    `json:"restored_units"`
	ReversedAt    string `json:"reversed_at"`
}

type LiquidateResponse struct {
	CustomerID  string `json:"customer_id"`
	SalesPaid   int    `json:"sales_paid"`
	LiquidateAt string `json:"liquidated_at"`
}

type CartLine struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	Combo     bool   `json:"combo"`
}

type CartRequest struct {
	Lines            []CartLine       `json:"lines" validate:"required,min=1,dive"`
	DiscountOverride *decimal.Decimal `json:"discount_override,omitempty" validate:"omitempty,gte=0"`
}

type CartQuote struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	Bundle         string          `json:"bundle,omitempty"`
	ComboCount     int             `json:"combo_count"`
	ComboSubtotal  decimal.Decimal `json:"combo_subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	ManualDiscount bool            `json:"manual_discount"`
	KindsVerified  bool            `json:"kinds_verified"`
	Total          decimal.Decimal `json:"total"`
}

type CheckoutRequest struct {
	CustomerID       string           `json:"customer_id"`
	PaymentMethod    string           `json:"payment_method" validate:"omitempty,oneof=pix cash card credit"`
	Lines            []CartLine       `json:"lines" validate:"required,min=1,dive"`
	DiscountOverride *decimal.Decimal `json:"discount_override,omitempty" validate:"omitempty,gte=0"`
}

type CheckoutResponse struct {
	Sale  Sale       `json:"sale"`
	Items []SaleItem `json:"items"`
	Quote CartQuote  `json:"quote"`
}

type ComboSelectRequest struct {
	Bundle string `json:"bundle" validate:"required"`
}

type ComboSelection struct {
	Bundle   string          `json:"bundle"`
	Price    decimal.Decimal `json:"price"`
	Lines    []CartLine      `json:"lines"`
	Products []Product       `json:"products"`
}

type RankedProduct struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type DailyRevenue struct {
	Day   string          `json:"day"`
	Total decimal.Decimal `json:"total"`
}

type AnalyticsReport struct {
	Period            string          `json:"period"`
	ReferenceDate     string          `json:"reference_date"`
	GrossRevenue      decimal.Decimal `json:"gross_revenue"`
	OutstandingCredit decimal.Decimal `json:"outstanding_credit"`
	WriteOffLoss      decimal.Decimal `json:"write_off_loss"`
	NetProfit         decimal.Decimal `json:"net_profit"`
	InventoryValue    decimal.Decimal `json:"inventory_value"`
	PotentialProfit   decimal.Decimal `json:"potential_profit"`
	BestSellers       []RankedProduct `json:"best_sellers"`
	DailyRevenue      []DailyRevenue  `json:"daily_revenue"`
}

const (
	RoleAdmin        = "admin"
	RoleCollaborator = "collaborator"
)

const (
	CustomerCivil    = "civil"
	CustomerMilitary = "military"
)

const (
	CategoryFood  = "food"
	CategoryDrink = "drink"
)

const (
	StoragePantry = "pantry"
	StorageFridge = "fridge"
)

const (
	PaymentPix    = "pix"
	PaymentCash   = "cash"
	PaymentCard   = "card"
	PaymentCredit = "credit"
)

const (
	ReasonConsumption = "consumption"
	ReasonDamage      = "damage"
	ReasonExpiry      = "expiry"
	ReasonGift        = "gift"
)

const (
	LedgerKindSale     = "sale"
	LedgerKindWriteOff = "write_off"
)

const (
	LedgerStatusSettled = "Liquidado"
	LedgerStatusPending = "Pendente"
	LedgerStatusLoss    = "Prejuízo"
)

// ReasonLabels are the write-off reasons as the counter staff name them.
var ReasonLabels = map[string]string{
	ReasonConsumption: "Consumo Dono",
	ReasonDamage:      "Avaria / Estrago",
	ReasonExpiry:      "Vencimento",
	ReasonGift:        "Brinde / Cortesia",
}
