package combo

import (
	"github.com/shopspring/decimal"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/money"
)

// Cart is the sales terminal basket. A manual discount set with SetOverride
// holds until a combo line is added, removed or resized.
type Cart struct {
	engine   *Engine
	lines    []Line
	override *decimal.Decimal
}

func NewCart(engine *Engine) *Cart {
	if engine == nil {
		engine = NewEngine(nil)
	}
	return &Cart{engine: engine}
}

// Add puts qty units of product in the cart, merging with an existing line
// for the same product and combo flag.
func (c *Cart) Add(product domain.Product, qty int, asCombo bool) {
	if qty <= 0 {
		return
	}
	if asCombo {
		c.override = nil
	}
	for i := range c.lines {
		if c.lines[i].Product.ID == product.ID && c.lines[i].Combo == asCombo {
			c.lines[i].Quantity += qty
			return
		}
	}
	c.lines = append(c.lines, Line{Product: product, Quantity: qty, Combo: asCombo})
}

// AddPicks adds a selected bundle as combo lines.
func (c *Cart) AddPicks(picks []Pick) {
	for _, p := range picks {
		c.Add(p.Product, p.Quantity, true)
	}
}

// Remove drops the line for productID with the given flag.
func (c *Cart) Remove(productID string, asCombo bool) {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID && c.lines[i].Combo == asCombo {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			if asCombo {
				c.override = nil
			}
			return
		}
	}
}

func (c *Cart) SetOverride(v decimal.Decimal) {
	v = money.NonNegative(v)
	c.override = &v
}

func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Subtotal() decimal.Decimal {
	sum := money.Zero
	for _, l := range c.lines {
		sum = sum.Add(money.Times(l.Product.SalePrice, l.Quantity))
	}
	return sum
}

// Discount is the manual override when one is set, otherwise the bundle
// discount.
func (c *Cart) Discount() decimal.Decimal {
	if c.override != nil {
		return *c.override
	}
	return c.engine.Quote(c.lines).Discount
}

// Total never goes below zero.
func (c *Cart) Total() decimal.Decimal {
	return money.NonNegative(c.Subtotal().Sub(c.Discount()))
}

func (c *Cart) Quote() domain.CartQuote {
	q := c.engine.Quote(c.lines)
	return domain.CartQuote{
		Subtotal:       c.Subtotal(),
		Bundle:         q.Bundle,
		ComboCount:     q.ComboCount,
		ComboSubtotal:  q.ComboSubtotal,
		Discount:       c.Discount(),
		ManualDiscount: c.override != nil,
		KindsVerified:  q.KindsVerified,
		Total:          c.Total(),
	}
}
