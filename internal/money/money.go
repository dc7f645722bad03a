// Package money holds the monetary helpers shared by the aggregators.
//
// Amounts arrive from the row store as numbers, numeric strings, NULLs or
// occasionally garbage typed into a form. Every one of them must degrade to a
// zero contribution instead of failing an aggregation, so all boundary code
// funnels through Coerce.
package money

import (
	"database/sql"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var Zero = decimal.Zero

// Coerce converts v to a decimal amount, returning zero for missing or
// non-numeric input.
func Coerce(v any) decimal.Decimal {
	switch val := v.(type) {
	case nil:
		return Zero
	case decimal.Decimal:
		return val
	case *decimal.Decimal:
		if val == nil {
			return Zero
		}
		return *val
	case decimal.NullDecimal:
		if !val.Valid {
			return Zero
		}
		return val.Decimal
	case int:
		return decimal.NewFromInt(int64(val))
	case int32:
		return decimal.NewFromInt32(val)
	case int64:
		return decimal.NewFromInt(val)
	case float32:
		return fromFloat(float64(val))
	case float64:
		return fromFloat(val)
	case json.Number:
		return Parse(val.String())
	case string:
		return Parse(val)
	case []byte:
		return Parse(string(val))
	case sql.NullString:
		if !val.Valid {
			return Zero
		}
		return Parse(val.String)
	case sql.NullFloat64:
		if !val.Valid {
			return Zero
		}
		return fromFloat(val.Float64)
	case sql.NullInt64:
		if !val.Valid {
			return Zero
		}
		return decimal.NewFromInt(val.Int64)
	default:
		return Zero
	}
}

// Parse reads a numeric string. Brazilian decimal commas ("12,50") are
// accepted; anything unparsable yields zero.
func Parse(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			// 1.234,56
			s = strings.ReplaceAll(s, ".", "")
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero
	}
	return d
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Zero
	}
	return decimal.NewFromFloat(f)
}

// Format renders an amount the way receipts and reminder messages show it.
func Format(d decimal.Decimal) string {
	return "R$ " + d.StringFixed(2)
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return Zero
	}
	return d
}

// Times multiplies a unit amount by an integer quantity.
func Times(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty)))
}
