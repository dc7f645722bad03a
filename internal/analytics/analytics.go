// Package analytics computes the profit and loss summary for a period.
package analytics

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/money"
)

type Period string

const (
	PeriodToday Period = "today"
	PeriodMonth Period = "month"
)

const unknownProductName = "Produto"

// ParsePeriod accepts the two supported periods; an empty value means month.
func ParsePeriod(raw string) (Period, error) {
	switch Period(raw) {
	case "", PeriodMonth:
		return PeriodMonth, nil
	case PeriodToday:
		return PeriodToday, nil
	}
	return "", fmt.Errorf("unknown period %q", raw)
}

// Contains reports whether t falls in the period around now. Both instants
// are compared on now's calendar; a zero t is never in period.
func (p Period) Contains(t, now time.Time) bool {
	if t.IsZero() {
		return false
	}
	t = t.In(now.Location())
	if t.Year() != now.Year() || t.Month() != now.Month() {
		return false
	}
	if p == PeriodToday {
		return t.Day() == now.Day()
	}
	return true
}

// Input is everything Compute reads. Products are the current catalog; line
// costs use the cost recorded there today, not at sale time.
type Input struct {
	Sales     []domain.Sale
	SaleItems []domain.SaleItem
	WriteOffs []domain.WriteOff
	Products  map[string]domain.Product
}

// Compute never fails: empty or partial input yields zeros.
func Compute(in Input, period Period, now time.Time) domain.AnalyticsReport {
	report := domain.AnalyticsReport{
		Period:            string(period),
		ReferenceDate:     now.Format("2006-01-02"),
		GrossRevenue:      money.Zero,
		OutstandingCredit: money.Zero,
		WriteOffLoss:      money.Zero,
		NetProfit:         money.Zero,
		InventoryValue:    money.Zero,
		PotentialProfit:   money.Zero,
		BestSellers:       []domain.RankedProduct{},
		DailyRevenue:      []domain.DailyRevenue{},
	}

	inPeriod := make(map[string]struct{}, len(in.Sales))
	dayIndex := make(map[string]int)
	for _, sale := range in.Sales {
		if !period.Contains(sale.CreatedAt, now) {
			continue
		}
		inPeriod[sale.ID] = struct{}{}
		report.GrossRevenue = report.GrossRevenue.Add(sale.Total)
		if !sale.Paid {
			report.OutstandingCredit = report.OutstandingCredit.Add(sale.Total)
		}

		day := fmt.Sprintf("%02d", sale.CreatedAt.In(now.Location()).Day())
		if i, ok := dayIndex[day]; ok {
			report.DailyRevenue[i].Total = report.DailyRevenue[i].Total.Add(sale.Total)
		} else {
			dayIndex[day] = len(report.DailyRevenue)
			report.DailyRevenue = append(report.DailyRevenue, domain.DailyRevenue{Day: day, Total: sale.Total})
		}
	}

	margin := money.Zero
	rankIndex := make(map[string]int)
	for _, item := range in.SaleItems {
		if _, ok := inPeriod[item.SaleID]; !ok {
			continue
		}
		product, known := in.Products[item.ProductID]
		if known {
			margin = margin.Add(money.Times(item.UnitPrice.Sub(product.CostPrice), item.Quantity))
		}

		name := unknownProductName
		if known && product.Name != "" {
			name = product.Name
		}
		if i, ok := rankIndex[name]; ok {
			report.BestSellers[i].Quantity += item.Quantity
		} else {
			rankIndex[name] = len(report.BestSellers)
			report.BestSellers = append(report.BestSellers, domain.RankedProduct{Name: name, Quantity: item.Quantity})
		}
	}
	slices.SortStableFunc(report.BestSellers, func(a, b domain.RankedProduct) int {
		return b.Quantity - a.Quantity
	})

	for _, w := range in.WriteOffs {
		if period.Contains(w.CreatedAt, now) {
			report.WriteOffLoss = report.WriteOffLoss.Add(w.Cost)
		}
	}
	report.NetProfit = margin.Sub(report.WriteOffLoss)

	report.InventoryValue, report.PotentialProfit = valuation(in.Products)
	return report
}

func valuation(products map[string]domain.Product) (decimal.Decimal, decimal.Decimal) {
	value, potential := money.Zero, money.Zero
	for _, p := range products {
		value = value.Add(money.Times(p.CostPrice, p.Stock))
		potential = potential.Add(money.Times(p.SalePrice.Sub(p.CostPrice), p.Stock))
	}
	return value, potential
}
