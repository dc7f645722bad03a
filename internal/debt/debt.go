// Package debt folds open credit sales into one balance per customer and
// renders the collection messages sent to them.
package debt

import (
	"cmp"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/money"
	"bizu/backend/internal/search"
)

var ErrNoPhone = errors.New("customer has no phone number")

const unknownProductName = "Produto"

// Aggregate groups unpaid sales by customer. Paid sales, walk-in sales and
// sales whose customer is absent from customers contribute nothing. Sale IDs
// keep the order the sales arrived in.
func Aggregate(sales []domain.Sale, customers map[string]domain.Customer) map[string]*domain.Debtor {
	out := make(map[string]*domain.Debtor)
	for _, sale := range sales {
		if sale.Paid || sale.CustomerID == "" {
			continue
		}
		customer, ok := customers[sale.CustomerID]
		if !ok {
			continue
		}

		d, ok := out[sale.CustomerID]
		if !ok {
			c := customer.WithDefaults()
			d = &domain.Debtor{
				CustomerID: sale.CustomerID,
				Name:       c.FullName,
				Type:       c.Type,
				Rank:       c.Rank,
				Unit:       c.Unit,
				Phone:      c.Phone,
				Total:      money.Zero,
				SaleIDs:    make([]string, 0, 4),
			}
			out[sale.CustomerID] = d
		}
		d.Total = d.Total.Add(sale.Total)
		d.SaleIDs = append(d.SaleIDs, sale.ID)
	}
	return out
}

// List flattens an aggregate, largest balance first and then by name.
func List(debtors map[string]*domain.Debtor) []domain.Debtor {
	out := make([]domain.Debtor, 0, len(debtors))
	for _, d := range debtors {
		out = append(out, *d)
	}
	slices.SortFunc(out, func(a, b domain.Debtor) int {
		return cmp.Or(
			b.Total.Cmp(a.Total),
			strings.Compare(search.Fold(a.Name), search.Fold(b.Name)),
			strings.Compare(a.CustomerID, b.CustomerID),
		)
	})
	return out
}

// Filter keeps debtors whose name or unit contains query.
func Filter(debtors []domain.Debtor, query string) []domain.Debtor {
	if strings.TrimSpace(query) == "" {
		return debtors
	}
	out := make([]domain.Debtor, 0, len(debtors))
	for _, d := range debtors {
		if search.Contains(query, d.Name, d.Unit) {
			out = append(out, d)
		}
	}
	return out
}

// Total sums the balances of debtors.
func Total(debtors []domain.Debtor) decimal.Decimal {
	sum := money.Zero
	for _, d := range debtors {
		sum = sum.Add(d.Total)
	}
	return sum
}

// Statements builds the closing statement of every debtor, itemised from the
// sale items of the sales that make up the balance.
func Statements(debtors []domain.Debtor, items []domain.SaleItem, products map[string]domain.Product) []domain.ClosingStatement {
	bySale := make(map[string][]domain.SaleItem)
	for _, item := range items {
		bySale[item.SaleID] = append(bySale[item.SaleID], item)
	}

	out := make([]domain.ClosingStatement, 0, len(debtors))
	for _, d := range debtors {
		st := domain.ClosingStatement{Debtor: d, Lines: make([]domain.StatementLine, 0, len(d.SaleIDs))}
		var details strings.Builder
		for _, saleID := range d.SaleIDs {
			for _, item := range bySale[saleID] {
				name := unknownProductName
				if p, ok := products[item.ProductID]; ok && p.Name != "" {
					name = p.Name
				}
				amount := money.Times(item.UnitPrice, item.Quantity)
				st.Lines = append(st.Lines, domain.StatementLine{ProductName: name, Quantity: item.Quantity, Amount: amount})
				fmt.Fprintf(&details, "• %dx %s - %s\n", item.Quantity, name, money.Format(amount))
			}
		}
		st.Details = details.String()
		out = append(out, st)
	}
	return out
}

// ReminderMessage is the short nudge sent from the collections screen.
func ReminderMessage(d domain.Debtor) string {
	return fmt.Sprintf(
		"Olá %s, tudo bem? Passando para lembrar do seu acerto de lanches. O total pendente é %s. Qual a melhor forma de pagamento para você?",
		d.Name, money.Format(d.Total),
	)
}

// ClosingMessage is the monthly statement with the itemised consumption and
// the PIX key to pay into.
func ClosingMessage(st domain.ClosingStatement, businessName, pixKey string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s - FECHAMENTO MENSAL*\n\n", strings.ToUpper(businessName))
	fmt.Fprintf(&b, "Olá, *%s*.\n", strings.TrimSpace(st.Debtor.Rank+" "+st.Debtor.Name))
	b.WriteString("Segue o extrato do seu consumo:\n\n")
	b.WriteString(st.Details)
	b.WriteString("\n")
	fmt.Fprintf(&b, "*TOTAL: %s*\n\n", money.Format(st.Debtor.Total))
	fmt.Fprintf(&b, "*PIX:* %s\n\n", pixKey)
	b.WriteString("Envie o comprovante. Obrigado!")
	return b.String()
}

func ReminderLink(d domain.Debtor) (string, error) {
	return whatsAppLink(d.Phone, ReminderMessage(d))
}

func StatementLink(st domain.ClosingStatement, businessName, pixKey string) (string, error) {
	return whatsAppLink(st.Debtor.Phone, ClosingMessage(st, businessName, pixKey))
}

// whatsAppLink builds a click-to-chat link for a Brazilian number.
func whatsAppLink(phone, message string) (string, error) {
	digits := search.Digits(phone)
	if digits == "" {
		return "", ErrNoPhone
	}
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "https://wa.me/55" + digits + "?text=" + text, nil
}
