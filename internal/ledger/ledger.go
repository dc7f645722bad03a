// Package ledger merges sales and write-offs into the single statement shown
// on the extrato screen.
package ledger

import (
	"slices"
	"strings"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/search"
)

const (
	KindAll = "all"

	walkInDescription   = "Venda Avulsa"
	defaultMethod       = "PIX"
	defaultRank         = "CIVIL"
	unknownItemName     = "Item Desconhecido"
	unspecifiedReason   = "NÃO INFORMADO"
	writeOffDescription = "PERDA: "
)

// Merge maps every sale and write-off to a ledger entry, newest first. Entries
// with equal dates keep sales ahead of write-offs and otherwise input order.
func Merge(sales []domain.Sale, writeOffs []domain.WriteOff, customers map[string]domain.Customer, products map[string]domain.Product) []domain.LedgerEntry {
	out := make([]domain.LedgerEntry, 0, len(sales)+len(writeOffs))
	for _, s := range sales {
		out = append(out, saleEntry(s, customers))
	}
	for _, w := range writeOffs {
		out = append(out, writeOffEntry(w, products))
	}
	slices.SortStableFunc(out, func(a, b domain.LedgerEntry) int {
		return b.Date.Compare(a.Date)
	})
	return out
}

func saleEntry(s domain.Sale, customers map[string]domain.Customer) domain.LedgerEntry {
	description := walkInDescription
	rank := ""
	if c, ok := customers[s.CustomerID]; ok && s.CustomerID != "" {
		if c.FullName != "" {
			description = c.FullName
		}
		rank = c.Rank
	}
	if rank == "" {
		rank = defaultRank
	}

	method := s.PaymentMethod
	if method == "" {
		method = defaultMethod
	}

	status := domain.LedgerStatusPending
	if s.Paid {
		status = domain.LedgerStatusSettled
	}

	return domain.LedgerEntry{
		ID:             s.ID,
		Amount:         s.Total,
		Description:    description,
		SubDescription: strings.ToUpper(method) + " • " + rank,
		Date:           s.CreatedAt,
		Kind:           domain.LedgerKindSale,
		Status:         status,
	}
}

func writeOffEntry(w domain.WriteOff, products map[string]domain.Product) domain.LedgerEntry {
	name := unknownItemName
	if p, ok := products[w.ProductID]; ok && p.Name != "" {
		name = p.Name
	}

	reason := unspecifiedReason
	if label, ok := domain.ReasonLabels[w.Reason]; ok {
		reason = label
	} else if w.Reason != "" {
		reason = w.Reason
	}

	return domain.LedgerEntry{
		ID:             w.ID,
		Amount:         w.Cost,
		Description:    writeOffDescription + name,
		SubDescription: strings.ToUpper(reason),
		Date:           w.CreatedAt,
		Kind:           domain.LedgerKindWriteOff,
		Status:         domain.LedgerStatusLoss,
	}
}

// Filter narrows entries to one kind ("", "all", "sale" or "write_off") and
// to those whose description or sub-description contains query.
func Filter(entries []domain.LedgerEntry, kind, query string) []domain.LedgerEntry {
	out := make([]domain.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if kind != "" && kind != KindAll && e.Kind != kind {
			continue
		}
		if !search.Contains(query, e.Description, e.SubDescription) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ValidKind reports whether kind names a ledger filter.
func ValidKind(kind string) bool {
	switch kind {
	case "", KindAll, domain.LedgerKindSale, domain.LedgerKindWriteOff:
		return true
	}
	return false
}
