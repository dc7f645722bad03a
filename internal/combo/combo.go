// Package combo prices the fixed menu bundles sold at the counter.
package combo

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/money"
	"bizu/backend/internal/search"
)

type Kind string

const (
	KindSandwich Kind = "sandwich"
	KindSoda     Kind = "soda"
	KindJuice    Kind = "juice"
	KindEnergy   Kind = "energy"
)

var ErrUnknownBundle = errors.New("unknown bundle")

// MissingComponentError lists the kinds of a bundle that no catalog product
// can fill.
type MissingComponentError struct {
	Bundle string
	Kinds  []Kind
}

func (e *MissingComponentError) Error() string {
	names := make([]string, len(e.Kinds))
	for i, k := range e.Kinds {
		names[i] = string(k)
	}
	return fmt.Sprintf("%s: no product in catalog for %s", e.Bundle, strings.Join(names, ", "))
}

type Component struct {
	Kind  Kind `json:"kind"`
	Count int  `json:"count"`
}

type Bundle struct {
	Name       string          `json:"name"`
	Components []Component     `json:"components"`
	Price      decimal.Decimal `json:"price"`
}

// Size is the number of units the bundle is made of.
func (b Bundle) Size() int {
	n := 0
	for _, c := range b.Components {
		n += c.Count
	}
	return n
}

// DefaultBundles is the menu board. Order matters: when two bundles have the
// same size the first one wins.
var DefaultBundles = []Bundle{
	{Name: "Combo G", Components: []Component{{KindSandwich, 1}, {KindSoda, 1}}, Price: decimal.RequireFromString("12.00")},
	{Name: "Combo Suco", Components: []Component{{KindSandwich, 1}, {KindJuice, 1}}, Price: decimal.RequireFromString("13.00")},
	{Name: "Combo Turbo", Components: []Component{{KindSandwich, 2}, {KindEnergy, 1}}, Price: decimal.RequireFromString("25.00")},
	{Name: "Combo Tropa", Components: []Component{{KindSandwich, 2}, {KindSoda, 2}}, Price: decimal.RequireFromString("22.00")},
}

type kindRule struct {
	kind     Kind
	category string
	groups   []string
	names    []string
}

// Energy is checked before soda so an energy drink filed under soft drinks
// still counts as energy.
var kindRules = []kindRule{
	{KindSandwich, domain.CategoryFood, []string{"sanduiche", "sanduiches", "lanche"}, []string{"sanduiche", "sanduba", "misto", "x-"}},
	{KindEnergy, domain.CategoryDrink, []string{"energetico", "energeticos"}, []string{"energetico", "monster", "red bull", "redbull", "tnt", "fusion", "baly"}},
	{KindJuice, domain.CategoryDrink, []string{"suco", "sucos"}, []string{"suco", "del valle", "maguary"}},
	{KindSoda, domain.CategoryDrink, []string{"refrigerante", "refrigerantes"}, []string{"refrigerante", "refri", "coca", "guarana", "fanta", "sprite", "pepsi", "kuat"}},
}

func (r kindRule) match(p domain.Product) bool {
	if p.Category != "" && p.Category != r.category {
		return false
	}
	if slices.Contains(r.groups, search.Fold(p.ParentCategory)) {
		return true
	}
	name := search.Fold(p.Name)
	for _, n := range r.names {
		if strings.Contains(name, n) {
			return true
		}
	}
	return false
}

// KindOf classifies a product by category, parent category and well-known
// brand names.
func KindOf(p domain.Product) (Kind, bool) {
	for _, r := range kindRules {
		if r.match(p) {
			return r.kind, true
		}
	}
	return "", false
}

type Engine struct {
	bundles []Bundle
}

func NewEngine(bundles []Bundle) *Engine {
	if len(bundles) == 0 {
		bundles = DefaultBundles
	}
	return &Engine{bundles: slices.Clone(bundles)}
}

func (e *Engine) Bundles() []Bundle {
	return slices.Clone(e.bundles)
}

func (e *Engine) Bundle(name string) (Bundle, bool) {
	want := search.Fold(name)
	for _, b := range e.bundles {
		if search.Fold(b.Name) == want {
			return b, true
		}
	}
	return Bundle{}, false
}

type Pick struct {
	Kind     Kind           `json:"kind"`
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

// SelectBundle picks one catalog product per component of the named bundle,
// preferring products in stock and then name order. Every unfillable kind is
// reported at once.
func (e *Engine) SelectBundle(catalog []domain.Product, name string) (Bundle, []Pick, error) {
	bundle, ok := e.Bundle(name)
	if !ok {
		return Bundle{}, nil, fmt.Errorf("%w: %s", ErrUnknownBundle, name)
	}

	candidates := slices.Clone(catalog)
	slices.SortStableFunc(candidates, func(a, b domain.Product) int {
		return cmp.Or(
			boolRank(a.Stock > 0, b.Stock > 0),
			strings.Compare(search.Fold(a.Name), search.Fold(b.Name)),
		)
	})

	picks := make([]Pick, 0, len(bundle.Components))
	var missing []Kind
	for _, c := range bundle.Components {
		found := false
		for _, p := range candidates {
			if k, ok := KindOf(p); ok && k == c.Kind {
				picks = append(picks, Pick{Kind: c.Kind, Product: p, Quantity: c.Count})
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, c.Kind)
		}
	}
	if len(missing) > 0 {
		return bundle, nil, &MissingComponentError{Bundle: bundle.Name, Kinds: missing}
	}
	return bundle, picks, nil
}

func boolRank(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}

type Line struct {
	Product  domain.Product
	Quantity int
	Combo    bool
}

type Quote struct {
	Bundle        string
	ComboCount    int
	ComboSubtotal decimal.Decimal
	Discount      decimal.Decimal
	KindsVerified bool
}

// Quote prices the combo-flagged lines. The bundle is the first whose size
// equals the number of combo units; the kinds of those units are not used to
// choose it. KindsVerified reports whether they happen to match the chosen
// bundle's components.
func (e *Engine) Quote(lines []Line) Quote {
	q := Quote{ComboSubtotal: money.Zero, Discount: money.Zero}
	kinds := make(map[Kind]int)
	classified := true
	for _, l := range lines {
		if !l.Combo || l.Quantity <= 0 {
			continue
		}
		q.ComboCount += l.Quantity
		q.ComboSubtotal = q.ComboSubtotal.Add(money.Times(l.Product.SalePrice, l.Quantity))
		if k, ok := KindOf(l.Product); ok {
			kinds[k] += l.Quantity
		} else {
			classified = false
		}
	}
	if q.ComboCount == 0 {
		return q
	}

	for _, b := range e.bundles {
		if b.Size() != q.ComboCount {
			continue
		}
		q.Bundle = b.Name
		q.Discount = money.NonNegative(q.ComboSubtotal.Sub(b.Price))
		q.KindsVerified = classified && sameComponents(kinds, b.Components)
		break
	}
	return q
}

func sameComponents(kinds map[Kind]int, components []Component) bool {
	want := make(map[Kind]int, len(components))
	for _, c := range components {
		want[c.Kind] += c.Count
	}
	if len(want) != len(kinds) {
		return false
	}
	for k, n := range want {
		if kinds[k] != n {
			return false
		}
	}
	return true
}
