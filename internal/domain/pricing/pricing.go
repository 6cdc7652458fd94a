// Package pricing turns a list of purchased items plus the active promotions
// into the order totals. It is pure computation: no I/O, no shared state, safe
// to call concurrently for independent orders.
package pricing

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/foodworks-dev/counter-pos/internal/domain/catalog"
	"github.com/foodworks-dev/counter-pos/internal/domain/promotion"
)

// Totals is the result of pricing one order.
type Totals struct {
	// Total is the final price after discounts, tax included.
	Total decimal.Decimal
	// TaxTotal is the portion of Total attributable to tax.
	TaxTotal decimal.Decimal
	// TimeTotal is the preparation time in seconds, summed over every item
	// regardless of discounts.
	TimeTotal int
	// AppliedPromotions holds the ids of promotions that matched at least
	// once, in first-match order, each id once.
	AppliedPromotions []string
}

// Subtotal is the pre-tax total. It is derived, never stored.
func (t Totals) Subtotal() decimal.Decimal {
	return t.Total.Sub(t.TaxTotal)
}

// matchedGroup records the items consumed by one successful application of
// one promotion.
type matchedGroup struct {
	items []catalog.Item
	promo promotion.Promotion
}

// ComputeTotals prices an order.
//
// Promotions are tried in the order given, not sorted or prioritized by
// value. Each promotion is matched repeatedly against the shrinking pool, so
// a single promotion applies multiple times when the order holds enough
// qualifying items. Items left over after all promotions are priced
// undiscounted.
//
// The function is total: malformed input (a promotion referencing an unknown
// item id, a discounted id missing from the requirements) degrades to that
// rule never applying, not to an error.
func ComputeTotals(items []catalog.Item, promotions []promotion.Promotion) Totals {
	var groups []matchedGroup
	pool := items
	for _, p := range promotions {
		// An empty matched group means the promotion no longer applies;
		// this also keeps a vacuous promotion (no required items) from
		// looping forever.
		for {
			matched, remaining := promotion.Match(pool, p)
			if len(matched) == 0 {
				break
			}
			groups = append(groups, matchedGroup{items: matched, promo: p})
			pool = remaining
		}
	}

	totals := Totals{
		Total:             decimal.Zero,
		TaxTotal:          decimal.Zero,
		AppliedPromotions: []string{},
	}

	for _, item := range items {
		totals.TimeTotal += item.PrepTime
	}

	applied := make(map[string]struct{})
	for _, g := range groups {
		for _, item := range g.items {
			price := item.Price
			if slices.Contains(g.promo.ItemsDiscounted, item.ID) {
				price = discountedPrice(price, g.promo)
			}
			totals.Total = totals.Total.Add(price)
			totals.TaxTotal = totals.TaxTotal.Add(price.Mul(item.TaxRate))
		}
		if _, ok := applied[g.promo.ID]; !ok {
			applied[g.promo.ID] = struct{}{}
			totals.AppliedPromotions = append(totals.AppliedPromotions, g.promo.ID)
		}
	}

	for _, item := range pool {
		totals.Total = totals.Total.Add(item.Price)
		totals.TaxTotal = totals.TaxTotal.Add(item.Price.Mul(item.TaxRate))
	}

	return totals
}

// discountedPrice applies the promotion's discounts to a unit price. The
// fixed amount comes first, then the percentage on the reduced price; the two
// kinds compose sequentially, not independently. The result never drops below
// zero.
func discountedPrice(price decimal.Decimal, p promotion.Promotion) decimal.Decimal {
	if p.Amount.IsPositive() {
		price = floorAtZero(price.Sub(p.Amount))
	}
	if p.Percentage.IsPositive() {
		price = floorAtZero(price.Sub(price.Mul(p.Percentage)))
	}
	return price
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
