package orders

import (
	"trendaryo/apperr"
	"trendaryo/models"

	"github.com/shopspring/decimal"
)

// Totals are the derived money amounts of an order.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals derives subtotal and total from the line-item snapshots.
// Every quantity must be at least 1 and no amount may be negative. The total
// is not clamped: a discount larger than the rest yields a negative total,
// which callers have to reject themselves.
func ComputeTotals(items []models.LineItem, shipping, tax, discount decimal.Decimal) (Totals, error) {
	subtotal := decimal.Zero
	for i, it := range items {
		if it.Quantity < 1 {
			return Totals{}, apperr.Validation("item %d: quantity must be at least 1", i+1)
		}
		if it.Price.IsNegative() {
			return Totals{}, apperr.Validation("item %d: price cannot be negative", i+1)
		}
		subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	for _, f := range []struct {
		name string
		v    decimal.Decimal
	}{{"shipping cost", shipping}, {"tax", tax}, {"discount", discount}} {
		if f.v.IsNegative() {
			return Totals{}, apperr.Validation("%s cannot be negative", f.name)
		}
	}
	return Totals{
		Subtotal: subtotal,
		Total:    subtotal.Add(shipping).Add(tax).Sub(discount),
	}, nil
}
