package orders

import (
	"time"

	"trendaryo/apperr"
	"trendaryo/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Pricing derives shipping, tax and discount from a subtotal.
type Pricing struct {
	FlatShipping          decimal.Decimal
	FreeShippingThreshold decimal.Decimal // zero disables free shipping
	TaxRate               decimal.Decimal // 0.08 means 8%
}

func (p Pricing) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.IsZero() {
		return decimal.Zero
	}
	if p.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FlatShipping
}

func (p Pricing) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(p.TaxRate).Round(2)
}

// Discount is the coupon percentage of subtotal, rounded to cents and
// never more than the subtotal itself.
func Discount(c *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	d := subtotal.Mul(c.Discount).Div(hundred).Round(2)
	return decimal.Min(d, subtotal)
}

// ValidateCoupon checks that c can be applied to an order of subtotal at now.
func ValidateCoupon(c *models.Coupon, subtotal decimal.Decimal, now time.Time) error {
	switch {
	case !c.Active:
		return apperr.Validation("coupon %s is not active", c.Code)
	case !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt):
		return apperr.Validation("coupon %s has expired", c.Code)
	case c.Discount.LessThanOrEqual(decimal.Zero) || c.Discount.GreaterThan(hundred):
		return apperr.Validation("coupon %s has an invalid discount", c.Code)
	case subtotal.LessThan(c.MinSpend):
		return apperr.Validation("coupon %s requires a minimum spend of %s", c.Code, c.MinSpend.StringFixed(2))
	}
	return nil
}

// Quote is a priced set of line items.
type Quote struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	Tax          decimal.Decimal `json:"tax"`
	Discount     decimal.Decimal `json:"discount"`
	DiscountCode string          `json:"discountCode,omitempty"`
	Total        decimal.Decimal `json:"total"`
}

// Quote prices items under p with an optional, already validated coupon.
func (p Pricing) Quote(items []models.LineItem, c *models.Coupon) (Quote, error) {
	base, err := ComputeTotals(items, decimal.Zero, decimal.Zero, decimal.Zero)
	if err != nil {
		return Quote{}, err
	}
	q := Quote{
		ShippingCost: p.Shipping(base.Subtotal),
		Tax:          p.Tax(base.Subtotal),
		Discount:     Discount(c, base.Subtotal),
	}
	if c != nil {
		q.DiscountCode = c.Code
	}
	totals, err := ComputeTotals(items, q.ShippingCost, q.Tax, q.Discount)
	if err != nil {
		return Quote{}, err
	}
	q.Subtotal, q.Total = totals.Subtotal, totals.Total
	return q, nil
}
