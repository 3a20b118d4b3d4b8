// Package discount holds the order-level voucher arithmetic shared by the
// storefront summary and the admin promotion preview.
package discount

import "github.com/shopspring/decimal"

// Kind is a voucher discount type.
type Kind string

const (
	Percentage   Kind = "percentage"
	FixedAmount  Kind = "fixed_amount"
	FreeShipping Kind = "free_shipping"
)

var hundred = decimal.NewFromInt(100)

// Effect splits a voucher's deduction between the product subtotal and the
// shipping fee.
type Effect struct {
	ProductDiscount  int64 `json:"productDiscount"`
	ShippingDiscount int64 `json:"shippingDiscount"`
}

// Total is the overall deduction.
func (e Effect) Total() int64 {
	return e.ProductDiscount + e.ShippingDiscount
}

// Compute applies a voucher of the given kind and value:
//
//   - percentage: subtotal*value/100 rounded half-up, value clamped to [0,100]
//   - fixed_amount: value rounded to whole dong, at most subtotal
//   - free_shipping: the whole shipping fee, subtotal untouched
//
// Unknown kinds grant nothing. Negative amounts are treated as zero.
func Compute(kind Kind, value decimal.Decimal, subtotal, shippingFee int64) Effect {
	subtotal = max(subtotal, 0)
	shippingFee = max(shippingFee, 0)

	switch kind {
	case Percentage:
		pct := decimal.Min(decimal.Max(value, decimal.Zero), hundred)
		d := decimal.NewFromInt(subtotal).Mul(pct).Div(hundred).Round(0).IntPart()
		return Effect{ProductDiscount: min(d, subtotal)}
	case FixedAmount:
		d := max(value.Round(0).IntPart(), 0)
		return Effect{ProductDiscount: min(d, subtotal)}
	case FreeShipping:
		return Effect{ShippingDiscount: shippingFee}
	}
	return Effect{}
}

// Apportion splits a server-computed total deduction. Free shipping vouchers
// consume the shipping fee first, all others the subtotal first. The result
// never exceeds subtotal+shippingFee.
func Apportion(kind Kind, amount, subtotal, shippingFee int64) Effect {
	subtotal = max(subtotal, 0)
	shippingFee = max(shippingFee, 0)
	amount = min(max(amount, 0), subtotal+shippingFee)

	if kind == FreeShipping {
		ship := min(amount, shippingFee)
		return Effect{ShippingDiscount: ship, ProductDiscount: amount - ship}
	}
	prod := min(amount, subtotal)
	return Effect{ProductDiscount: prod, ShippingDiscount: amount - prod}
}
