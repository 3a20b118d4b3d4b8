// Package pricing derives display prices, voucher deductions and order
// summaries from cart and order lines. Everything here is pure.
package pricing

import (
	"github.com/nongtiensonpro/yellowcat/pkg/discount"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/domain"
)

// PriceResolution is the outcome of applying a line promotion to a price.
type PriceResolution struct {
	EffectivePrice int64  `json:"effectivePrice"`
	ListPrice      int64  `json:"listPrice"`
	SavingsPerUnit int64  `json:"savingsPerUnit"`
	BadgeLabel     string `json:"badgeLabel,omitempty"`
}

// ResolveEffectivePrice applies promo to basePrice. A positive DiscountAmount
// is subtracted (floored at zero). Without one, an OriginalPrice above
// basePrice is reported as the list price so historical orders still show
// their savings. Negative inputs count as zero.
func ResolveEffectivePrice(basePrice int64, promo *domain.PromotionApplication) PriceResolution {
	basePrice = max(basePrice, 0)
	res := PriceResolution{EffectivePrice: basePrice, ListPrice: basePrice}
	if promo == nil {
		return res
	}

	if promo.DiscountAmount != nil && *promo.DiscountAmount > 0 {
		effective := max(basePrice-*promo.DiscountAmount, 0)
		res.EffectivePrice = effective
		res.SavingsPerUnit = basePrice - effective
		res.BadgeLabel = promo.Label()
		return res
	}

	if promo.OriginalPrice != nil && *promo.OriginalPrice > basePrice {
		res.ListPrice = *promo.OriginalPrice
		res.SavingsPerUnit = *promo.OriginalPrice - basePrice
		res.BadgeLabel = promo.Label()
	}
	return res
}

// EffectiveUnitPrice is sale when it is present, non-negative and below list;
// otherwise list.
func EffectiveUnitPrice(list int64, sale *int64) int64 {
	list = max(list, 0)
	if sale != nil && *sale >= 0 && *sale < list {
		return *sale
	}
	return list
}

// VoucherEffect is the deduction a voucher grants on an order.
type VoucherEffect = discount.Effect

// VoucherDiscount computes the deduction of v on the given subtotal and
// shipping fee. A server-computed DiscountAmount is authoritative and only
// clamped to subtotal+shippingFee.
func VoucherDiscount(v *domain.VoucherApplication, subtotal, shippingFee int64) VoucherEffect {
	if v == nil {
		return VoucherEffect{}
	}
	kind := discount.Kind(v.Type)
	if v.DiscountAmount != nil {
		return discount.Apportion(kind, *v.DiscountAmount, subtotal, shippingFee)
	}
	return discount.Compute(kind, v.Value, subtotal, shippingFee)
}
