package domain

import "github.com/shopspring/decimal"

// PromotionApplication is a product-level promotion recorded on an order line.
type PromotionApplication struct {
	PromotionCode string `json:"promotionCode,omitempty"`
	PromotionName string `json:"promotionName,omitempty"`
	// DiscountAmount is the per-unit discount.
	DiscountAmount *int64 `json:"discountAmount,omitempty"`
	// OriginalPrice is the pre-discount unit price of historical orders.
	OriginalPrice *int64 `json:"originalPrice,omitempty"`
}

// Label is the badge text shown next to a discounted price.
func (p *PromotionApplication) Label() string {
	if p == nil {
		return ""
	}
	if p.PromotionName != "" {
		return p.PromotionName
	}
	return p.PromotionCode
}

// VoucherType is the kind of order-level discount a voucher grants.
type VoucherType string

const (
	VoucherPercentage   VoucherType = "percentage"
	VoucherFixedAmount  VoucherType = "fixed_amount"
	VoucherFreeShipping VoucherType = "free_shipping"
)

// Valid reports whether t is a known voucher type.
func (t VoucherType) Valid() bool {
	switch t {
	case VoucherPercentage, VoucherFixedAmount, VoucherFreeShipping:
		return true
	}
	return false
}

// VoucherApplication is the single order-level voucher of an order or
// summary request.
type VoucherApplication struct {
	Code  string          `json:"code"`
	Name  string          `json:"name,omitempty"`
	Type  VoucherType     `json:"type"`
	Value decimal.Decimal `json:"value"`
	// DiscountAmount is the total the backend deducted. When set it wins over
	// any locally computed figure.
	DiscountAmount *int64 `json:"discountAmount,omitempty"`
}
