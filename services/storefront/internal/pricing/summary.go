package pricing

import (
	"strings"

	"github.com/nongtiensonpro/yellowcat/pkg/money"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/domain"
)

// SummaryLine is the pricing-relevant part of a cart or order line.
type SummaryLine struct {
	VariantID     int64
	ListPrice     int64
	SalePrice     *int64
	Quantity      int
	PromotionCode string
}

// LineSavings is the promotion saving attributed to one line.
type LineSavings struct {
	VariantID int64 `json:"variantId"`
	Savings   int64 `json:"savings"`
	// Counted is false when the saving is already represented by the voucher.
	Counted bool `json:"counted"`
}

// OrderSummary is the projection shown at the bottom of cart and order views.
type OrderSummary struct {
	Subtotal          int64         `json:"subtotal"`
	ShippingFee       int64         `json:"shippingFee"`
	ProductDiscount   int64         `json:"productDiscount"`
	ShippingDiscount  int64         `json:"shippingDiscount"`
	DiscountTotal     int64         `json:"discountTotal"`
	GrandTotal        int64         `json:"grandTotal"`
	PerLineSavings    []LineSavings `json:"perLineSavings"`
	OrderLevelSavings int64         `json:"orderLevelSavings"`
	TotalSavings      int64         `json:"totalSavings"`
	VoucherCode       string        `json:"voucherCode,omitempty"`
	Formatted         Formatted     `json:"formatted"`
}

// Formatted holds the display strings of an OrderSummary.
type Formatted struct {
	Subtotal      string `json:"subtotal"`
	ShippingFee   string `json:"shippingFee"`
	DiscountTotal string `json:"discountTotal"`
	GrandTotal    string `json:"grandTotal"`
	TotalSavings  string `json:"totalSavings"`
}

// Project aggregates lines into an order summary.
//
// Line savings whose promotion code equals the voucher code are left out of
// TotalSavings because the voucher figure already covers them.
func Project(lines []SummaryLine, shippingFee int64, voucher *domain.VoucherApplication) OrderSummary {
	shippingFee = max(shippingFee, 0)
	s := OrderSummary{
		ShippingFee:    shippingFee,
		PerLineSavings: make([]LineSavings, 0, len(lines)),
	}

	voucherCode := ""
	if voucher != nil {
		voucherCode = normalizeCode(voucher.Code)
		s.VoucherCode = voucher.Code
	}

	var lineSavings int64
	for _, l := range lines {
		qty := int64(max(l.Quantity, 0))
		effective := EffectiveUnitPrice(l.ListPrice, l.SalePrice)
		s.Subtotal += effective * qty

		saved := (max(l.ListPrice, 0) - effective) * qty
		counted := voucherCode == "" || normalizeCode(l.PromotionCode) != voucherCode
		if counted {
			lineSavings += saved
		}
		s.PerLineSavings = append(s.PerLineSavings, LineSavings{
			VariantID: l.VariantID,
			Savings:   saved,
			Counted:   counted,
		})
	}

	effect := VoucherDiscount(voucher, s.Subtotal, shippingFee)
	s.ProductDiscount = effect.ProductDiscount
	s.ShippingDiscount = effect.ShippingDiscount
	s.DiscountTotal = effect.Total()

	// The server's discount amount, when present, already fed DiscountTotal,
	// clamped to what the order could absorb.
	if voucher != nil {
		s.OrderLevelSavings = s.DiscountTotal
	}

	s.TotalSavings = lineSavings + s.OrderLevelSavings
	s.GrandTotal = max(s.Subtotal+shippingFee-s.DiscountTotal, 0)

	s.Formatted = Formatted{
		Subtotal:      money.FormatVND(s.Subtotal),
		ShippingFee:   money.FormatVND(s.ShippingFee),
		DiscountTotal: money.FormatVND(s.DiscountTotal),
		GrandTotal:    money.FormatVND(s.GrandTotal),
		TotalSavings:  money.FormatVND(s.TotalSavings),
	}
	return s
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// LinesFromCart adapts cart lines. Cart lines carry no promotion code.
func LinesFromCart(items []domain.CartLineItem) []SummaryLine {
	lines := make([]SummaryLine, len(items))
	for i, it := range items {
		lines[i] = SummaryLine{
			VariantID: it.VariantID,
			ListPrice: it.UnitPrice,
			SalePrice: it.SalePrice,
			Quantity:  it.Quantity,
		}
	}
	return lines
}

// LinesFromOrder adapts order lines, resolving each line's promotion into a
// list and sale price.
func LinesFromOrder(items []domain.OrderLineItem) []SummaryLine {
	lines := make([]SummaryLine, len(items))
	for i, it := range items {
		res := ResolveEffectivePrice(it.Price, it.Promotion)
		line := SummaryLine{
			VariantID: it.VariantID,
			ListPrice: res.ListPrice,
			Quantity:  it.Quantity,
		}
		if res.EffectivePrice < res.ListPrice {
			sale := res.EffectivePrice
			line.SalePrice = &sale
		}
		if it.Promotion != nil {
			line.PromotionCode = it.Promotion.PromotionCode
		}
		lines[i] = line
	}
	return lines
}
