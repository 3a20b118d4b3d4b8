package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nongtiensonpro/yellowcat/pkg/discount"
	"github.com/nongtiensonpro/yellowcat/pkg/slug"
	"github.com/nongtiensonpro/yellowcat/pkg/validator"
)

// PromotionBasePath is the backend collection of promotions and vouchers.
const PromotionBasePath = "/api/promotions"

// codeSuffixLen is the random tail appended to generated codes.
const codeSuffixLen = 4

var (
	promotionCode = regexp.MustCompile(`^[A-Z0-9_-]{3,50}$`)
	hundred       = decimal.NewFromInt(100)
)

// PromotionForm is what an operator submits to create or edit a promotion.
type PromotionForm struct {
	Code          string          `json:"promotionCode" validate:"max=50"`
	Name          string          `json:"promotionName" validate:"required,max=255"`
	Description   string          `json:"description" validate:"max=1000"`
	Type          discount.Kind   `json:"discountType" validate:"required,oneof=percentage fixed_amount free_shipping"`
	Value         decimal.Decimal `json:"discountValue"`
	MinOrderValue int64           `json:"minimumOrderValue" validate:"gte=0"`
	MaxDiscount   int64           `json:"maximumDiscountValue" validate:"gte=0"`
	StartDate     time.Time       `json:"startDate" validate:"required"`
	EndDate       time.Time       `json:"endDate" validate:"required"`
	UsageLimit    int             `json:"usageLimit" validate:"gte=0"`
	Active        bool            `json:"isActive"`
}

// Promotion is a promotion as stored by the backend.
type Promotion struct {
	ID int64 `json:"id"`
	PromotionForm
	UsedCount int `json:"usedCount"`
}

// Normalize trims the form, upper-cases the code and fills it from the name
// when empty. Free shipping carries no value.
func (f *PromotionForm) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	f.Code = strings.ToUpper(strings.TrimSpace(f.Code))
	if f.Code == "" && f.Name != "" {
		f.Code = slug.Code(f.Name, codeSuffixLen)
	}
	if f.Type == discount.FreeShipping {
		f.Value = decimal.Zero
	}
}

// Validate checks a normalized form. Every failing field is reported.
func (f PromotionForm) Validate() error {
	err := validator.Validate(f)

	if f.Code != "" && !promotionCode.MatchString(f.Code) {
		err = validator.Merge(err, validator.FieldError("promotionCode",
			"must be 3-50 characters of A-Z, 0-9, '_' or '-'"))
	}

	switch f.Type {
	case discount.Percentage:
		if !f.Value.IsPositive() || f.Value.GreaterThan(hundred) {
			err = validator.Merge(err, validator.FieldError("discountValue", "must be greater than 0 and at most 100"))
		}
	case discount.FixedAmount:
		if !f.Value.IsPositive() {
			err = validator.Merge(err, validator.FieldError("discountValue", "must be greater than 0"))
		}
	}

	if !f.StartDate.IsZero() && !f.EndDate.IsZero() && !f.EndDate.After(f.StartDate) {
		err = validator.Merge(err, validator.FieldError("endDate", "must be after startDate"))
	}
	return err
}

// Preview is the deduction a promotion would grant on a sample order.
type Preview struct {
	Eligible bool            `json:"eligible"`
	Reason   string          `json:"reason,omitempty"`
	Effect   discount.Effect `json:"effect"`
	Discount int64           `json:"discount"`
	Total    int64           `json:"total"`
}

// Preview applies the form to a subtotal and shipping fee with the same
// arithmetic the storefront uses, then enforces the minimum order value and
// the discount cap.
func (f PromotionForm) Preview(subtotal, shippingFee int64, at time.Time) Preview {
	subtotal = max(subtotal, 0)
	shippingFee = max(shippingFee, 0)
	p := Preview{Total: subtotal + shippingFee}

	switch {
	case !f.StartDate.IsZero() && at.Before(f.StartDate):
		p.Reason = "promotion has not started"
		return p
	case !f.EndDate.IsZero() && !at.Before(f.EndDate):
		p.Reason = "promotion has ended"
		return p
	case subtotal < f.MinOrderValue:
		p.Reason = "subtotal below minimum order value"
		return p
	}

	effect := discount.Compute(f.Type, f.Value, subtotal, shippingFee)
	if f.MaxDiscount > 0 && f.Type == discount.Percentage {
		effect.ProductDiscount = min(effect.ProductDiscount, f.MaxDiscount)
	}

	p.Eligible = true
	p.Effect = effect
	p.Discount = effect.Total()
	p.Total -= p.Discount
	return p
}
