package validator

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartLineForm struct {
	VariantID int    `json:"variantId" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=99"`
	GuestID   string `json:"guestId" validate:"omitempty,uuid"`
}

type promotionForm struct {
	Code     string `json:"code" validate:"required,min=3,max=20"`
	Type     string `json:"discountType" validate:"oneof=PERCENT AMOUNT"`
	Contact  string `json:"contact" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,numeric"`
	Landing  string `json:"landingUrl" validate:"omitempty,url"`
	Internal string `json:"-" validate:"max=2"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	return ve.Fields()
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  map[string]string
	}{
		{
			name:  "valid cart line",
			input: cartLineForm{VariantID: 7, Quantity: 2, GuestID: "550e8400-e29b-41d4-a716-446655440000"},
		},
		{
			name:  "cart line bounds",
			input: cartLineForm{Quantity: 100, GuestID: "g-1"},
			want: map[string]string{
				"variantId": "is required",
				"quantity":  "must be less than or equal to 99",
				"guestId":   "must be a valid UUID",
			},
		},
		{
			name:  "zero quantity",
			input: cartLineForm{VariantID: 1},
			want:  map[string]string{"quantity": "must be greater than or equal to 1"},
		},
		{
			name:  "valid promotion",
			input: promotionForm{Code: "TET2025", Type: "PERCENT"},
		},
		{
			name: "promotion messages",
			input: promotionForm{
				Code: "AB", Type: "FREE", Contact: "nope", Phone: "09x",
				Landing: "::", Internal: "long",
			},
			want: map[string]string{
				"code":         "must be at least 3 characters",
				"discountType": "must be one of: PERCENT AMOUNT",
				"contact":      "must be a valid email address",
				"phone":        "must contain only digits",
				"landingUrl":   "must be a valid URL",
				"Internal":     "must be at most 2 characters",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, fieldsOf(t, err))
		})
	}
}

func TestValidationError_ErrorIsSorted(t *testing.T) {
	err := Validate(cartLineForm{})
	assert.Equal(t,
		"field 'quantity' must be greater than or equal to 1; field 'variantId' is required",
		err.Error())
}

func TestValidateMap(t *testing.T) {
	rules := map[string]string{"name": "required,max=255", "description": "omitempty,max=10"}

	assert.NoError(t, ValidateMap(map[string]any{"name": "Đen", "extra": 42}, rules))

	err := ValidateMap(map[string]any{"name": nil, "description": strings.Repeat("x", 11)}, rules)
	assert.Equal(t, map[string]string{
		"name":        "is required",
		"description": "must be at most 10 characters",
	}, fieldsOf(t, err))
}

func TestFieldErrorAndMerge(t *testing.T) {
	end := FieldError("endDate", "must be after startDate")
	assert.Equal(t, "field 'endDate' must be after startDate", end.Error())

	assert.NoError(t, Merge(nil, nil))
	assert.Same(t, end, Merge(end, nil))
	assert.Same(t, end, Merge(nil, end))

	merged := Merge(Validate(promotionForm{Code: "TET", Type: "PERCENT", Internal: "xyz"}), end)
	assert.Equal(t, map[string]string{
		"Internal": "must be at most 2 characters",
		"endDate":  "must be after startDate",
	}, fieldsOf(t, merged))

	first := FieldError("value", "must be at most 100")
	assert.Equal(t, "must be at most 100", fieldsOf(t, Merge(first, FieldError("value", "is required")))["value"])
}

type skuForm struct {
	SKU string `json:"sku" validate:"upper_sku"`
}

func TestRegister(t *testing.T) {
	require.NoError(t, Register("upper_sku", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == strings.ToUpper(s)
	}))

	assert.NoError(t, Validate(skuForm{SKU: "YC-TEE-M"}))
	assert.Equal(t, "failed on 'upper_sku' validation", fieldsOf(t, Validate(skuForm{SKU: "yc-tee"}))["sku"])
}
