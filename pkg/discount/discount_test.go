package discount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		value    string
		subtotal int64
		shipping int64
		want     Effect
	}{
		{"percentage ten", Percentage, "10", 500000, 0, Effect{ProductDiscount: 50000}},
		{"percentage rounds half up", Percentage, "12.5", 1004, 0, Effect{ProductDiscount: 126}},
		{"percentage over hundred clamped", Percentage, "150", 200000, 30000, Effect{ProductDiscount: 200000}},
		{"percentage negative clamped", Percentage, "-5", 200000, 0, Effect{}},
		{"fixed below subtotal", FixedAmount, "20000", 30000, 0, Effect{ProductDiscount: 20000}},
		{"fixed exceeding subtotal", FixedAmount, "50000", 30000, 0, Effect{ProductDiscount: 30000}},
		{"fixed negative", FixedAmount, "-1", 30000, 0, Effect{}},
		{"free shipping", FreeShipping, "0", 200000, 30000, Effect{ShippingDiscount: 30000}},
		{"free shipping ignores value", FreeShipping, "99", 200000, 30000, Effect{ShippingDiscount: 30000}},
		{"unknown kind", Kind("bogo"), "10", 200000, 30000, Effect{}},
		{"negative subtotal", FixedAmount, "10", -5, 0, Effect{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Compute(tc.kind, decimal.RequireFromString(tc.value), tc.subtotal, tc.shipping)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCompute_NeverExceedsSubtotal(t *testing.T) {
	for _, v := range []int64{0, 1, 50, 99, 100, 101, 1000} {
		for _, sub := range []int64{0, 1, 999, 30000, 500000} {
			e := Compute(Percentage, decimal.NewFromInt(v), sub, 0)
			assert.LessOrEqual(t, e.ProductDiscount, sub)
			e = Compute(FixedAmount, decimal.NewFromInt(v*1000), sub, 0)
			assert.LessOrEqual(t, e.ProductDiscount, sub)
		}
	}
}

func TestApportion(t *testing.T) {
	assert.Equal(t, Effect{ProductDiscount: 40000}, Apportion(Percentage, 40000, 200000, 30000))
	assert.Equal(t, Effect{ProductDiscount: 200000, ShippingDiscount: 30000}, Apportion(FixedAmount, 999999, 200000, 30000))
	assert.Equal(t, Effect{ShippingDiscount: 30000}, Apportion(FreeShipping, 30000, 200000, 30000))
	assert.Equal(t, Effect{ShippingDiscount: 30000, ProductDiscount: 5000}, Apportion(FreeShipping, 35000, 200000, 30000))
	assert.Equal(t, Effect{}, Apportion(FixedAmount, -10, 200000, 30000))
}

func TestEffect_Total(t *testing.T) {
	assert.Equal(t, int64(35), Effect{ProductDiscount: 5, ShippingDiscount: 30}.Total())
}
