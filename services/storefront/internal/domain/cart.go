package domain

import "strings"

// CartLineItem is one purchasable variant in a cart. Amounts are whole dong.
type CartLineItem struct {
	VariantID   int64  `json:"variantId"`
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	SKU         string `json:"sku"`
	UnitPrice   int64  `json:"unitPrice"`
	SalePrice   *int64 `json:"salePrice,omitempty"`
	Quantity    int    `json:"quantity"`
	StockLevel  int    `json:"stockLevel"`
	ColorName   string `json:"colorName,omitempty"`
	SizeName    string `json:"sizeName,omitempty"`
	// CartItemID is set only for server-persisted carts.
	CartItemID *int64 `json:"cartItemId,omitempty"`
}

// Normalize drops a sale price that is negative or not below the unit price
// and raises a non-positive quantity to 1.
func (l *CartLineItem) Normalize() {
	if l.SalePrice != nil && (*l.SalePrice < 0 || *l.SalePrice >= l.UnitPrice) {
		l.SalePrice = nil
	}
	if l.UnitPrice < 0 {
		l.UnitPrice = 0
	}
	if l.StockLevel < 0 {
		l.StockLevel = 0
	}
	if l.Quantity < 1 {
		l.Quantity = 1
	}
}

// Clone returns a deep copy of the line.
func (l CartLineItem) Clone() CartLineItem {
	if l.SalePrice != nil {
		v := *l.SalePrice
		l.SalePrice = &v
	}
	if l.CartItemID != nil {
		v := *l.CartItemID
		l.CartItemID = &v
	}
	return l
}

// ClampQuantity bounds q into [1, stock]. With no stock information
// (stock <= 0) only the lower bound applies.
func ClampQuantity(q, stock int) int {
	if stock >= 1 && q > stock {
		q = stock
	}
	if q < 1 {
		q = 1
	}
	return q
}

// CloneLines deep-copies a slice of lines. A nil input yields an empty slice.
func CloneLines(lines []CartLineItem) []CartLineItem {
	out := make([]CartLineItem, len(lines))
	for i, l := range lines {
		out[i] = l.Clone()
	}
	return out
}

// FindLine returns the index of the line holding variantID, or -1.
func FindLine(lines []CartLineItem, variantID int64) int {
	for i := range lines {
		if lines[i].VariantID == variantID {
			return i
		}
	}
	return -1
}

// CartMode tells whether a cart lives in the guest store or on the backend.
type CartMode string

const (
	ModeGuest   CartMode = "guest"
	ModeAccount CartMode = "account"
)

// Owner identifies whose cart a request operates on.
type Owner struct {
	Mode CartMode
	// ID is the guest UUID or the account's keycloak id.
	ID string
}

// Key is the owner identity used for locks, cache keys and notifications.
func (o Owner) Key() string {
	return string(o.Mode) + ":" + o.ID
}

// ParseOwnerKey reverses Key.
func ParseOwnerKey(key string) (Owner, bool) {
	mode, id, ok := strings.Cut(key, ":")
	if !ok || id == "" {
		return Owner{}, false
	}
	switch CartMode(mode) {
	case ModeGuest, ModeAccount:
		return Owner{Mode: CartMode(mode), ID: id}, true
	}
	return Owner{}, false
}

// Cart is the snapshot returned to views.
type Cart struct {
	Mode  CartMode       `json:"mode"`
	Items []CartLineItem `json:"items"`
	// Stale is set when the backend was unreachable and a cached copy is served.
	Stale bool `json:"stale"`
}

// ItemCount sums quantities across lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Items {
		n += l.Quantity
	}
	return n
}
