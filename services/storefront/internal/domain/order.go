package domain

// Order is the backend's view of a placed order, as needed by the order
// detail summary.
type Order struct {
	OrderCode   string              `json:"orderCode"`
	Status      string              `json:"orderStatus"`
	ShippingFee int64               `json:"shippingFee"`
	Items       []OrderLineItem     `json:"items"`
	Voucher     *VoucherApplication `json:"voucher,omitempty"`
}

// OrderLineItem is one line of a placed order. Price is the unit price the
// customer paid before the line promotion was subtracted.
type OrderLineItem struct {
	VariantID   int64                 `json:"variantId"`
	ProductName string                `json:"productName"`
	ColorName   string                `json:"colorName,omitempty"`
	SizeName    string                `json:"sizeName,omitempty"`
	Price       int64                 `json:"price"`
	Quantity    int                   `json:"quantity"`
	Promotion   *PromotionApplication `json:"promotion,omitempty"`
}

// ConfirmResult is the backend's answer to a cart confirmation.
type ConfirmResult struct {
	CanProceed      bool   `json:"canProceed"`
	WaitingForStock bool   `json:"waitingForStock"`
	OrderStatus     string `json:"orderStatus,omitempty"`
	Message         string `json:"message,omitempty"`
}
