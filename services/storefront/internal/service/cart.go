package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/nongtiensonpro/yellowcat/pkg/errors"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/domain"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/pricing"
)

// AddItemInput holds the parameters for adding to a cart. Guest carts store
// the full line; account carts only send variant and quantity.
type AddItemInput struct {
	VariantID   int64  `json:"variantId" validate:"required,gt=0"`
	ProductID   int64  `json:"productId" validate:"gte=0"`
	ProductName string `json:"productName" validate:"max=255"`
	SKU         string `json:"sku" validate:"max=100"`
	UnitPrice   int64  `json:"unitPrice" validate:"gte=0"`
	SalePrice   *int64 `json:"salePrice" validate:"omitempty,gte=0"`
	Quantity    int    `json:"quantity" validate:"required,gte=1,lte=999"`
	StockLevel  int    `json:"stockLevel" validate:"gte=0"`
	ColorName   string `json:"colorName" validate:"max=100"`
	SizeName    string `json:"sizeName" validate:"max=50"`
}

func (in AddItemInput) line() domain.CartLineItem {
	return domain.CartLineItem{
		VariantID:   in.VariantID,
		ProductID:   in.ProductID,
		ProductName: in.ProductName,
		SKU:         in.SKU,
		UnitPrice:   in.UnitPrice,
		SalePrice:   in.SalePrice,
		Quantity:    in.Quantity,
		StockLevel:  in.StockLevel,
		ColorName:   in.ColorName,
		SizeName:    in.SizeName,
	}
}

// VoucherInput is a voucher chosen at checkout.
type VoucherInput struct {
	Code           string          `json:"code" validate:"required,max=50"`
	Name           string          `json:"name" validate:"max=255"`
	Type           string          `json:"type" validate:"required,oneof=percentage fixed_amount free_shipping"`
	Value          decimal.Decimal `json:"value"`
	DiscountAmount *int64          `json:"discountAmount" validate:"omitempty,gte=0"`
}

// SummaryInput holds the checkout parameters of a cart summary.
type SummaryInput struct {
	// ShippingFee overrides the configured default when set.
	ShippingFee *int64        `json:"shippingFee" validate:"omitempty,gte=0"`
	Voucher     *VoucherInput `json:"voucher" validate:"omitempty"`
}

// CartSummary is a cart together with its order summary.
type CartSummary struct {
	Cart    *domain.Cart         `json:"cart"`
	Summary pricing.OrderSummary `json:"summary"`
}

// OrderDetail is a placed order together with its order summary.
type OrderDetail struct {
	Order   *domain.Order        `json:"order"`
	Summary pricing.OrderSummary `json:"summary"`
}

// ConfirmOutput is the answer to a cart confirmation.
type ConfirmOutput struct {
	Result *domain.ConfirmResult `json:"result"`
	Cart   *domain.Cart          `json:"cart"`
}

// CartService routes cart operations to the guest or account implementation
// depending on who owns the cart.
type CartService struct {
	guest              *GuestCartService
	account            *AccountCartService
	defaultShippingFee int64
}

// NewCartService creates the cart facade.
func NewCartService(guest *GuestCartService, account *AccountCartService, defaultShippingFee int64) *CartService {
	return &CartService{
		guest:              guest,
		account:            account,
		defaultShippingFee: defaultShippingFee,
	}
}

// GetCart returns the owner's cart.
func (s *CartService) GetCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if owner.Mode == domain.ModeAccount {
		return s.account.GetCart(ctx, owner.ID)
	}
	return s.guest.GetCart(ctx, owner.ID)
}

// AddItem adds a variant to the owner's cart.
func (s *CartService) AddItem(ctx context.Context, owner domain.Owner, input AddItemInput) (*domain.Cart, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if input.VariantID <= 0 {
		return nil, apperrors.InvalidInput("variant id is required")
	}
	if owner.Mode == domain.ModeAccount {
		return s.account.AddItem(ctx, owner.ID, input.VariantID, input.Quantity)
	}
	if strings.TrimSpace(input.ProductName) == "" {
		return nil, apperrors.InvalidInput("product name is required for guest carts")
	}
	return s.guest.AddItem(ctx, owner.ID, input.line())
}

// SetQuantity sets the quantity of a line, clamped to its stock.
func (s *CartService) SetQuantity(ctx context.Context, owner domain.Owner, variantID int64, quantity int) (*domain.Cart, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if owner.Mode == domain.ModeAccount {
		return s.account.SetQuantity(ctx, owner.ID, variantID, quantity)
	}
	return s.guest.SetQuantity(ctx, owner.ID, variantID, quantity)
}

// RemoveItem removes a line. Removing an absent variant succeeds.
func (s *CartService) RemoveItem(ctx context.Context, owner domain.Owner, variantID int64) (*domain.Cart, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if owner.Mode == domain.ModeAccount {
		return s.account.RemoveItem(ctx, owner.ID, variantID)
	}
	return s.guest.RemoveItem(ctx, owner.ID, variantID)
}

// Clear empties the owner's cart.
func (s *CartService) Clear(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if owner.Mode == domain.ModeAccount {
		return s.account.Clear(ctx, owner.ID)
	}
	return s.guest.Clear(ctx, owner.ID)
}

// Summary projects the owner's cart into an order summary.
func (s *CartService) Summary(ctx context.Context, owner domain.Owner, input SummaryInput) (*CartSummary, error) {
	cart, err := s.GetCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	shipping := s.defaultShippingFee
	if input.ShippingFee != nil {
		shipping = *input.ShippingFee
	}
	if len(cart.Items) == 0 {
		shipping = 0
	}

	var voucher *domain.VoucherApplication
	if input.Voucher != nil {
		voucher = &domain.VoucherApplication{
			Code:           strings.TrimSpace(input.Voucher.Code),
			Name:           input.Voucher.Name,
			Type:           domain.VoucherType(input.Voucher.Type),
			Value:          input.Voucher.Value,
			DiscountAmount: input.Voucher.DiscountAmount,
		}
	}

	return &CartSummary{
		Cart:    cart,
		Summary: pricing.Project(pricing.LinesFromCart(cart.Items), shipping, voucher),
	}, nil
}

// Confirm turns an account cart into an order. Guests must sign in first.
func (s *CartService) Confirm(ctx context.Context, owner domain.Owner, allowWaitingOrder bool) (*ConfirmOutput, error) {
	if err := requireAccount(owner); err != nil {
		return nil, err
	}
	result, cart, err := s.account.Confirm(ctx, owner.ID, allowWaitingOrder)
	if err != nil {
		return nil, err
	}
	return &ConfirmOutput{Result: result, Cart: cart}, nil
}

// OrderDetail loads an order and projects its summary from the recorded
// promotions and voucher.
func (s *CartService) OrderDetail(ctx context.Context, owner domain.Owner, orderCode string) (*OrderDetail, error) {
	if err := requireAccount(owner); err != nil {
		return nil, err
	}
	orderCode = strings.TrimSpace(orderCode)
	if orderCode == "" {
		return nil, apperrors.InvalidInput("order code is required")
	}
	order, err := s.account.FetchOrder(ctx, orderCode)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{
		Order:   order,
		Summary: pricing.Project(pricing.LinesFromOrder(order.Items), order.ShippingFee, order.Voucher),
	}, nil
}

func validateOwner(owner domain.Owner) error {
	if owner.ID == "" {
		return apperrors.InvalidInput("cart owner is required")
	}
	switch owner.Mode {
	case domain.ModeGuest, domain.ModeAccount:
		return nil
	}
	return apperrors.InvalidInput("unknown cart mode")
}

func requireAccount(owner domain.Owner) error {
	if owner.Mode != domain.ModeAccount || owner.ID == "" {
		return apperrors.Unauthorized("sign in required")
	}
	return nil
}
