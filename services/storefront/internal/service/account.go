package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/nongtiensonpro/yellowcat/pkg/errors"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/backend"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/domain"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/repository"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/store"
)

// CartBackend is the part of the commerce backend the account cart needs.
type CartBackend interface {
	FetchCart(ctx context.Context, keycloakID string) ([]domain.CartLineItem, error)
	UpdateQuantity(ctx context.Context, req backend.UpdateCartItemRequest) error
	RemoveItem(ctx context.Context, cartItemID int64) error
	AddItem(ctx context.Context, req backend.AddCartItemRequest) error
	ConfirmCart(ctx context.Context, req backend.ConfirmCartRequest) (*domain.ConfirmResult, error)
	FetchOrder(ctx context.Context, orderCode string) (*domain.Order, error)
}

// AccountCartService manages carts that live on the backend. Every mutation
// is sent remotely and followed by a full refetch that replaces the local
// Store snapshot; nothing is applied optimistically. Mutations of one account
// are serialized.
type AccountCartService struct {
	backend  CartBackend
	cache    repository.AccountCartCache
	notifier Notifier
	locks    *keyedMutex
	logger   *slog.Logger
}

// NewAccountCartService creates a new account cart service.
func NewAccountCartService(b CartBackend, cache repository.AccountCartCache, notifier Notifier, logger *slog.Logger) *AccountCartService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AccountCartService{
		backend:  b,
		cache:    cache,
		notifier: notifier,
		locks:    newKeyedMutex(),
		logger:   logger,
	}
}

// GetCart fetches the account cart. When the backend cannot be reached and a
// cached snapshot exists, the snapshot is returned marked stale.
func (s *AccountCartService) GetCart(ctx context.Context, keycloakID string) (*domain.Cart, error) {
	items, err := s.backend.FetchCart(ctx, keycloakID)
	if err != nil {
		if cart, ok := s.staleCart(ctx, keycloakID, err); ok {
			return cart, nil
		}
		return nil, err
	}
	s.storeSnapshot(ctx, keycloakID, items)
	return &domain.Cart{Mode: domain.ModeAccount, Items: items}, nil
}

// AddItem adds quantity units of a variant. When the variant is already in
// the cart the request is reduced so the line stays within its stock.
func (s *AccountCartService) AddItem(ctx context.Context, keycloakID string, variantID int64, quantity int) (*domain.Cart, error) {
	const op = "add"
	if quantity < 1 {
		quantity = 1
	}

	unlock := s.locks.Lock(keycloakID)
	defer unlock()

	st, err := s.snapshot(ctx, keycloakID)
	if err != nil {
		observeMutation(domain.ModeAccount, op, resultError)
		return nil, err
	}
	if line, ok := st.Get(variantID); ok && line.StockLevel >= 1 {
		room := line.StockLevel - line.Quantity
		if room < 1 {
			observeMutation(domain.ModeAccount, op, resultNoop)
			return accountCart(st), nil
		}
		quantity = min(quantity, room)
	}

	err = s.backend.AddItem(ctx, backend.AddCartItemRequest{
		KeycloakID: keycloakID,
		VariantID:  variantID,
		Quantity:   quantity,
	})
	return s.afterMutation(ctx, keycloakID, op, st, err)
}

// SetQuantity clamps quantity into [1, stock] and sends it. Unknown lines,
// lines without stock and unchanged quantities make no remote call.
func (s *AccountCartService) SetQuantity(ctx context.Context, keycloakID string, variantID int64, quantity int) (*domain.Cart, error) {
	const op = "set_quantity"

	unlock := s.locks.Lock(keycloakID)
	defer unlock()

	st, err := s.snapshot(ctx, keycloakID)
	if err != nil {
		observeMutation(domain.ModeAccount, op, resultError)
		return nil, err
	}
	line, ok := st.Get(variantID)
	if !ok || line.StockLevel <= 0 {
		observeMutation(domain.ModeAccount, op, resultNoop)
		return accountCart(st), nil
	}
	quantity = domain.ClampQuantity(quantity, line.StockLevel)
	if quantity == line.Quantity {
		observeMutation(domain.ModeAccount, op, resultNoop)
		return accountCart(st), nil
	}

	err = s.backend.UpdateQuantity(ctx, backend.UpdateCartItemRequest{
		KeycloakID: keycloakID,
		VariantID:  variantID,
		CartItemID: line.CartItemID,
		Quantity:   quantity,
	})
	return s.afterMutation(ctx, keycloakID, op, st, err)
}

// RemoveItem deletes the line of a variant. A variant that is not in the
// cart is a no-op.
func (s *AccountCartService) RemoveItem(ctx context.Context, keycloakID string, variantID int64) (*domain.Cart, error) {
	const op = "remove"

	unlock := s.locks.Lock(keycloakID)
	defer unlock()

	st, err := s.snapshot(ctx, keycloakID)
	if err != nil {
		observeMutation(domain.ModeAccount, op, resultError)
		return nil, err
	}
	line, ok := st.Get(variantID)
	if !ok {
		observeMutation(domain.ModeAccount, op, resultNoop)
		return accountCart(st), nil
	}
	if line.CartItemID == nil {
		observeMutation(domain.ModeAccount, op, resultError)
		return nil, apperrors.Conflict(fmt.Sprintf("cart line for variant %d has no server id", variantID))
	}

	err = s.backend.RemoveItem(ctx, *line.CartItemID)
	return s.afterMutation(ctx, keycloakID, op, st, err)
}

// Clear removes every line one by one. The first failure stops the loop; the
// cart is refetched either way.
func (s *AccountCartService) Clear(ctx context.Context, keycloakID string) (*domain.Cart, error) {
	const op = "clear"

	unlock := s.locks.Lock(keycloakID)
	defer unlock()

	current, err := s.backend.FetchCart(ctx, keycloakID)
	if err != nil {
		observeMutation(domain.ModeAccount, op, resultError)
		return nil, err
	}
	st := store.New(current)
	if st.Len() == 0 {
		observeMutation(domain.ModeAccount, op, resultNoop)
		s.storeSnapshot(ctx, keycloakID, current)
		return accountCart(st), nil
	}

	var removeErr error
	for _, line := range current {
		if line.CartItemID == nil {
			continue
		}
		if removeErr = s.backend.RemoveItem(ctx, *line.CartItemID); removeErr != nil {
			break
		}
	}
	if removeErr != nil {
		observeMutation(domain.ModeAccount, op, resultError)
		if _, err := s.refresh(ctx, keycloakID); err != nil {
			s.logger.ErrorContext(ctx, "failed to refetch cart after partial clear",
				slog.String("keycloak_id", keycloakID),
				slog.String("error", err.Error()),
			)
		}
		return nil, removeErr
	}
	return s.afterMutation(ctx, keycloakID, op, st, nil)
}

// Confirm sends the current backend cart for confirmation. When the backend
// accepts it the cart is refetched, which reads back empty.
func (s *AccountCartService) Confirm(ctx context.Context, keycloakID string, allowWaitingOrder bool) (*domain.ConfirmResult, *domain.Cart, error) {
	unlock := s.locks.Lock(keycloakID)
	defer unlock()

	current, err := s.backend.FetchCart(ctx, keycloakID)
	if err != nil {
		return nil, nil, err
	}
	st := store.New(current)
	if st.Len() == 0 {
		return nil, nil, apperrors.InvalidInput("cart is empty")
	}

	products := make([]backend.ConfirmProduct, len(current))
	for i, line := range current {
		products[i] = backend.ConfirmProduct{VariantID: line.VariantID, Quantity: line.Quantity}
	}

	result, err := s.backend.ConfirmCart(ctx, backend.ConfirmCartRequest{
		KeycloakID:        keycloakID,
		AllowWaitingOrder: allowWaitingOrder,
		Products:          products,
	})
	if err != nil {
		observeMutation(domain.ModeAccount, "confirm", resultError)
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "cart confirmation answered",
		slog.String("keycloak_id", keycloakID),
		slog.Bool("can_proceed", result.CanProceed),
		slog.Bool("waiting_for_stock", result.WaitingForStock),
		slog.String("order_status", result.OrderStatus),
	)

	if !result.CanProceed {
		observeMutation(domain.ModeAccount, "confirm", resultNoop)
		return result, accountCart(st), nil
	}

	cart, err := s.afterMutation(ctx, keycloakID, "confirm", st, nil)
	if err != nil {
		return nil, nil, err
	}
	return result, cart, nil
}

// FetchOrder loads an order for the order detail view.
func (s *AccountCartService) FetchOrder(ctx context.Context, orderCode string) (*domain.Order, error) {
	return s.backend.FetchOrder(ctx, orderCode)
}

// afterMutation finishes a remote mutation. On failure the error is returned
// and the cached snapshot is left alone. On success the refetched cart
// replaces the contents of st, whose listener caches and announces it.
func (s *AccountCartService) afterMutation(ctx context.Context, keycloakID, op string, st *store.Store, mutationErr error) (*domain.Cart, error) {
	if mutationErr != nil {
		observeMutation(domain.ModeAccount, op, resultError)
		s.logger.WarnContext(ctx, "account cart mutation failed",
			slog.String("keycloak_id", keycloakID),
			slog.String("operation", op),
			slog.String("error", mutationErr.Error()),
		)
		return nil, mutationErr
	}
	observeMutation(domain.ModeAccount, op, resultChanged)

	items, err := s.backend.FetchCart(ctx, keycloakID)
	if err != nil {
		// The mutation went through but the new state is unknown.
		if delErr := s.cache.Delete(ctx, keycloakID); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to drop outdated cart cache",
				slog.String("keycloak_id", keycloakID),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("refetch cart after %s: %w", op, err)
	}

	owner := domain.Owner{Mode: domain.ModeAccount, ID: keycloakID}
	unsubscribe := st.Subscribe(func(next []domain.CartLineItem) {
		s.storeSnapshot(ctx, keycloakID, next)
		s.notifier.CartChanged(ctx, owner, next)
	})
	st.ReplaceAll(items)
	unsubscribe()
	return accountCart(st), nil
}

func accountCart(st *store.Store) *domain.Cart {
	return &domain.Cart{Mode: domain.ModeAccount, Items: st.Snapshot()}
}

func (s *AccountCartService) refresh(ctx context.Context, keycloakID string) (*domain.Cart, error) {
	items, err := s.backend.FetchCart(ctx, keycloakID)
	if err != nil {
		return nil, err
	}
	s.storeSnapshot(ctx, keycloakID, items)
	return &domain.Cart{Mode: domain.ModeAccount, Items: items}, nil
}

// snapshot loads the last known cart into a Store, from the cache when
// present and from the backend otherwise.
func (s *AccountCartService) snapshot(ctx context.Context, keycloakID string) (*store.Store, error) {
	items, ok, err := s.cache.Get(ctx, keycloakID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read cart cache",
			slog.String("keycloak_id", keycloakID),
			slog.String("error", err.Error()),
		)
	}
	if !ok {
		cart, err := s.refresh(ctx, keycloakID)
		if err != nil {
			return nil, err
		}
		items = cart.Items
	}
	return store.New(items), nil
}

func (s *AccountCartService) storeSnapshot(ctx context.Context, keycloakID string, items []domain.CartLineItem) {
	if err := s.cache.Set(ctx, keycloakID, items); err != nil {
		s.logger.ErrorContext(ctx, "failed to cache cart snapshot",
			slog.String("keycloak_id", keycloakID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *AccountCartService) staleCart(ctx context.Context, keycloakID string, cause error) (*domain.Cart, bool) {
	if !errors.Is(cause, apperrors.ErrServiceUnavail) && !errors.Is(cause, apperrors.ErrBadGateway) {
		return nil, false
	}
	items, ok, err := s.cache.Get(ctx, keycloakID)
	if err != nil || !ok {
		return nil, false
	}
	s.logger.WarnContext(ctx, "backend unavailable, serving cached cart",
		slog.String("keycloak_id", keycloakID),
		slog.String("error", cause.Error()),
	)
	return &domain.Cart{Mode: domain.ModeAccount, Items: items, Stale: true}, true
}
