package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/domain"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/repository"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/store"
)

// GuestCartService keeps guest carts in the guest repository. There is no
// network step: a mutation is loaded, applied and persisted in one go.
type GuestCartService struct {
	repo     repository.GuestCartRepository
	notifier Notifier
	locks    *keyedMutex
	logger   *slog.Logger
}

// NewGuestCartService creates a new guest cart service.
func NewGuestCartService(repo repository.GuestCartRepository, notifier Notifier, logger *slog.Logger) *GuestCartService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &GuestCartService{
		repo:     repo,
		notifier: notifier,
		locks:    newKeyedMutex(),
		logger:   logger,
	}
}

// GetCart returns the saved guest cart.
func (s *GuestCartService) GetCart(ctx context.Context, guestID string) (*domain.Cart, error) {
	items, err := s.repo.Get(ctx, guestID)
	if err != nil {
		return nil, fmt.Errorf("get guest cart: %w", err)
	}
	return &domain.Cart{Mode: domain.ModeGuest, Items: items}, nil
}

// AddItem appends the line or increments an existing one.
func (s *GuestCartService) AddItem(ctx context.Context, guestID string, item domain.CartLineItem) (*domain.Cart, error) {
	return s.mutate(ctx, guestID, "add", func(st *store.Store) {
		st.AddOrIncrement(item)
	})
}

// SetQuantity clamps and stores the quantity of a line.
func (s *GuestCartService) SetQuantity(ctx context.Context, guestID string, variantID int64, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, guestID, "set_quantity", func(st *store.Store) {
		st.SetQuantity(variantID, quantity)
	})
}

// RemoveItem deletes a line. Unknown variants are ignored.
func (s *GuestCartService) RemoveItem(ctx context.Context, guestID string, variantID int64) (*domain.Cart, error) {
	return s.mutate(ctx, guestID, "remove", func(st *store.Store) {
		st.Remove(variantID)
	})
}

// Clear empties the guest cart.
func (s *GuestCartService) Clear(ctx context.Context, guestID string) (*domain.Cart, error) {
	return s.mutate(ctx, guestID, "clear", func(st *store.Store) {
		st.Clear()
	})
}

func (s *GuestCartService) mutate(ctx context.Context, guestID, op string, apply func(*store.Store)) (*domain.Cart, error) {
	unlock := s.locks.Lock(guestID)
	defer unlock()

	items, err := s.repo.Get(ctx, guestID)
	if err != nil {
		observeMutation(domain.ModeGuest, op, resultError)
		return nil, fmt.Errorf("load guest cart: %w", err)
	}

	st := store.New(items)
	var changed []domain.CartLineItem
	unsubscribe := st.Subscribe(func(next []domain.CartLineItem) {
		changed = next
	})
	apply(st)
	unsubscribe()

	if changed == nil {
		observeMutation(domain.ModeGuest, op, resultNoop)
		return &domain.Cart{Mode: domain.ModeGuest, Items: st.Snapshot()}, nil
	}

	if err := s.repo.Save(ctx, guestID, changed); err != nil {
		observeMutation(domain.ModeGuest, op, resultError)
		return nil, fmt.Errorf("save guest cart: %w", err)
	}
	observeMutation(domain.ModeGuest, op, resultChanged)

	s.logger.DebugContext(ctx, "guest cart updated",
		slog.String("guest_id", guestID),
		slog.String("operation", op),
		slog.Int("lines", len(changed)),
	)

	owner := domain.Owner{Mode: domain.ModeGuest, ID: guestID}
	s.notifier.CartChanged(ctx, owner, domain.CloneLines(changed))

	return &domain.Cart{Mode: domain.ModeGuest, Items: changed}, nil
}
