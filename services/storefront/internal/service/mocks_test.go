package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/backend"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/domain"
)

// --- Mock guest repository ---

type mockGuestRepo struct {
	mock.Mock
}

func (m *mockGuestRepo) Get(ctx context.Context, guestID string) ([]domain.CartLineItem, error) {
	args := m.Called(ctx, guestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return domain.CloneLines(args.Get(0).([]domain.CartLineItem)), args.Error(1)
}

func (m *mockGuestRepo) Save(ctx context.Context, guestID string, items []domain.CartLineItem) error {
	args := m.Called(ctx, guestID, items)
	return args.Error(0)
}

func (m *mockGuestRepo) Delete(ctx context.Context, guestID string) error {
	args := m.Called(ctx, guestID)
	return args.Error(0)
}

// --- In-memory account cache ---

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]domain.CartLineItem
	sets  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]domain.CartLineItem)}
}

func (c *memoryCache) Get(_ context.Context, id string) ([]domain.CartLineItem, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, ok := c.items[id]
	return domain.CloneLines(items), ok, nil
}

func (c *memoryCache) Set(_ context.Context, id string, items []domain.CartLineItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id] = domain.CloneLines(items)
	c.sets++
	return nil
}

func (c *memoryCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	return nil
}

// --- Mock backend ---

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) FetchCart(ctx context.Context, keycloakID string) ([]domain.CartLineItem, error) {
	args := m.Called(ctx, keycloakID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return domain.CloneLines(args.Get(0).([]domain.CartLineItem)), args.Error(1)
}

func (m *mockBackend) UpdateQuantity(ctx context.Context, req backend.UpdateCartItemRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockBackend) RemoveItem(ctx context.Context, cartItemID int64) error {
	return m.Called(ctx, cartItemID).Error(0)
}

func (m *mockBackend) AddItem(ctx context.Context, req backend.AddCartItemRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockBackend) ConfirmCart(ctx context.Context, req backend.ConfirmCartRequest) (*domain.ConfirmResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConfirmResult), args.Error(1)
}

func (m *mockBackend) FetchOrder(ctx context.Context, orderCode string) (*domain.Order, error) {
	args := m.Called(ctx, orderCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

// --- Recording notifier ---

type notification struct {
	owner domain.Owner
	items []domain.CartLineItem
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) CartChanged(_ context.Context, owner domain.Owner, items []domain.CartLineItem) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{owner: owner, items: items})
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

// --- Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func ptr[T any](v T) *T { return &v }

func serverLine(variantID, cartItemID int64, qty, stock int) domain.CartLineItem {
	return domain.CartLineItem{
		VariantID:   variantID,
		ProductID:   variantID * 100,
		ProductName: "Sản phẩm",
		UnitPrice:   200000,
		Quantity:    qty,
		StockLevel:  stock,
		CartItemID:  ptr(cartItemID),
	}
}
