package repository

import (
	"context"

	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/domain"
)

// GuestCartRepository persists guest carts, the server-side stand-in for the
// browser's local storage.
type GuestCartRepository interface {
	// Get returns the lines saved for guestID. A missing or unreadable cart
	// yields an empty slice.
	Get(ctx context.Context, guestID string) ([]domain.CartLineItem, error)

	// Save overwrites the guest cart and refreshes its expiry.
	Save(ctx context.Context, guestID string, items []domain.CartLineItem) error

	// Delete removes the guest cart.
	Delete(ctx context.Context, guestID string) error
}

// AccountCartCache keeps the last backend snapshot of an account cart so it
// can be served when the backend is unreachable.
type AccountCartCache interface {
	// Get returns the cached lines and whether a snapshot existed.
	Get(ctx context.Context, keycloakID string) ([]domain.CartLineItem, bool, error)

	Set(ctx context.Context, keycloakID string, items []domain.CartLineItem) error

	Delete(ctx context.Context, keycloakID string) error
}
