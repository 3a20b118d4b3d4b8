package service

import (
	"context"

	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/domain"
)

// Notifier is told about every effective cart change so open views can
// resynchronize. Implementations must not block and handle their own errors.
type Notifier interface {
	CartChanged(ctx context.Context, owner domain.Owner, items []domain.CartLineItem)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) CartChanged(context.Context, domain.Owner, []domain.CartLineItem) {}
