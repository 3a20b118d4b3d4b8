package event

import (
	"context"
	"log/slog"

	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/domain"
)

// Dispatcher announces cart changes to local views and, when a producer is
// configured, to the other instances.
type Dispatcher struct {
	hub      *Hub
	producer *Producer
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. producer may be nil.
func NewDispatcher(hub *Hub, producer *Producer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{hub: hub, producer: producer, logger: logger}
}

// CartChanged delivers the snapshot locally and publishes it. Publish
// failures are logged only.
func (d *Dispatcher) CartChanged(ctx context.Context, owner domain.Owner, items []domain.CartLineItem) {
	d.hub.Publish(owner, items)

	if d.producer == nil {
		return
	}
	if err := d.producer.PublishCartChanged(ctx, owner, items); err != nil {
		d.logger.ErrorContext(ctx, "failed to publish cart.changed event",
			slog.String("owner", owner.Key()),
			slog.String("error", err.Error()),
		)
	}
}
