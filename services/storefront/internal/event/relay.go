package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/nongtiensonpro/yellowcat/pkg/kafka"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/domain"
)

// Relay forwards cart.changed events published by other storefront
// instances into the local hub.
type Relay struct {
	hub        *Hub
	instanceID string
	logger     *slog.Logger
}

// NewRelay creates a relay for the instance named instanceID.
func NewRelay(hub *Hub, instanceID string, logger *slog.Logger) *Relay {
	return &Relay{hub: hub, instanceID: instanceID, logger: logger}
}

// Handle is a pkgkafka.Handler. Events from this instance were already
// delivered locally and are skipped.
func (r *Relay) Handle(ctx context.Context, event *pkgkafka.Event) error {
	if event.EventType != EventTypeCartChanged {
		return nil
	}
	if event.Metadata[MetadataInstanceID] == r.instanceID {
		return nil
	}

	var data CartChangedData
	if err := event.DecodeData(&data); err != nil {
		return fmt.Errorf("decode cart.changed data: %w", err)
	}
	owner, ok := domain.ParseOwnerKey(event.AggregateID)
	if !ok {
		owner = domain.Owner{Mode: data.Mode, ID: data.OwnerID}
	}
	if owner.ID == "" {
		r.logger.WarnContext(ctx, "cart.changed event without owner",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	n := r.hub.Publish(owner, data.Items)
	r.logger.DebugContext(ctx, "relayed cart.changed event",
		slog.String("owner", owner.Key()),
		slog.String("from_instance", event.Metadata[MetadataInstanceID]),
		slog.Int("subscribers", n),
	)
	return nil
}
