package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/nongtiensonpro/yellowcat/pkg/kafka"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/domain"
)

// Kafka event constants for cart change notifications.
const (
	EventTypeCartChanged = "cart.changed"
	AggregateTypeCart    = "cart"
	SourceStorefront     = "storefront-service"

	// MetadataInstanceID names the publishing storefront instance.
	MetadataInstanceID = "instance_id"
)

// TopicCartChanged carries cart.changed events.
var TopicCartChanged = pkgkafka.Topic("cart", "changed")

// CartChangedData is the payload of a cart.changed event.
type CartChangedData struct {
	Mode      domain.CartMode       `json:"mode"`
	OwnerID   string                `json:"owner_id"`
	Items     []domain.CartLineItem `json:"items"`
	ItemCount int                   `json:"item_count"`
}

// Publisher is the subset of *pkgkafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes cart change events to Kafka.
type Producer struct {
	kafka      Publisher
	topic      string
	instanceID string
	logger     *slog.Logger
}

// NewProducer creates a new event producer. An empty topic selects
// TopicCartChanged.
func NewProducer(kafka Publisher, topic, instanceID string, logger *slog.Logger) *Producer {
	if topic == "" {
		topic = TopicCartChanged
	}
	return &Producer{
		kafka:      kafka,
		topic:      topic,
		instanceID: instanceID,
		logger:     logger,
	}
}

// Topic is the topic cart events are published to.
func (p *Producer) Topic() string { return p.topic }

// PublishCartChanged publishes a cart.changed event for owner.
func (p *Producer) PublishCartChanged(ctx context.Context, owner domain.Owner, items []domain.CartLineItem) error {
	cart := domain.Cart{Mode: owner.Mode, Items: items}
	data := CartChangedData{
		Mode:      owner.Mode,
		OwnerID:   owner.ID,
		Items:     items,
		ItemCount: cart.ItemCount(),
	}

	event, err := pkgkafka.NewEvent(ctx, EventTypeCartChanged,
		pkgkafka.Aggregate{Type: AggregateTypeCart, ID: owner.Key()}, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.changed event: %w", err)
	}
	event.WithMetadata(MetadataInstanceID, p.instanceID)

	if err := p.kafka.Publish(ctx, p.topic, event); err != nil {
		return fmt.Errorf("publish cart.changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.changed event",
		slog.String("owner", owner.Key()),
		slog.Int("item_count", data.ItemCount),
	)
	return nil
}
