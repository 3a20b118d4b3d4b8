package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nongtiensonpro/yellowcat/pkg/logger"
)

// envelopeVersion is bumped when the Event layout changes incompatibly.
const envelopeVersion = 1

// Aggregate names the entity an event describes. Its ID doubles as the
// message key, so events for one aggregate stay ordered on a partition.
type Aggregate struct {
	Type string
	ID   string
}

// Event is the envelope carried by every Yellow Cat message.
type Event struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	AggregateType string            `json:"aggregate_type"`
	AggregateID   string            `json:"aggregate_id"`
	Version       int               `json:"version"`
	OccurredAt    time.Time         `json:"occurred_at"`
	Source        string            `json:"source"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Data          json.RawMessage   `json:"data"`
}

// NewEvent builds an event for agg with data encoded as JSON. The
// correlation id of the request in ctx, if any, is copied onto the event.
func NewEvent(ctx context.Context, eventType string, agg Aggregate, source string, data any) (*Event, error) {
	if eventType == "" {
		return nil, errors.New("event type is required")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s data: %w", eventType, err)
	}

	return &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateType: agg.Type,
		AggregateID:   agg.ID,
		Version:       envelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Source:        source,
		CorrelationID: logger.CorrelationIDFromContext(ctx),
		Data:          raw,
	}, nil
}

// WithMetadata sets a metadata entry and returns e for chaining.
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string, 1)
	}
	e.Metadata[key] = value
	return e
}

// Marshal encodes the envelope.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeData decodes the payload into target.
func (e *Event) DecodeData(target any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s event %s has no data", e.EventType, e.EventID)
	}
	return json.Unmarshal(e.Data, target)
}

// UnmarshalEvent decodes an envelope read off the wire. Envelopes without a
// type or from a newer layout are rejected.
func UnmarshalEvent(b []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}
	if e.EventType == "" {
		return nil, errors.New("decode event envelope: missing event_type")
	}
	if e.Version > envelopeVersion {
		return nil, fmt.Errorf("decode event envelope: unsupported version %d", e.Version)
	}
	return &e, nil
}

// TopicPrefix namespaces every Yellow Cat topic.
const TopicPrefix = "yellowcat"

// Topic returns "yellowcat.<domain>.<action>".
func Topic(domain, action string) string {
	return TopicPrefix + "." + domain + "." + action
}
