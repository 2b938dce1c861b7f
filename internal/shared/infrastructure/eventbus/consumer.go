package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/coachbook/internal/shared/domain"
	"github.com/felixgeelhaar/coachbook/pkg/observability"
)

// EventConsumer handles specific event types.
type EventConsumer interface {
	// EventTypes returns the routing keys this consumer handles,
	// e.g. ["booking.session.committed"].
	EventTypes() []string

	// Handle processes the event.
	Handle(ctx context.Context, event *ConsumedEvent) error
}

// ConsumedEvent is the envelope every published event travels in.
type ConsumedEvent struct {
	EventID       uuid.UUID            `json:"event_id"`
	AggregateID   uuid.UUID            `json:"aggregate_id"`
	AggregateType string               `json:"aggregate_type"`
	RoutingKey    string               `json:"routing_key"`
	OccurredAt    time.Time            `json:"occurred_at"`
	Payload       json.RawMessage      `json:"payload"`
	Metadata      domain.EventMetadata `json:"metadata"`
}

// DecodePayload unmarshals the event payload into v.
func (e *ConsumedEvent) DecodePayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// TraceContext returns ctx carrying the correlation and actor IDs the event
// was published with, so consumer logs join the originating request.
func (e *ConsumedEvent) TraceContext(ctx context.Context) context.Context {
	if e.Metadata.CorrelationID != uuid.Nil {
		ctx = observability.WithCorrelationID(ctx, e.Metadata.CorrelationID)
	}
	if e.Metadata.ActorID != uuid.Nil {
		ctx = observability.WithActorID(ctx, e.Metadata.ActorID)
	}
	return ctx
}

// Consumer defines the interface for consuming events from a message broker.
type Consumer interface {
	// Start begins consuming messages. This is a blocking call.
	Start(ctx context.Context) error

	// RegisterConsumer registers an event consumer.
	RegisterConsumer(consumer EventConsumer)

	// Close closes the consumer connection.
	Close() error
}
