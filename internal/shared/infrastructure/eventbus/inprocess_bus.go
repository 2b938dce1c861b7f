package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// InProcessEventBus dispatches published envelopes to local consumers
// before Publish returns. Local mode uses it in place of a broker, so a
// consumer failure surfaces as a publish failure and the outbox retries
// the event with backoff.
type InProcessEventBus struct {
	registry *ConsumerRegistry
	logger   *slog.Logger

	// One dispatch at a time, as with a prefetch-1 queue.
	mu sync.Mutex
}

// NewInProcessEventBus creates a bus without consumers.
func NewInProcessEventBus(logger *slog.Logger) *InProcessEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessEventBus{
		registry: NewConsumerRegistry(logger),
		logger:   logger,
	}
}

// RegisterConsumer binds the consumer's routing patterns.
func (b *InProcessEventBus) RegisterConsumer(consumer EventConsumer) {
	b.registry.Register(consumer)
}

func (b *InProcessEventBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	var event ConsumedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}
	if event.RoutingKey == "" {
		event.RoutingKey = routingKey
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	err := b.registry.Dispatch(ctx, &event)
	b.logger.Debug("event dispatched in process",
		"routing_key", event.RoutingKey,
		"event_id", event.EventID,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err,
	)
	return err
}

func (b *InProcessEventBus) Close() error {
	return nil
}
