package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrConsumerRunning is returned by Start when the consumer is already
// draining its queue.
var ErrConsumerRunning = errors.New("consumer already running")

var _ Consumer = (*RabbitMQConsumer)(nil)

// RabbitMQConsumerConfig configures the worker's queue.
type RabbitMQConsumerConfig struct {
	URL       string
	QueueName string
	Exchange  string
	// Prefetch is the number of unacknowledged deliveries in flight.
	Prefetch int
	Logger   *slog.Logger
}

// RabbitMQConsumer drains a durable queue bound to the patterns of its
// registered consumers. Events that fail twice are rejected into the
// queue's dead-letter exchange instead of being dropped.
type RabbitMQConsumer struct {
	cfg      RabbitMQConsumerConfig
	conn     *amqp.Connection
	channel  *amqp.Channel
	registry *ConsumerRegistry
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// DeadLetterExchange names the fanout exchange rejected events go to.
func DeadLetterExchange(exchange string) string {
	return exchange + ".dlx"
}

// DeadLetterQueue names the queue holding a queue's rejected events.
func DeadLetterQueue(queue string) string {
	return queue + ".dead"
}

// NewRabbitMQConsumer connects and declares the queue together with its
// dead-letter exchange and queue.
func NewRabbitMQConsumer(cfg RabbitMQConsumerConfig, registry *ConsumerRegistry) (*RabbitMQConsumer, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.QueueName == "" {
		cfg.QueueName = DefaultConsumerQueueName
	}
	if cfg.Exchange == "" {
		cfg.Exchange = ExchangeName
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if registry == nil {
		registry = NewConsumerRegistry(cfg.Logger)
	}

	conn, ch, err := dialExchange(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, err
	}
	if err := declareQueues(ch, cfg); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	cfg.Logger.Info("RabbitMQ consumer connected",
		"queue", cfg.QueueName,
		"exchange", cfg.Exchange,
		"dead_letter_queue", DeadLetterQueue(cfg.QueueName),
	)

	return &RabbitMQConsumer{
		cfg:      cfg,
		conn:     conn,
		channel:  ch,
		registry: registry,
		logger:   cfg.Logger,
		done:     make(chan struct{}),
	}, nil
}

func declareQueues(ch *amqp.Channel, cfg RabbitMQConsumerConfig) error {
	dlx := DeadLetterExchange(cfg.Exchange)
	if err := ch.ExchangeDeclare(dlx, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter exchange: %w", err)
	}
	dead := DeadLetterQueue(cfg.QueueName)
	if _, err := ch.QueueDeclare(dead, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter queue: %w", err)
	}
	if err := ch.QueueBind(dead, "", dlx, false, nil); err != nil {
		return fmt.Errorf("failed to bind dead-letter queue: %w", err)
	}

	args := amqp.Table{"x-dead-letter-exchange": dlx}
	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	return nil
}

// RegisterConsumer adds the consumer and binds its patterns to the queue.
func (c *RabbitMQConsumer) RegisterConsumer(consumer EventConsumer) {
	c.registry.Register(consumer)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pattern := range consumer.EventTypes() {
		if err := c.channel.QueueBind(c.cfg.QueueName, pattern, c.cfg.Exchange, false, nil); err != nil {
			c.logger.Error("failed to bind queue", "pattern", pattern, "error", err)
			continue
		}
		c.logger.Debug("bound queue", "queue", c.cfg.QueueName, "pattern", pattern)
	}
}

// Start consumes until ctx is cancelled or Close is called.
func (c *RabbitMQConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrConsumerRunning
	}
	c.running = true
	c.mu.Unlock()

	if err := c.channel.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	deliveries, err := c.channel.Consume(c.cfg.QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	c.logger.Info("consuming events", "queue", c.cfg.QueueName, "prefetch", c.cfg.Prefetch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed by broker")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *RabbitMQConsumer) handle(ctx context.Context, d amqp.Delivery) {
	event, err := decodeDelivery(d)
	if err == nil {
		start := time.Now()
		err = c.registry.Dispatch(ctx, event)
		c.logger.Debug("event dispatched",
			"routing_key", event.RoutingKey,
			"event_id", event.EventID,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
	}

	outcome := settle(err, d.Redelivered)
	if outcome != outcomeAck {
		c.logger.Error("failed to consume event",
			"routing_key", d.RoutingKey,
			"message_id", d.MessageId,
			"redelivered", d.Redelivered,
			"outcome", outcome.String(),
			"error", err,
		)
	}

	var settleErr error
	switch outcome {
	case outcomeAck:
		settleErr = d.Ack(false)
	case outcomeRetry:
		settleErr = d.Nack(false, true)
	case outcomeDeadLetter:
		settleErr = d.Nack(false, false)
	}
	if settleErr != nil {
		c.logger.Warn("failed to settle delivery", "message_id", d.MessageId, "error", settleErr)
	}
}

// Close stops Start and closes the channel and connection.
func (c *RabbitMQConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	c.running = false

	if err := c.channel.Close(); err != nil {
		c.logger.Warn("error closing channel", "error", err)
	}
	if err := c.conn.Close(); err != nil {
		return err
	}
	c.logger.Info("RabbitMQ consumer closed")
	return nil
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRetry
	outcomeDeadLetter
)

func (o outcome) String() string {
	switch o {
	case outcomeRetry:
		return "retry"
	case outcomeDeadLetter:
		return "dead_letter"
	default:
		return "ack"
	}
}

var errUndecodable = errors.New("undecodable envelope")

// settle decides what happens to a delivery: handled events are acked,
// failures are retried once, then rejected to the dead-letter exchange.
// Undecodable envelopes never succeed and are rejected at once.
func settle(err error, redelivered bool) outcome {
	switch {
	case err == nil:
		return outcomeAck
	case errors.Is(err, errUndecodable), redelivered:
		return outcomeDeadLetter
	default:
		return outcomeRetry
	}
}

// decodeDelivery reads the envelope, filling gaps from the AMQP properties
// the publisher stamps.
func decodeDelivery(d amqp.Delivery) (*ConsumedEvent, error) {
	event := &ConsumedEvent{}
	if err := json.Unmarshal(d.Body, event); err != nil {
		return nil, fmt.Errorf("%w: %w", errUndecodable, err)
	}
	if event.RoutingKey == "" {
		event.RoutingKey = d.RoutingKey
	}
	if event.EventID == uuid.Nil {
		if id, err := uuid.Parse(d.MessageId); err == nil {
			event.EventID = id
		}
	}
	if event.Metadata.CorrelationID == uuid.Nil {
		if id, err := uuid.Parse(d.CorrelationId); err == nil {
			event.Metadata.CorrelationID = id
		}
	}
	if event.AggregateType == "" {
		event.AggregateType = d.Type
	}
	if event.OccurredAt.IsZero() && !d.Timestamp.IsZero() {
		event.OccurredAt = d.Timestamp
	}
	return event, nil
}
