package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/coachbook/internal/shared/domain"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/convert"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/eventbus"
)

// ProcessorConfig holds configuration for the outbox processor.
type ProcessorConfig struct {
	PollInterval     time.Duration
	BatchSize        int
	MaxRetries       int
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
}

// DefaultProcessorConfig returns sensible defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval:     100 * time.Millisecond,
		BatchSize:        100,
		MaxRetries:       5,
		RetryBackoffBase: 1 * time.Second,
		RetryBackoffMax:  1 * time.Minute,
	}
}

// Processor polls the outbox and publishes events to the message broker.
type Processor struct {
	repo      Repository
	publisher eventbus.Publisher
	config    ProcessorConfig
	logger    *slog.Logger

	wg       sync.WaitGroup
	stopChan chan struct{}
	running  bool
	mu       sync.Mutex

	statsMu sync.Mutex
	stats   Stats
}

// NewProcessor creates a new outbox processor.
func NewProcessor(repo Repository, publisher eventbus.Publisher, config ProcessorConfig, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		repo:      repo,
		publisher: publisher,
		config:    config,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the polling loop in a goroutine.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopChan = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(ctx)

	p.logger.Info("outbox processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize,
	)

	return nil
}

// Stop gracefully stops the processor.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("outbox processor stopped")
}

// IsRunning returns true if the processor is running.
func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error("failed to process outbox batch", "error", err)
			}
		}
	}
}

func (p *Processor) processBatch(ctx context.Context) error {
	messages, err := p.repo.GetUnpublished(ctx, p.config.BatchSize)
	if err != nil {
		p.recordError(err)
		return err
	}

	p.recordProcessed(messages)

	for _, msg := range messages {
		p.deliver(ctx, msg)
	}
	return nil
}

// deliver publishes one message and records the outcome. A message whose
// envelope cannot be built is dead-lettered at once; retrying cannot fix it.
func (p *Processor) deliver(ctx context.Context, msg *Message) {
	body, err := msg.Envelope()
	if err != nil {
		p.deadLetter(ctx, msg, fmt.Errorf("invalid envelope: %w", err))
		return
	}

	if err := p.publisher.Publish(ctx, msg.RoutingKey, body); err != nil {
		if errors.Is(err, eventbus.ErrInvalidEnvelope) {
			p.deadLetter(ctx, msg, err)
			return
		}
		meta := messageMetadata(msg)
		p.logger.Warn("failed to publish message",
			"id", msg.ID,
			"routing_key", msg.RoutingKey,
			"event_id", msg.EventID,
			"aggregate_id", msg.AggregateID,
			"correlation_id", meta.CorrelationID,
			"actor_id", meta.ActorID,
			"retry_count", msg.RetryCount,
			"error", err,
		)
		if p.shouldDeadLetter(msg) {
			p.deadLetter(ctx, msg, err)
			return
		}
		p.recordFailed(err)
		nextRetryAt := time.Now().Add(p.retryBackoff(msg.RetryCount + 1))
		if markErr := p.repo.MarkFailed(ctx, msg.ID, err.Error(), nextRetryAt); markErr != nil {
			p.logger.Error("failed to mark message as failed", "id", msg.ID, "error", markErr)
		}
		return
	}

	if err := p.repo.MarkPublished(ctx, msg.ID); err != nil {
		p.logger.Error("failed to mark message as published",
			"id", msg.ID,
			"event_id", msg.EventID,
			"error", err,
		)
		return
	}
	p.recordPublished()
}

func (p *Processor) deadLetter(ctx context.Context, msg *Message, cause error) {
	p.recordDead(cause)
	p.logger.Error("message dead-lettered",
		"id", msg.ID,
		"routing_key", msg.RoutingKey,
		"aggregate_id", msg.AggregateID,
		"error", cause,
	)
	if err := p.repo.MarkDead(ctx, msg.ID, cause.Error()); err != nil {
		p.logger.Error("failed to mark message as dead-lettered", "id", msg.ID, "error", err)
	}
}

func (p *Processor) shouldDeadLetter(msg *Message) bool {
	if p.config.MaxRetries <= 0 {
		return true
	}
	return msg.RetryCount+1 >= p.config.MaxRetries
}

// retryBackoff doubles from RetryBackoffBase up to RetryBackoffMax.
func (p *Processor) retryBackoff(attempt int) time.Duration {
	base := p.config.RetryBackoffBase
	if base <= 0 {
		base = time.Second
	}
	ceiling := p.config.RetryBackoffMax
	if ceiling <= 0 {
		ceiling = time.Minute
	}
	if attempt < 1 {
		attempt = 1
	}

	backoff := base * time.Duration(1<<convert.IntToUintClamped(attempt-1))
	if backoff <= 0 || backoff > ceiling {
		return ceiling
	}
	return backoff
}

// messageMetadata decodes the tracing metadata for logging; undecodable
// metadata yields zero IDs.
func messageMetadata(msg *Message) domain.EventMetadata {
	var metadata domain.EventMetadata
	if len(msg.Metadata) > 0 {
		_ = json.Unmarshal(msg.Metadata, &metadata)
	}
	return metadata
}

// ProcessOnce processes a single batch synchronously.
func (p *Processor) ProcessOnce(ctx context.Context) error {
	return p.processBatch(ctx)
}

// Cleanup deletes published messages older than retentionDays.
func (p *Processor) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	deleted, err := p.repo.DeleteOld(ctx, retentionDays)
	if err != nil {
		p.recordError(err)
		return 0, err
	}
	if deleted > 0 {
		p.logger.Info("outbox cleanup removed published messages",
			"deleted", deleted,
			"retention_days", retentionDays,
		)
	}
	return deleted, nil
}

// Backlog reports what is still waiting for delivery.
func (p *Processor) Backlog(ctx context.Context) (Backlog, error) {
	b, err := p.repo.Backlog(ctx)
	if err != nil {
		p.recordError(err)
		return Backlog{}, err
	}
	return b, nil
}

// Requeue returns dead-lettered messages to the queue. With no IDs every
// dead message is requeued. It reports how many were requeued; unknown IDs
// are skipped and reported in the error.
func (p *Processor) Requeue(ctx context.Context, ids ...int64) (int, error) {
	if len(ids) == 0 {
		dead, err := p.repo.ListDead(ctx, p.config.BatchSize)
		if err != nil {
			return 0, err
		}
		for _, msg := range dead {
			ids = append(ids, msg.ID)
		}
	}

	var (
		requeued int
		errs     []error
	)
	for _, id := range ids {
		if err := p.repo.Requeue(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("message %d: %w", id, err))
			continue
		}
		requeued++
	}
	if requeued > 0 {
		p.logger.Info("requeued dead-lettered messages", "count", requeued)
	}
	return requeued, errors.Join(errs...)
}

// Stats returns processor statistics.
type Stats struct {
	IsRunning       bool
	PublishedCount  uint64
	FailedCount     uint64
	DeadCount       uint64
	LagSeconds      float64
	LastError       string
	LastErrorAt     *time.Time
	LastProcessedAt *time.Time
	OldestMessageAt *time.Time
}

// GetStats returns current processor statistics.
func (p *Processor) GetStats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	return Stats{
		IsRunning:       p.IsRunning(),
		PublishedCount:  p.stats.PublishedCount,
		FailedCount:     p.stats.FailedCount,
		DeadCount:       p.stats.DeadCount,
		LagSeconds:      p.stats.LagSeconds,
		LastError:       p.stats.LastError,
		LastErrorAt:     p.stats.LastErrorAt,
		LastProcessedAt: p.stats.LastProcessedAt,
		OldestMessageAt: p.stats.OldestMessageAt,
	}
}

func (p *Processor) recordPublished() {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.stats.PublishedCount++
}

func (p *Processor) recordFailed(err error) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.stats.FailedCount++
	now := time.Now()
	p.stats.LastError = err.Error()
	p.stats.LastErrorAt = &now
}

func (p *Processor) recordDead(err error) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.stats.DeadCount++
	now := time.Now()
	p.stats.LastError = err.Error()
	p.stats.LastErrorAt = &now
}

func (p *Processor) recordError(err error) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	now := time.Now()
	p.stats.LastError = err.Error()
	p.stats.LastErrorAt = &now
}

func (p *Processor) recordProcessed(messages []*Message) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	now := time.Now()
	p.stats.LastProcessedAt = &now
	if len(messages) == 0 {
		p.stats.LagSeconds = 0
		p.stats.OldestMessageAt = nil
		return
	}

	oldest := messages[0].CreatedAt
	for _, msg := range messages[1:] {
		if msg.CreatedAt.Before(oldest) {
			oldest = msg.CreatedAt
		}
	}
	p.stats.OldestMessageAt = &oldest
	p.stats.LagSeconds = now.Sub(oldest).Seconds()
}
