package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/felixgeelhaar/coachbook/internal/booking/application/subscribers"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/coachbook/pkg/observability"
)

// Worker is the long-running side of coachbook: it drains the outbox,
// consumes broker events into the calendar, prunes delivered events and
// serves health endpoints.
type Worker struct {
	c *Container
}

// NewWorker creates a worker over a wired container.
func NewWorker(c *Container) *Worker {
	return &Worker{c: c}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	cfg := w.c.Config
	logger := w.c.Logger

	if cfg.OutboxProcessorEnabled {
		if err := w.c.OutboxProcessor.Start(ctx); err != nil {
			return fmt.Errorf("failed to start outbox processor: %w", err)
		}
		defer w.c.OutboxProcessor.Stop()
	} else {
		logger.Warn("outbox processor disabled; events stay queued")
	}

	if err := w.startConsumer(ctx); err != nil {
		return err
	}

	if cfg.WorkerHealthAddr != "" {
		srv := &http.Server{
			Addr:              cfg.WorkerHealthAddr,
			Handler:           w.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("health server listening", "addr", cfg.WorkerHealthAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("health server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("health server shutdown failed", "error", err)
			}
		}()
	}

	go every(ctx, cfg.OutboxCleanupInterval, w.Cleanup)
	go every(ctx, cfg.OutboxStatsInterval, w.ReportStats)

	<-ctx.Done()
	logger.Info("worker stopping")
	return nil
}

// startConsumer feeds broker events to the calendar. Events only reach
// the broker when the container publishes to RabbitMQ.
func (w *Worker) startConsumer(ctx context.Context) error {
	c := w.c
	if c.EventBus != nil || c.CalendarSync == nil {
		return nil
	}

	consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
		URL:      c.Config.RabbitMQURL,
		Prefetch: c.Config.RabbitMQPrefetch,
		Logger:   c.Logger,
	}, eventbus.NewConsumerRegistry(c.Logger))
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to start RabbitMQ consumer: %w", err)
		}
		c.Logger.Warn("RabbitMQ consumer not available, calendar sync disabled", "error", err)
		return nil
	}
	consumer.RegisterConsumer(subscribers.NewCalendarSyncSubscriber(c.CalendarSync, c.Logger))

	go func() {
		defer consumer.Close()
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.Logger.Error("RabbitMQ consumer stopped", "error", err)
		}
	}()
	return nil
}

// Cleanup removes delivered events past the retention period.
func (w *Worker) Cleanup(ctx context.Context) {
	if _, err := w.c.OutboxProcessor.Cleanup(ctx, w.c.Config.OutboxRetentionDays); err != nil {
		w.c.Logger.Error("outbox cleanup failed", "error", err)
	}
}

// ReportStats publishes the outbox backlog as gauges and logs the
// processor counters.
func (w *Worker) ReportStats(ctx context.Context) {
	backlog, err := w.c.OutboxProcessor.Backlog(ctx)
	if err != nil {
		w.c.Logger.Warn("failed to read outbox backlog", "error", err)
	} else {
		w.c.Metrics.Gauge(observability.MetricOutboxPending, float64(backlog.Pending))
		w.c.Metrics.Gauge(observability.MetricOutboxDead, float64(backlog.Dead))
	}

	stats := w.c.OutboxProcessor.GetStats()
	w.c.Logger.Info("outbox stats",
		"running", stats.IsRunning,
		"published", stats.PublishedCount,
		"failed", stats.FailedCount,
		"dead", stats.DeadCount,
		"pending", backlog.Pending,
		"lag_seconds", stats.LagSeconds,
		"last_error", stats.LastError,
	)
}

// Handler serves /healthz (liveness with processor counters), /readyz
// (the health registry) and /metrics (a JSON snapshot).
func (w *Worker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, r *http.Request) {
		stats := w.c.OutboxProcessor.GetStats()
		writeJSON(rw, map[string]any{
			"status":            "ok",
			"running":           stats.IsRunning,
			"published":         stats.PublishedCount,
			"failed":            stats.FailedCount,
			"dead":              stats.DeadCount,
			"lag_seconds":       stats.LagSeconds,
			"last_processed_at": stats.LastProcessedAt,
			"last_error":        stats.LastError,
		})
	})
	mux.Handle("/readyz", w.c.Health)
	mux.HandleFunc("GET /metrics", func(rw http.ResponseWriter, r *http.Request) {
		writeJSON(rw, w.c.Metrics.Snapshot())
	})
	return mux
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(v)
}

func every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
