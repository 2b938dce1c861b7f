package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/felixgeelhaar/coachbook/internal/booking/application/services"
	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

// ErrNotifierUnavailable is returned while the breaker is open.
var ErrNotifierUnavailable = errors.New("notifier unavailable: circuit open")

// BreakerConfig configures BreakerNotifier.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig trips after five consecutive failures and probes
// again after 30 seconds.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerNotifier stops calling a failing notifier until it recovers.
type BreakerNotifier struct {
	next    services.Notifier
	breaker *gobreaker.CircuitBreaker[any]
}

// NewBreakerNotifier wraps next with a circuit breaker.
func NewBreakerNotifier(next services.Notifier, cfg BreakerConfig, logger *slog.Logger) *BreakerNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &BreakerNotifier{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (b *BreakerNotifier) SessionCommitted(ctx context.Context, session *domain.Session, path domain.OutcomeKind) error {
	return b.execute(func() error { return b.next.SessionCommitted(ctx, session, path) })
}

func (b *BreakerNotifier) SessionCancelled(ctx context.Context, session *domain.Session, reason string) error {
	return b.execute(func() error { return b.next.SessionCancelled(ctx, session, reason) })
}

// State reports the breaker state, e.g. "closed" or "open".
func (b *BreakerNotifier) State() string {
	return b.breaker.State().String()
}

func (b *BreakerNotifier) execute(fn func() error) error {
	_, err := b.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w (%s)", ErrNotifierUnavailable, b.breaker.Name())
	}
	return err
}
