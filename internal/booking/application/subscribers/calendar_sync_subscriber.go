package subscribers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/eventbus"
)

// CalendarSync writes sessions to an external calendar.
type CalendarSync interface {
	UpsertSession(ctx context.Context, session domain.SessionSnapshot) (bool, error)
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
}

// CalendarSyncSubscriber mirrors committed and cancelled sessions into an
// external calendar.
type CalendarSyncSubscriber struct {
	calendar CalendarSync
	logger   *slog.Logger
}

// NewCalendarSyncSubscriber creates a new calendar sync subscriber.
func NewCalendarSyncSubscriber(calendar CalendarSync, logger *slog.Logger) *CalendarSyncSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &CalendarSyncSubscriber{calendar: calendar, logger: logger}
}

// EventTypes binds all session events; kinds the calendar has no use for
// are skipped in Handle.
func (s *CalendarSyncSubscriber) EventTypes() []string {
	return []string{domain.RoutingPatternSession}
}

// Handle processes an event.
func (s *CalendarSyncSubscriber) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var snapshot domain.SessionSnapshot
	if err := event.DecodePayload(&snapshot); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.RoutingKey, err)
	}
	if snapshot.SessionID == uuid.Nil {
		snapshot.SessionID = event.AggregateID
	}

	switch event.RoutingKey {
	case domain.RoutingKeySessionCommitted:
		updated, err := s.calendar.UpsertSession(ctx, snapshot)
		if err != nil {
			return fmt.Errorf("sync session %s: %w", snapshot.SessionID, err)
		}
		s.logger.Info("session synced to calendar",
			"session_id", snapshot.SessionID,
			"updated", updated,
		)
	case domain.RoutingKeySessionCancelled:
		if err := s.calendar.DeleteSession(ctx, snapshot.SessionID); err != nil {
			return fmt.Errorf("remove session %s: %w", snapshot.SessionID, err)
		}
		s.logger.Info("session removed from calendar", "session_id", snapshot.SessionID)
	default:
		s.logger.Debug("event not synced", "routing_key", event.RoutingKey)
	}
	return nil
}
