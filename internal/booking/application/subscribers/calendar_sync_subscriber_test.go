package subscribers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/coachbook/internal/booking/application/subscribers"
	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/outbox"
)

type mockCalendar struct {
	mock.Mock
}

func (m *mockCalendar) UpsertSession(ctx context.Context, session domain.SessionSnapshot) (bool, error) {
	args := m.Called(ctx, session)
	return args.Bool(0), args.Error(1)
}

func (m *mockCalendar) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	return m.Called(ctx, sessionID).Error(0)
}

func committedSession(t *testing.T) *domain.Session {
	t.Helper()
	now := time.Now().UTC()
	s := domain.RehydrateSession(uuid.New(), uuid.New(), uuid.New(), "Hill repeats",
		domain.NewDate(2025, time.March, 10), domain.NewClock(9, 0), domain.NewClock(10, 0),
		domain.StatusScheduled, false, now, now)
	return s
}

// envelope runs the session's pending events through the outbox encoding
// consumers receive.
func envelope(t *testing.T, s *domain.Session) *eventbus.ConsumedEvent {
	t.Helper()
	events := s.PullDomainEvents()
	require.Len(t, events, 1)
	msg, err := outbox.NewMessage(events[0])
	require.NoError(t, err)
	return &eventbus.ConsumedEvent{
		EventID:       msg.EventID,
		AggregateID:   msg.AggregateID,
		AggregateType: msg.AggregateType,
		RoutingKey:    msg.RoutingKey,
		OccurredAt:    msg.CreatedAt,
		Payload:       msg.Payload,
	}
}

func TestCalendarSyncSubscriber_EventTypes(t *testing.T) {
	sub := subscribers.NewCalendarSyncSubscriber(new(mockCalendar), nil)
	assert.Equal(t, []string{domain.RoutingPatternSession}, sub.EventTypes())
}

func TestCalendarSyncSubscriber_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("committed session is upserted", func(t *testing.T) {
		cal := new(mockCalendar)
		s := committedSession(t)
		require.NoError(t, s.MarkCommitted(domain.OutcomeDirect))
		event := envelope(t, s)

		cal.On("UpsertSession", ctx, mock.MatchedBy(func(snap domain.SessionSnapshot) bool {
			return snap.SessionID == s.ID() &&
				snap.Title == "Hill repeats" &&
				snap.Start == domain.NewClock(9, 0) &&
				snap.Date == domain.NewDate(2025, time.March, 10)
		})).Return(false, nil)

		err := subscribers.NewCalendarSyncSubscriber(cal, nil).Handle(ctx, event)

		require.NoError(t, err)
		cal.AssertExpectations(t)
	})

	t.Run("cancelled session is deleted", func(t *testing.T) {
		cal := new(mockCalendar)
		s := committedSession(t)
		require.NoError(t, s.Cancel("travel"))
		event := envelope(t, s)
		cal.On("DeleteSession", ctx, s.ID()).Return(nil)

		err := subscribers.NewCalendarSyncSubscriber(cal, nil).Handle(ctx, event)

		require.NoError(t, err)
		cal.AssertExpectations(t)
	})

	t.Run("calendar failure is returned for retry", func(t *testing.T) {
		cal := new(mockCalendar)
		s := committedSession(t)
		require.NoError(t, s.MarkCommitted(domain.OutcomeForced))
		cal.On("UpsertSession", ctx, mock.Anything).Return(false, errors.New("503"))

		err := subscribers.NewCalendarSyncSubscriber(cal, nil).Handle(ctx, envelope(t, s))

		assert.Error(t, err)
	})

	t.Run("corrupt payload", func(t *testing.T) {
		err := subscribers.NewCalendarSyncSubscriber(new(mockCalendar), nil).Handle(ctx, &eventbus.ConsumedEvent{
			RoutingKey: domain.RoutingKeySessionCommitted,
			Payload:    []byte("{"),
		})
		assert.Error(t, err)
	})
}

func TestCalendarSyncSubscriber_ViaInProcessBus(t *testing.T) {
	ctx := context.Background()
	cal := new(mockCalendar)
	bus := eventbus.NewInProcessEventBus(nil)
	bus.RegisterConsumer(subscribers.NewCalendarSyncSubscriber(cal, nil))

	s := committedSession(t)
	require.NoError(t, s.MarkCommitted(domain.OutcomeRescheduled))
	events := s.PullDomainEvents()
	msg, err := outbox.NewMessage(events[0])
	require.NoError(t, err)
	payload, err := msg.Envelope()
	require.NoError(t, err)

	cal.On("UpsertSession", mock.Anything, mock.MatchedBy(func(snap domain.SessionSnapshot) bool {
		return snap.SessionID == s.ID()
	})).Return(true, nil)

	require.NoError(t, bus.Publish(ctx, msg.RoutingKey, payload))
	cal.AssertExpectations(t)
}
