package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		wantErr error
	}{
		{name: "valid", start: "10:00", end: "11:15"},
		{name: "until end of day", start: "23:00", end: "24:00"},
		{name: "equal times", start: "10:00", end: "10:00", wantErr: ErrInvalidTimeRange},
		{name: "reversed times", start: "11:00", end: "10:00", wantErr: ErrInvalidTimeRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSession(coachID, athleteID, "Mobility", march10, MustParseClock(tt.start), MustParseClock(tt.end))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, s.IsTransient())
			assert.Equal(t, StatusScheduled, s.Status())
			assert.Equal(t, int(s.End()-s.Start()), s.DurationMinutes())
		})
	}
}

func TestNewSession_RequiresResource(t *testing.T) {
	_, err := NewSession(uuid.Nil, athleteID, "", march10, NewClock(9, 0), NewClock(10, 0))

	assert.ErrorIs(t, err, ErrMissingResource)
}

func TestNewSessionWithDuration(t *testing.T) {
	s, err := NewSessionWithDuration(coachID, athleteID, "Intervals", march10, NewClock(9, 30), 45)
	require.NoError(t, err)
	assert.Equal(t, "10:15", s.End().String())
	assert.Equal(t, 45, s.DurationMinutes())

	_, err = NewSessionWithDuration(coachID, athleteID, "", march10, NewClock(9, 30), 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = NewSessionWithDuration(coachID, athleteID, "", march10, NewClock(23, 30), 60)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestSession_RescheduleTo(t *testing.T) {
	s := candidate(t, "10:00", "11:30")

	require.NoError(t, s.RescheduleTo(march10.AddDays(2), NewClock(15, 0)))
	assert.Equal(t, "2025-03-12", s.Date().String())
	assert.Equal(t, "16:30", s.End().String())

	assert.ErrorIs(t, s.RescheduleTo(march10, NewClock(23, 0)), ErrInvalidTimeRange)
	assert.Equal(t, "15:00", s.Start().String(), "failed reschedule leaves the session unchanged")
}

func TestSession_Cancel(t *testing.T) {
	t.Run("transient sessions cannot be cancelled", func(t *testing.T) {
		assert.ErrorIs(t, candidate(t, "10:00", "11:00").Cancel("x"), ErrNotPersisted)
	})

	t.Run("cancel records an event once", func(t *testing.T) {
		s := existing(t, "10:00", "11:00")

		require.NoError(t, s.Cancel("replaced"))
		assert.False(t, s.IsActive())
		assert.ErrorIs(t, s.Cancel("again"), ErrAlreadyCancelled)

		events := s.PullDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, RoutingKeySessionCancelled, events[0].RoutingKey())
		assert.Equal(t, "replaced", events[0].(*SessionCancelled).Reason)
	})
}

func TestSession_Confirm(t *testing.T) {
	s := existing(t, "10:00", "11:00")
	require.NoError(t, s.Confirm())
	assert.Equal(t, StatusConfirmed, s.Status())

	cancelled := existingOn(t, march10, "12:00", "13:00", StatusCancelled)
	assert.ErrorIs(t, cancelled.Confirm(), ErrAlreadyCancelled)
}

func TestSession_MarkCommitted(t *testing.T) {
	s := candidate(t, "10:00", "11:00")
	assert.ErrorIs(t, s.MarkCommitted(OutcomeDirect), ErrNotPersisted)

	s.AssignID(uuid.New())
	require.NoError(t, s.MarkCommitted(OutcomeForced))

	events := s.PullDomainEvents()
	require.Len(t, events, 1)
	committed := events[0].(*SessionCommitted)
	assert.Equal(t, s.ID(), committed.AggregateID())

	payload, err := json.Marshal(committed)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"session_id": "`+s.ID().String()+`",
		"resource_id": "`+coachID.String()+`",
		"subject_id": "`+athleteID.String()+`",
		"title": "Strength block",
		"date": "2025-03-10",
		"start": "10:00",
		"end": "11:00",
		"status": "scheduled",
		"allow_overlap": false,
		"resolution": "forced"
	}`, string(payload))
}

func TestSession_Fingerprint(t *testing.T) {
	a := candidate(t, "10:00", "11:00")
	b := candidate(t, "10:00", "11:00")
	c := candidate(t, "10:00", "11:30")

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{in: "09:00", want: 540},
		{in: "9:05", want: 545},
		{in: "24:00", want: MinutesPerDay},
		{in: "24:01", wantErr: true},
		{in: "10:60", wantErr: true},
		{in: "10", wantErr: true},
		{in: "ab:cd", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2025-02-28")
	require.NoError(t, err)

	assert.Equal(t, "2025-03-01", d.AddDays(1).String())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.Equal(t, time.Date(2025, 2, 28, 9, 30, 0, 0, time.UTC), NewClock(9, 30).On(d))

	_, err = ParseDate("28/02/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)

	r, err := NewDateRange(d, d.AddDays(3))
	require.NoError(t, err)
	assert.True(t, r.Contains(d.AddDays(3)))
	assert.False(t, r.Contains(d.AddDays(4)))

	_, err = NewDateRange(d, d.AddDays(-1))
	assert.Error(t, err)
}
