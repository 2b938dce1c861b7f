package domain

import (
	"fmt"
	"strings"
	"time"

	sharedDomain "github.com/felixgeelhaar/coachbook/internal/shared/domain"
	"github.com/google/uuid"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a stored or user-supplied status.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusScheduled:
		return StatusScheduled, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusCancelled:
		return StatusCancelled, nil
	default:
		return "", NewValidationError("status", fmt.Sprintf("unknown status %q", s), nil)
	}
}

// Session is a coaching appointment on one resource's calendar.
type Session struct {
	sharedDomain.BaseAggregateRoot
	resourceID   uuid.UUID
	subjectID    uuid.UUID
	title        string
	date         Date
	start        Clock
	end          Clock
	status       Status
	allowOverlap bool
}

// NewSession creates a candidate session from start and end times. The
// duration is derived.
func NewSession(resourceID, subjectID uuid.UUID, title string, date Date, start, end Clock) (*Session, error) {
	if err := validateSlot(resourceID, date, start, end); err != nil {
		return nil, err
	}
	return &Session{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(sharedDomain.NewTransientEntity()),
		resourceID:        resourceID,
		subjectID:         subjectID,
		title:             strings.TrimSpace(title),
		date:              date,
		start:             start,
		end:               end,
		status:            StatusScheduled,
	}, nil
}

// NewSessionWithDuration creates a candidate session from a start time and
// a duration. The end time is derived.
func NewSessionWithDuration(resourceID, subjectID uuid.UUID, title string, date Date, start Clock, durationMinutes int) (*Session, error) {
	if durationMinutes <= 0 {
		return nil, NewValidationError("duration", fmt.Sprintf("%d minutes", durationMinutes), ErrInvalidDuration)
	}
	return NewSession(resourceID, subjectID, title, date, start, start.Add(durationMinutes))
}

// RehydrateSession rebuilds a session from persisted state.
func RehydrateSession(
	id, resourceID, subjectID uuid.UUID,
	title string,
	date Date,
	start, end Clock,
	status Status,
	allowOverlap bool,
	createdAt, updatedAt time.Time,
) *Session {
	return &Session{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)),
		resourceID:        resourceID,
		subjectID:         subjectID,
		title:             title,
		date:              date,
		start:             start,
		end:               end,
		status:            status,
		allowOverlap:      allowOverlap,
	}
}

func validateSlot(resourceID uuid.UUID, date Date, start, end Clock) error {
	if resourceID == uuid.Nil {
		return NewValidationError("resource_id", "", ErrMissingResource)
	}
	if date.IsZero() {
		return NewValidationError("date", "date is required", ErrInvalidDate)
	}
	if start < 0 || end > MinutesPerDay {
		return NewValidationError("time", fmt.Sprintf("%s-%s is outside the day", start, end), ErrInvalidTimeRange)
	}
	if start >= end {
		return NewValidationError("time", fmt.Sprintf("%s is not before %s", start, end), ErrInvalidTimeRange)
	}
	return nil
}

func (s *Session) ResourceID() uuid.UUID { return s.resourceID }
func (s *Session) SubjectID() uuid.UUID  { return s.subjectID }
func (s *Session) Title() string         { return s.title }
func (s *Session) Date() Date            { return s.date }
func (s *Session) Start() Clock          { return s.start }
func (s *Session) End() Clock            { return s.end }
func (s *Session) Status() Status        { return s.status }
func (s *Session) AllowOverlap() bool    { return s.allowOverlap }

// DurationMinutes is always end minus start.
func (s *Session) DurationMinutes() int { return int(s.end - s.start) }

// StartsAt and EndsAt anchor the session to UTC for calendar exports.
func (s *Session) StartsAt() time.Time { return s.start.On(s.date) }
func (s *Session) EndsAt() time.Time   { return s.end.On(s.date) }

// IsActive reports whether the session occupies its slot.
func (s *Session) IsActive() bool {
	return s.status == StatusScheduled || s.status == StatusConfirmed
}

// Fingerprint identifies the candidate's requested slot. Offered
// alternatives are remembered under it.
func (s *Session) Fingerprint() string {
	return strings.Join([]string{
		s.resourceID.String(),
		s.date.String(),
		s.start.String(),
		s.end.String(),
		s.ID().String(),
	}, "|")
}

// RescheduleTo moves the session keeping its duration.
func (s *Session) RescheduleTo(date Date, start Clock) error {
	end := start.Add(s.DurationMinutes())
	if err := validateSlot(s.resourceID, date, start, end); err != nil {
		return err
	}
	s.date = date
	s.start = start
	s.end = end
	s.Touch()
	return nil
}

// PermitOverlap marks the session as deliberately overlapping others.
func (s *Session) PermitOverlap() {
	s.allowOverlap = true
	s.Touch()
}

// Confirm moves a scheduled session to confirmed.
func (s *Session) Confirm() error {
	if s.status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	s.status = StatusConfirmed
	s.Touch()
	return nil
}

// Cancel releases the session's slot and records why.
func (s *Session) Cancel(reason string) error {
	if s.IsTransient() {
		return ErrNotPersisted
	}
	if s.status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	s.status = StatusCancelled
	s.Touch()
	s.AddDomainEvent(NewSessionCancelled(s, reason))
	return nil
}

// MarkCommitted records that the store accepted the session through the
// given resolution path.
func (s *Session) MarkCommitted(path OutcomeKind) error {
	if s.IsTransient() {
		return ErrNotPersisted
	}
	s.AddDomainEvent(NewSessionCommitted(s, path))
	return nil
}

// at returns a detached copy of the session placed at another slot. The
// copy keeps the identity so self-exclusion still applies.
func (s *Session) at(date Date, start Clock) *Session {
	c := s.clone()
	c.date = date
	c.start = start
	c.end = start.Add(s.DurationMinutes())
	return c
}

func (s *Session) clone() *Session {
	c := *s
	c.BaseAggregateRoot = sharedDomain.NewBaseAggregateRoot(
		sharedDomain.RehydrateBaseEntity(s.ID(), s.CreatedAt(), s.UpdatedAt()),
	)
	return &c
}
