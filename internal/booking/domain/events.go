package domain

import (
	"github.com/google/uuid"

	sharedDomain "github.com/felixgeelhaar/coachbook/internal/shared/domain"
)

const (
	AggregateType = "booking.session"

	RoutingKeySessionCommitted = "booking.session.committed"
	RoutingKeySessionCancelled = "booking.session.cancelled"

	// RoutingPatternSession binds every session event.
	RoutingPatternSession = "booking.session.*"
)

// SessionSnapshot is the session state carried inside events.
type SessionSnapshot struct {
	SessionID    uuid.UUID `json:"session_id"`
	ResourceID   uuid.UUID `json:"resource_id"`
	SubjectID    uuid.UUID `json:"subject_id"`
	Title        string    `json:"title"`
	Date         Date      `json:"date"`
	Start        Clock     `json:"start"`
	End          Clock     `json:"end"`
	Status       Status    `json:"status"`
	AllowOverlap bool      `json:"allow_overlap"`
}

func snapshotOf(s *Session) SessionSnapshot {
	return SessionSnapshot{
		SessionID:    s.ID(),
		ResourceID:   s.resourceID,
		SubjectID:    s.subjectID,
		Title:        s.title,
		Date:         s.date,
		Start:        s.start,
		End:          s.end,
		Status:       s.status,
		AllowOverlap: s.allowOverlap,
	}
}

// SessionCommitted is emitted when a session lands in the store.
type SessionCommitted struct {
	sharedDomain.BaseEvent
	SessionSnapshot
	Resolution OutcomeKind `json:"resolution"`
}

// NewSessionCommitted creates a SessionCommitted event.
func NewSessionCommitted(s *Session, path OutcomeKind) *SessionCommitted {
	return &SessionCommitted{
		BaseEvent:       sharedDomain.NewBaseEvent(s.ID(), AggregateType, RoutingKeySessionCommitted),
		SessionSnapshot: snapshotOf(s),
		Resolution:      path,
	}
}

// SessionCancelled is emitted when a session releases its slot.
type SessionCancelled struct {
	sharedDomain.BaseEvent
	SessionSnapshot
	Reason string `json:"reason"`
}

// NewSessionCancelled creates a SessionCancelled event.
func NewSessionCancelled(s *Session, reason string) *SessionCancelled {
	return &SessionCancelled{
		BaseEvent:       sharedDomain.NewBaseEvent(s.ID(), AggregateType, RoutingKeySessionCancelled),
		SessionSnapshot: snapshotOf(s),
		Reason:          reason,
	}
}
