package commands

import (
	"github.com/google/uuid"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

// SessionSpec describes a candidate session. End wins over DurationMinutes
// when both are set.
type SessionSpec struct {
	ResourceID      uuid.UUID
	SubjectID       uuid.UUID
	Title           string
	Date            domain.Date
	Start           domain.Clock
	End             *domain.Clock
	DurationMinutes int
}

// Candidate builds the transient session the spec describes.
func (s SessionSpec) Candidate() (*domain.Session, error) {
	if s.End != nil {
		return domain.NewSession(s.ResourceID, s.SubjectID, s.Title, s.Date, s.Start, *s.End)
	}
	return domain.NewSessionWithDuration(s.ResourceID, s.SubjectID, s.Title, s.Date, s.Start, s.DurationMinutes)
}
