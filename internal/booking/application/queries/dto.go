package queries

import (
	"github.com/google/uuid"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

// SessionDTO is a data transfer object for sessions.
type SessionDTO struct {
	ID           uuid.UUID `json:"id"`
	ResourceID   uuid.UUID `json:"resource_id"`
	SubjectID    uuid.UUID `json:"subject_id"`
	Title        string    `json:"title"`
	Date         string    `json:"date"`
	Start        string    `json:"start"`
	End          string    `json:"end"`
	DurationMin  int       `json:"duration_min"`
	Status       string    `json:"status"`
	AllowOverlap bool      `json:"allow_overlap"`
}

// SlotDTO is a data transfer object for alternative slots.
type SlotDTO struct {
	Date      string `json:"date"`
	Start     string `json:"start"`
	End       string `json:"end"`
	IsSameDay bool   `json:"is_same_day"`
}

// ToSessionDTO converts a session.
func ToSessionDTO(s *domain.Session) SessionDTO {
	return SessionDTO{
		ID:           s.ID(),
		ResourceID:   s.ResourceID(),
		SubjectID:    s.SubjectID(),
		Title:        s.Title(),
		Date:         s.Date().String(),
		Start:        s.Start().String(),
		End:          s.End().String(),
		DurationMin:  s.DurationMinutes(),
		Status:       string(s.Status()),
		AllowOverlap: s.AllowOverlap(),
	}
}

// ToSessionDTOs converts a list of sessions, never returning nil.
func ToSessionDTOs(sessions []*domain.Session) []SessionDTO {
	dtos := make([]SessionDTO, len(sessions))
	for i, s := range sessions {
		dtos[i] = ToSessionDTO(s)
	}
	return dtos
}

// ToSlotDTOs converts alternative slots, never returning nil.
func ToSlotDTOs(slots []domain.AlternativeSlot) []SlotDTO {
	dtos := make([]SlotDTO, len(slots))
	for i, slot := range slots {
		dtos[i] = SlotDTO{
			Date:      slot.Date.String(),
			Start:     slot.Start.String(),
			End:       slot.End.String(),
			IsSameDay: slot.IsSameDay,
		}
	}
	return dtos
}
