package queries

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

// FindSlotsQuery describes a hypothetical session to search slots for.
type FindSlotsQuery struct {
	ResourceID      uuid.UUID
	Date            domain.Date
	Start           domain.Clock
	DurationMinutes int
}

// FindSlotsResult reports whether the requested slot is free and which
// alternatives exist. Nothing is recorded as offered.
type FindSlotsResult struct {
	Free      bool         `json:"free"`
	Conflicts []SessionDTO `json:"conflicts"`
	Slots     []SlotDTO    `json:"slots"`
}

// FindSlotsHandler handles the FindSlotsQuery.
type FindSlotsHandler struct {
	sessions domain.SessionRepository
	opts     domain.SlotSearchOptions
}

// NewFindSlotsHandler creates a new FindSlotsHandler.
func NewFindSlotsHandler(sessions domain.SessionRepository, opts domain.SlotSearchOptions) *FindSlotsHandler {
	return &FindSlotsHandler{sessions: sessions, opts: opts}
}

// Handle executes the FindSlotsQuery.
func (h *FindSlotsHandler) Handle(ctx context.Context, query FindSlotsQuery) (*FindSlotsResult, error) {
	probe, err := domain.NewSessionWithDuration(query.ResourceID, uuid.Nil, "", query.Date, query.Start, query.DurationMinutes)
	if err != nil {
		return nil, err
	}

	listDay := func(day domain.Date) ([]*domain.Session, error) {
		pool, err := h.sessions.ListSessions(ctx, query.ResourceID, domain.SingleDay(day))
		if err != nil {
			return nil, &domain.StoreError{Op: "list", Err: err}
		}
		return pool, nil
	}

	pool, err := listDay(query.Date)
	if err != nil {
		return nil, err
	}
	conflicts := domain.DetectConflicts(probe, pool)

	opts := h.opts
	opts.DayPool = listDay
	slots := domain.FindAlternativeSlots(probe, conflicts, opts)

	return &FindSlotsResult{
		Free:      len(conflicts) == 0,
		Conflicts: ToSessionDTOs(conflicts),
		Slots:     ToSlotDTOs(slots),
	}, nil
}
