package queries

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

// ListSessionsQuery contains the parameters for listing a resource's sessions.
type ListSessionsQuery struct {
	ResourceID       uuid.UUID
	From             domain.Date
	To               domain.Date
	IncludeCancelled bool
}

// ListSessionsHandler handles the ListSessionsQuery.
type ListSessionsHandler struct {
	sessions domain.SessionRepository
}

// NewListSessionsHandler creates a new ListSessionsHandler.
func NewListSessionsHandler(sessions domain.SessionRepository) *ListSessionsHandler {
	return &ListSessionsHandler{sessions: sessions}
}

// Handle executes the ListSessionsQuery. A zero To lists the From day only.
func (h *ListSessionsHandler) Handle(ctx context.Context, query ListSessionsQuery) ([]SessionDTO, error) {
	if query.ResourceID == uuid.Nil {
		return nil, domain.NewValidationError("resource_id", "", domain.ErrMissingResource)
	}
	to := query.To
	if to.IsZero() {
		to = query.From
	}
	window, err := domain.NewDateRange(query.From, to)
	if err != nil {
		return nil, err
	}

	sessions, err := h.sessions.ListSessions(ctx, query.ResourceID, window)
	if err != nil {
		return nil, &domain.StoreError{Op: "list", Err: err}
	}

	if !query.IncludeCancelled {
		active := sessions[:0]
		for _, s := range sessions {
			if s.IsActive() {
				active = append(active, s)
			}
		}
		sessions = active
	}
	domain.SortByStart(sessions)
	return ToSessionDTOs(sessions), nil
}
