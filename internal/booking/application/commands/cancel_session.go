package commands

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/coachbook/internal/booking/application/queries"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/services"
)

// CancelSessionCommand contains the data needed to cancel a session.
type CancelSessionCommand struct {
	SessionID uuid.UUID
	Reason    string
}

// CancelSessionHandler handles the CancelSessionCommand.
type CancelSessionHandler struct {
	scheduler *services.SchedulingService
}

// NewCancelSessionHandler creates a new CancelSessionHandler.
func NewCancelSessionHandler(scheduler *services.SchedulingService) *CancelSessionHandler {
	return &CancelSessionHandler{scheduler: scheduler}
}

// Handle executes the CancelSessionCommand.
func (h *CancelSessionHandler) Handle(ctx context.Context, cmd CancelSessionCommand) (*queries.SessionDTO, error) {
	cancelled, err := h.scheduler.CancelSession(ctx, cmd.SessionID, cmd.Reason)
	if err != nil {
		return nil, err
	}
	dto := queries.ToSessionDTO(cancelled)
	return &dto, nil
}
