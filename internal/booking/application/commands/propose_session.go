package commands

import (
	"context"

	"github.com/felixgeelhaar/coachbook/internal/booking/application/queries"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/services"
)

// ProposeSessionCommand contains the data needed to propose a session.
type ProposeSessionCommand struct {
	SessionSpec
}

// ProposeSessionResult contains the result of a proposal. Committed is nil
// when the operator has to resolve conflicts.
type ProposeSessionResult struct {
	Committed *queries.SessionDTO  `json:"committed,omitempty"`
	Conflicts []queries.SessionDTO `json:"conflicts"`
	Slots     []queries.SlotDTO    `json:"slots"`
}

// ProposeSessionHandler handles the ProposeSessionCommand.
type ProposeSessionHandler struct {
	scheduler *services.SchedulingService
}

// NewProposeSessionHandler creates a new ProposeSessionHandler.
func NewProposeSessionHandler(scheduler *services.SchedulingService) *ProposeSessionHandler {
	return &ProposeSessionHandler{scheduler: scheduler}
}

// Handle executes the ProposeSessionCommand.
func (h *ProposeSessionHandler) Handle(ctx context.Context, cmd ProposeSessionCommand) (*ProposeSessionResult, error) {
	candidate, err := cmd.Candidate()
	if err != nil {
		return nil, err
	}

	proposal, err := h.scheduler.Propose(ctx, candidate)
	if err != nil {
		return nil, err
	}
	return toProposeResult(proposal), nil
}

func toProposeResult(p services.Proposal) *ProposeSessionResult {
	result := &ProposeSessionResult{
		Conflicts: queries.ToSessionDTOs(p.Conflicts),
		Slots:     queries.ToSlotDTOs(p.Slots),
	}
	if p.Committed != nil {
		dto := queries.ToSessionDTO(p.Committed)
		result.Committed = &dto
	}
	return result
}
