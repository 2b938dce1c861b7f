package commands

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/coachbook/internal/booking/application/queries"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/services"
	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

// ResolveConflictCommand carries the operator's decision for a candidate
// that was proposed earlier. SlotDate and SlotStart pick the offered slot
// for a reschedule; SlotDate defaults to the candidate's day.
type ResolveConflictCommand struct {
	SessionSpec
	Strategy  string
	SlotDate  *domain.Date
	SlotStart *domain.Clock
}

// ResolveConflictResult contains the committed session. FailedCancellations
// lists replaced sessions that could not be cancelled.
type ResolveConflictResult struct {
	Session             queries.SessionDTO `json:"session"`
	Strategy            string             `json:"strategy"`
	FailedCancellations []uuid.UUID        `json:"failed_cancellations,omitempty"`
}

// ResolveConflictHandler handles the ResolveConflictCommand.
type ResolveConflictHandler struct {
	scheduler *services.SchedulingService
}

// NewResolveConflictHandler creates a new ResolveConflictHandler.
func NewResolveConflictHandler(scheduler *services.SchedulingService) *ResolveConflictHandler {
	return &ResolveConflictHandler{scheduler: scheduler}
}

// Handle executes the ResolveConflictCommand. A replace that committed but
// left some cancellations undone returns both a result and the
// *domain.PartialFailureError.
func (h *ResolveConflictHandler) Handle(ctx context.Context, cmd ResolveConflictCommand) (*ResolveConflictResult, error) {
	strategy, err := domain.ParseStrategy(cmd.Strategy)
	if err != nil {
		return nil, err
	}
	candidate, err := cmd.Candidate()
	if err != nil {
		return nil, err
	}

	conflicts, err := h.scheduler.Conflicts(ctx, candidate)
	if err != nil {
		return nil, err
	}

	var chosen *domain.AlternativeSlot
	if cmd.SlotStart != nil {
		day := candidate.Date()
		if cmd.SlotDate != nil {
			day = *cmd.SlotDate
		}
		chosen = &domain.AlternativeSlot{
			Date:      day,
			Start:     *cmd.SlotStart,
			End:       cmd.SlotStart.Add(candidate.DurationMinutes()),
			IsSameDay: day == candidate.Date(),
		}
	}

	committed, err := h.scheduler.ResolveAndCommit(ctx, candidate, conflicts, strategy, chosen)
	if committed == nil {
		return nil, err
	}

	result := &ResolveConflictResult{
		Session:  queries.ToSessionDTO(committed),
		Strategy: string(strategy),
	}
	var partial *domain.PartialFailureError
	if errors.As(err, &partial) {
		result.FailedCancellations = partial.FailedIDs
	}
	return result, err
}
