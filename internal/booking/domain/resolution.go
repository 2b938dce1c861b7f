package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Strategy is the operator's choice for resolving a conflict.
type Strategy string

const (
	StrategyNone       Strategy = ""
	StrategyReschedule Strategy = "reschedule"
	StrategyReplace    Strategy = "replace"
	StrategyForce      Strategy = "force"
)

// ParseStrategy maps user input to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyNone:
		return StrategyNone, nil
	case StrategyReschedule:
		return StrategyReschedule, nil
	case StrategyReplace:
		return StrategyReplace, nil
	case StrategyForce:
		return StrategyForce, nil
	default:
		return StrategyNone, NewValidationError("strategy", fmt.Sprintf("%q", s), ErrUnknownStrategy)
	}
}

// OutcomeKind tags a resolution outcome. OutcomeDirect marks sessions
// committed without any conflict to resolve.
type OutcomeKind string

const (
	OutcomeDirect      OutcomeKind = "direct"
	OutcomeRescheduled OutcomeKind = "rescheduled"
	OutcomeReplaced    OutcomeKind = "replaced"
	OutcomeForced      OutcomeKind = "forced"
)

// Outcome is the transient instruction set produced by Resolve.
type Outcome struct {
	Kind OutcomeKind

	// Rescheduled
	NewDate  Date
	NewStart Clock
	NewEnd   Clock

	// Replaced
	CancelIDs []uuid.UUID
}

// ResolutionRequest is the input of the resolution state machine.
type ResolutionRequest struct {
	Candidate  *Session
	Conflicts  []*Session
	Strategy   Strategy
	ChosenSlot *AlternativeSlot
	// Offered is the most recent slot list produced for the candidate.
	Offered []AlternativeSlot
}

// Resolve moves a pending conflict to one of its terminal outcomes. It
// performs no I/O.
func Resolve(req ResolutionRequest) (Outcome, error) {
	if req.Candidate == nil {
		return Outcome{}, NewValidationError("candidate", "candidate session is required", nil)
	}

	switch req.Strategy {
	case StrategyNone:
		return Outcome{}, ErrNoStrategy
	case StrategyReschedule:
		return resolveReschedule(req)
	case StrategyReplace:
		return Outcome{Kind: OutcomeReplaced, CancelIDs: conflictIDs(req.Conflicts)}, nil
	case StrategyForce:
		return Outcome{Kind: OutcomeForced}, nil
	default:
		return Outcome{}, NewValidationError("strategy", fmt.Sprintf("%q", req.Strategy), ErrUnknownStrategy)
	}
}

func resolveReschedule(req ResolutionRequest) (Outcome, error) {
	if req.ChosenSlot == nil {
		return Outcome{}, NewValidationError("slot", "", ErrSlotRequired)
	}
	chosen := *req.ChosenSlot
	if !slotOffered(chosen, req.Offered) {
		return Outcome{}, &StaleSlotError{Slot: chosen}
	}
	return Outcome{
		Kind:     OutcomeRescheduled,
		NewDate:  chosen.Date,
		NewStart: chosen.Start,
		NewEnd:   chosen.Start.Add(req.Candidate.DurationMinutes()),
	}, nil
}

func slotOffered(chosen AlternativeSlot, offered []AlternativeSlot) bool {
	key := chosen.Key()
	for _, slot := range offered {
		if slot.Key() == key {
			return true
		}
	}
	return false
}

func conflictIDs(conflicts []*Session) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(conflicts))
	seen := make(map[uuid.UUID]bool, len(conflicts))
	for _, c := range conflicts {
		if c == nil || c.IsTransient() || seen[c.ID()] {
			continue
		}
		seen[c.ID()] = true
		ids = append(ids, c.ID())
	}
	return ids
}

// Apply returns a copy of the candidate with the outcome applied. The
// candidate itself is left untouched.
func Apply(candidate *Session, outcome Outcome) (*Session, error) {
	resolved := candidate.clone()
	switch outcome.Kind {
	case OutcomeRescheduled:
		if err := resolved.RescheduleTo(outcome.NewDate, outcome.NewStart); err != nil {
			return nil, err
		}
	case OutcomeForced:
		resolved.PermitOverlap()
	case OutcomeReplaced, OutcomeDirect:
	default:
		return nil, NewValidationError("outcome", fmt.Sprintf("%q", outcome.Kind), ErrUnknownStrategy)
	}
	return resolved, nil
}
