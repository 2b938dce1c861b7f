package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidTimeRange      = errors.New("start time must be before end time")
	ErrInvalidDate           = errors.New("invalid date")
	ErrInvalidClock          = errors.New("invalid time of day")
	ErrInvalidDuration       = errors.New("duration must be positive")
	ErrMissingResource       = errors.New("resource is required")
	ErrSlotRequired          = errors.New("reschedule requires a chosen slot")
	ErrStaleSlot             = errors.New("chosen slot is not among the latest offered slots")
	ErrNoStrategy            = errors.New("no resolution strategy chosen")
	ErrUnknownStrategy       = errors.New("unknown resolution strategy")
	ErrForceCapacityExceeded = errors.New("forced overlap exceeds resource capacity")
	ErrSessionNotFound       = errors.New("session not found")
	ErrAlreadyCancelled      = errors.New("session is already cancelled")
	ErrConflictAppeared      = errors.New("a conflicting session appeared before commit")
	ErrNotPersisted          = errors.New("session has not been committed")
)

// ValidationError reports input the caller has to correct before retrying.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

// NewValidationError builds a ValidationError wrapping a sentinel.
func NewValidationError(field, reason string, err error) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Err: err}
}

func (e *ValidationError) Error() string {
	reason := e.Reason
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	if e.Field == "" {
		return "validation failed: " + reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StaleSlotError is returned when a reschedule names a slot that was not
// part of the most recent offer. It unwraps to a ValidationError.
type StaleSlotError struct {
	Slot AlternativeSlot
}

func (e *StaleSlotError) Error() string {
	return fmt.Sprintf("slot %s %s is stale: %s", e.Slot.Date, e.Slot.Start, ErrStaleSlot)
}

func (e *StaleSlotError) Unwrap() error {
	return NewValidationError("slot", ErrStaleSlot.Error(), ErrStaleSlot)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StoreError wraps a failure reported by the session store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("session store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// PartialFailureError is returned by a replace resolution when the
// candidate was committed but some of the replaced sessions could not be
// cancelled. Committed is always set.
type PartialFailureError struct {
	Committed *Session
	FailedIDs []uuid.UUID
	Errs      []error
}

func (e *PartialFailureError) Error() string {
	ids := make([]string, len(e.FailedIDs))
	for i, id := range e.FailedIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("session committed but %d cancellation(s) failed: %s", len(e.FailedIDs), strings.Join(ids, ", "))
}

func (e *PartialFailureError) Unwrap() []error { return e.Errs }
