package domain

import (
	"context"

	"github.com/google/uuid"
)

// SessionRepository is the session store. Implementations join the unit
// of work carried by ctx.
type SessionRepository interface {
	// ListSessions returns every session of the resource within the range,
	// whatever its status.
	ListSessions(ctx context.Context, resourceID uuid.UUID, window DateRange) ([]*Session, error)
	// Commit inserts or updates the session, assigning an ID to new ones.
	Commit(ctx context.Context, session *Session) (*Session, error)
	// Cancel marks the session cancelled. Returns ErrSessionNotFound when
	// no active session has that ID.
	Cancel(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)
	// LockResource serializes writers of one resource for the lifetime of
	// the current transaction, where the backend supports it.
	LockResource(ctx context.Context, resourceID uuid.UUID) error
}
