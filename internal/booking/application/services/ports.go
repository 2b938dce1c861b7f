package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

// ResourceLocker serializes detect-and-commit per resource across
// processes. The returned func releases the lock.
type ResourceLocker interface {
	Lock(ctx context.Context, resourceID uuid.UUID) (unlock func(), err error)
}

// OfferStore remembers the slots most recently offered for a candidate,
// keyed by the candidate's fingerprint. Load returns nil when nothing is
// stored or the offer expired.
type OfferStore interface {
	Save(ctx context.Context, key string, slots []domain.AlternativeSlot) error
	Load(ctx context.Context, key string) ([]domain.AlternativeSlot, error)
	Delete(ctx context.Context, key string) error
}

// Notifier informs affected people about committed or cancelled sessions.
type Notifier interface {
	SessionCommitted(ctx context.Context, session *domain.Session, path domain.OutcomeKind) error
	SessionCancelled(ctx context.Context, session *domain.Session, reason string) error
}

type nopNotifier struct{}

func (nopNotifier) SessionCommitted(context.Context, *domain.Session, domain.OutcomeKind) error {
	return nil
}

func (nopNotifier) SessionCancelled(context.Context, *domain.Session, string) error {
	return nil
}
