package notify

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/coachbook/internal/booking/application/services"
	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

// MultiNotifier fans out to every notifier and joins their errors.
type MultiNotifier struct {
	notifiers []services.Notifier
}

func NewMultiNotifier(notifiers ...services.Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

func (m *MultiNotifier) SessionCommitted(ctx context.Context, session *domain.Session, path domain.OutcomeKind) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.SessionCommitted(ctx, session, path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiNotifier) SessionCancelled(ctx context.Context, session *domain.Session, reason string) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.SessionCancelled(ctx, session, reason); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
