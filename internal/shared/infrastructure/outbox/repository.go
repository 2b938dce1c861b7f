package outbox

import (
	"context"
	"errors"
	"time"
)

// ErrMessageNotFound is returned by Requeue when no dead-lettered message
// has the given ID.
var ErrMessageNotFound = errors.New("outbox message not found")

// Backlog summarizes what is still waiting in the outbox.
type Backlog struct {
	// Pending counts messages neither published nor dead-lettered,
	// including those waiting for a retry.
	Pending int64 `json:"pending"`
	// Dead counts dead-lettered messages awaiting an operator.
	Dead int64 `json:"dead"`
	// OldestPendingAt is the creation time of the oldest pending message.
	OldestPendingAt *time.Time `json:"oldest_pending_at,omitempty"`
}

// Lag is how long the oldest pending message has waited.
func (b Backlog) Lag(now time.Time) time.Duration {
	if b.OldestPendingAt == nil {
		return 0
	}
	return now.Sub(*b.OldestPendingAt)
}

// Repository persists outbox messages next to the sessions they describe.
type Repository interface {
	// Save stores a new message, joining the caller's transaction.
	Save(ctx context.Context, msg *Message) error

	// SaveBatch stores several messages atomically.
	SaveBatch(ctx context.Context, msgs []*Message) error

	// GetUnpublished returns messages due for delivery, oldest first.
	GetUnpublished(ctx context.Context, limit int) ([]*Message, error)

	MarkPublished(ctx context.Context, id int64) error

	// MarkFailed counts a failed delivery and schedules the next attempt.
	MarkFailed(ctx context.Context, id int64, err string, nextRetryAt time.Time) error

	// MarkDead stops delivery attempts for the message.
	MarkDead(ctx context.Context, id int64, reason string) error

	Backlog(ctx context.Context) (Backlog, error)

	// ListDead returns dead-lettered messages, oldest first.
	ListDead(ctx context.Context, limit int) ([]*Message, error)

	// Requeue gives a dead-lettered message a fresh retry budget.
	Requeue(ctx context.Context, id int64) error

	// DeleteOld removes published messages older than the retention period.
	DeleteOld(ctx context.Context, olderThanDays int) (int64, error)
}
