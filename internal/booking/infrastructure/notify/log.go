package notify

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

// LogNotifier writes notifications to the log. It is the fallback when no
// messaging channel is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SessionCommitted(ctx context.Context, session *domain.Session, path domain.OutcomeKind) error {
	n.logger.InfoContext(ctx, "notify: session committed",
		"session_id", session.ID(),
		"subject_id", session.SubjectID(),
		"resolution", string(path),
		"slot", describe(session),
	)
	return nil
}

func (n *LogNotifier) SessionCancelled(ctx context.Context, session *domain.Session, reason string) error {
	n.logger.InfoContext(ctx, "notify: session cancelled",
		"session_id", session.ID(),
		"subject_id", session.SubjectID(),
		"reason", reason,
	)
	return nil
}
