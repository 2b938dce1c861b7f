package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
	rosterDomain "github.com/felixgeelhaar/coachbook/internal/roster/domain"
)

// MessageSender is the part of *bot.Bot the notifier uses.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// AthleteLookup resolves a session subject to a roster entry.
type AthleteLookup interface {
	Athlete(ctx context.Context, id uuid.UUID) (*rosterDomain.Athlete, error)
}

// NewTelegramBot creates a bot client for sending only. serverURL
// overrides the Bot API endpoint when set.
func NewTelegramBot(token, serverURL string) (*bot.Bot, error) {
	opts := []bot.Option{bot.WithSkipGetMe()}
	if serverURL != "" {
		opts = append(opts, bot.WithServerURL(serverURL))
	}
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return b, nil
}

// TelegramNotifier messages the athlete a session is booked for. Athletes
// without a Telegram chat are skipped.
type TelegramNotifier struct {
	sender   MessageSender
	athletes AthleteLookup
	logger   *slog.Logger
}

// NewTelegramNotifier creates a new Telegram notifier.
func NewTelegramNotifier(sender MessageSender, athletes AthleteLookup, logger *slog.Logger) *TelegramNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramNotifier{sender: sender, athletes: athletes, logger: logger}
}

func (n *TelegramNotifier) SessionCommitted(ctx context.Context, session *domain.Session, path domain.OutcomeKind) error {
	return n.send(ctx, session, committedText(session, path))
}

func (n *TelegramNotifier) SessionCancelled(ctx context.Context, session *domain.Session, reason string) error {
	return n.send(ctx, session, cancelledText(session, reason))
}

func (n *TelegramNotifier) send(ctx context.Context, session *domain.Session, text string) error {
	athlete, err := n.athletes.Athlete(ctx, session.SubjectID())
	if err != nil {
		if errors.Is(err, rosterDomain.ErrAthleteNotFound) {
			n.logger.DebugContext(ctx, "no roster entry for session subject", "subject_id", session.SubjectID())
			return nil
		}
		return fmt.Errorf("look up athlete: %w", err)
	}
	if !athlete.HasTelegram() {
		return nil
	}

	_, err = n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    athlete.TelegramChatID(),
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("telegram send to %s: %w", athlete.ID(), err)
	}
	return nil
}
