package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
	rosterDomain "github.com/felixgeelhaar/coachbook/internal/roster/domain"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*bot.SendMessageParams
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, params)
	return &models.Message{ID: len(f.sent)}, nil
}

type fakeRoster map[uuid.UUID]*rosterDomain.Athlete

func (r fakeRoster) Athlete(_ context.Context, id uuid.UUID) (*rosterDomain.Athlete, error) {
	a, ok := r[id]
	if !ok {
		return nil, rosterDomain.ErrAthleteNotFound
	}
	return a, nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SessionCommitted(ctx context.Context, session *domain.Session, path domain.OutcomeKind) error {
	return m.Called(ctx, session, path).Error(0)
}

func (m *mockNotifier) SessionCancelled(ctx context.Context, session *domain.Session, reason string) error {
	return m.Called(ctx, session, reason).Error(0)
}

func bookedFor(t *testing.T, subject uuid.UUID, title string) *domain.Session {
	t.Helper()
	now := time.Now().UTC()
	return domain.RehydrateSession(uuid.New(), uuid.New(), subject, title,
		domain.NewDate(2025, time.March, 10), domain.MustParseClock("10:00"), domain.MustParseClock("11:00"),
		domain.StatusScheduled, false, now, now)
}

func TestTelegramNotifier(t *testing.T) {
	ctx := context.Background()
	coach := uuid.New()
	withChat, err := rosterDomain.NewAthlete(coach, "Mara", "", 5150)
	require.NoError(t, err)
	noChat, err := rosterDomain.NewAthlete(coach, "Jonas", "", 0)
	require.NoError(t, err)
	roster := fakeRoster{withChat.ID(): withChat, noChat.ID(): noChat}

	t.Run("messages the athlete", func(t *testing.T) {
		sender := &fakeSender{}
		n := NewTelegramNotifier(sender, roster, nil)

		require.NoError(t, n.SessionCommitted(ctx, bookedFor(t, withChat.ID(), "Hill <repeats>"), domain.OutcomeRescheduled))

		require.Len(t, sender.sent, 1)
		msg := sender.sent[0]
		assert.Equal(t, int64(5150), msg.ChatID)
		assert.Equal(t, models.ParseModeHTML, msg.ParseMode)
		assert.Contains(t, msg.Text, "Hill &lt;repeats&gt; on 2025-03-10, 10:00-11:00")
		assert.Contains(t, msg.Text, "new time")
	})

	t.Run("cancellation carries the reason", func(t *testing.T) {
		sender := &fakeSender{}
		n := NewTelegramNotifier(sender, roster, nil)

		require.NoError(t, n.SessionCancelled(ctx, bookedFor(t, withChat.ID(), ""), "coach travelling"))

		require.Len(t, sender.sent, 1)
		assert.Contains(t, sender.sent[0].Text, "Session on 2025-03-10")
		assert.Contains(t, sender.sent[0].Text, "Reason: coach travelling")
	})

	t.Run("skips athletes without a chat or roster entry", func(t *testing.T) {
		sender := &fakeSender{}
		n := NewTelegramNotifier(sender, roster, nil)

		require.NoError(t, n.SessionCommitted(ctx, bookedFor(t, noChat.ID(), "Easy"), domain.OutcomeDirect))
		require.NoError(t, n.SessionCommitted(ctx, bookedFor(t, uuid.New(), "Easy"), domain.OutcomeDirect))
		assert.Empty(t, sender.sent)
	})

	t.Run("send failure is returned", func(t *testing.T) {
		sender := &fakeSender{err: errors.New("429 too many requests")}
		n := NewTelegramNotifier(sender, roster, nil)

		err := n.SessionCommitted(ctx, bookedFor(t, withChat.ID(), "Easy"), domain.OutcomeDirect)
		assert.ErrorContains(t, err, "429")
	})
}

func TestNewTelegramBot_SendsThroughServerURL(t *testing.T) {
	var gotPath string
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":5150,"type":"private"}}}`))
	}))
	defer server.Close()

	b, err := NewTelegramBot("123:abc", server.URL)
	require.NoError(t, err)

	msg, err := b.SendMessage(context.Background(), &bot.SendMessageParams{ChatID: int64(5150), Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, 7, msg.ID)
	assert.True(t, strings.HasSuffix(gotPath, "/sendMessage"))
	assert.Contains(t, string(body), "hello")
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	session := bookedFor(t, uuid.New(), "Long run")

	require.NoError(t, n.SessionCommitted(context.Background(), session, domain.OutcomeForced))
	require.NoError(t, n.SessionCancelled(context.Background(), session, "rain"))

	assert.Contains(t, buf.String(), "resolution=forced")
	assert.Contains(t, buf.String(), "reason=rain")
}

func TestMultiNotifier(t *testing.T) {
	ctx := context.Background()
	session := bookedFor(t, uuid.New(), "Intervals")
	failing := new(mockNotifier)
	healthy := new(mockNotifier)
	boom := errors.New("boom")
	failing.On("SessionCommitted", ctx, session, domain.OutcomeDirect).Return(boom)
	healthy.On("SessionCommitted", ctx, session, domain.OutcomeDirect).Return(nil)
	failing.On("SessionCancelled", ctx, session, "x").Return(nil)
	healthy.On("SessionCancelled", ctx, session, "x").Return(nil)

	multi := NewMultiNotifier(failing, healthy)

	assert.ErrorIs(t, multi.SessionCommitted(ctx, session, domain.OutcomeDirect), boom)
	assert.NoError(t, multi.SessionCancelled(ctx, session, "x"))
	healthy.AssertExpectations(t)
}

func TestBreakerNotifier(t *testing.T) {
	ctx := context.Background()
	session := bookedFor(t, uuid.New(), "Intervals")
	next := new(mockNotifier)
	boom := errors.New("telegram down")
	next.On("SessionCommitted", ctx, session, domain.OutcomeDirect).Return(boom)

	cfg := DefaultBreakerConfig("telegram")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour
	n := NewBreakerNotifier(next, cfg, nil)

	assert.ErrorIs(t, n.SessionCommitted(ctx, session, domain.OutcomeDirect), boom)
	assert.ErrorIs(t, n.SessionCommitted(ctx, session, domain.OutcomeDirect), boom)
	assert.Equal(t, "open", n.State())

	err := n.SessionCommitted(ctx, session, domain.OutcomeDirect)
	assert.ErrorIs(t, err, ErrNotifierUnavailable)
	next.AssertNumberOfCalls(t, "SessionCommitted", 2)
}
