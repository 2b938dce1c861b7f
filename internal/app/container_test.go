package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/coachbook/internal/booking/application/commands"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/queries"
	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
	rosterServices "github.com/felixgeelhaar/coachbook/internal/roster/application/services"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/coachbook/pkg/config"
	"github.com/felixgeelhaar/coachbook/pkg/observability"
)

var coachID = uuid.MustParse("7d0c2a52-3f3e-4a43-9c1b-0d6c1e0b5a01")

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:         "test",
		LocalMode:      true,
		DatabaseDriver: "sqlite",
		SQLitePath:     filepath.Join(t.TempDir(), "coachbook.db"),
		OfferTTL:       time.Minute,
	}
}

func newLocalContainer(t *testing.T, cfg *config.Config) *Container {
	t.Helper()
	c, err := NewContainer(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func sessionSpec(start string) commands.SessionSpec {
	return commands.SessionSpec{
		ResourceID:      coachID,
		SubjectID:       uuid.New(),
		Title:           "Tempo run",
		Date:            domain.NewDate(2025, time.March, 10),
		Start:           domain.MustParseClock(start),
		DurationMinutes: 60,
	}
}

func TestNewContainer_LocalMode(t *testing.T) {
	c := newLocalContainer(t, localConfig(t))

	assert.Equal(t, database.DriverSQLite, c.DBDriver)
	assert.Nil(t, c.RedisClient)
	assert.NotNil(t, c.SessionRepo)
	assert.NotNil(t, c.AthleteRepo)
	assert.NotNil(t, c.OutboxRepo)
	assert.NotNil(t, c.EventBus)
	assert.Same(t, c.EventBus, c.EventPublisher)
	assert.Nil(t, c.CalendarSync)
	assert.NotNil(t, c.Scheduler)
	assert.NotNil(t, c.ProposeSessionHandler)
	assert.NotNil(t, c.ResolveConflictHandler)
	assert.NotNil(t, c.CancelSessionHandler)
	assert.NotNil(t, c.ListSessionsHandler)
	assert.NotNil(t, c.FindSlotsHandler)

	health := c.Health.GetOverallHealth(context.Background())
	assert.Equal(t, observability.HealthStatusHealthy, health.Status)
	assert.Contains(t, health.Checks, "database")
	assert.Contains(t, health.Checks, "outbox")
	assert.NotContains(t, health.Checks, "calendar")
}

func TestNewContainer_InvalidTimezone(t *testing.T) {
	cfg := localConfig(t)
	cfg.CalDAVURL = "https://dav.example.com"
	cfg.CalDAVTimezone = "Mars/Olympus"

	_, err := NewContainer(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestContainer_SlotSearchOptionsFromConfig(t *testing.T) {
	cfg := localConfig(t)
	cfg.SlotCandidateTimes = []int{7 * 60, 18*60 + 30}
	cfg.SlotLookaheadDays = 2
	cfg.SlotMaxResults = 3
	c := newLocalContainer(t, cfg)

	opts := c.slotSearchOptions()

	assert.Equal(t, []domain.Clock{domain.NewClock(7, 0), domain.NewClock(18, 30)}, opts.CandidateTimes)
	assert.Equal(t, 2, opts.LookaheadDays)
	assert.Equal(t, 3, opts.MaxResults)
}

func TestContainer_ProposeAndResolve(t *testing.T) {
	c := newLocalContainer(t, localConfig(t))
	ctx := context.Background()

	first, err := c.ProposeSessionHandler.Handle(ctx, commands.ProposeSessionCommand{SessionSpec: sessionSpec("09:00")})
	require.NoError(t, err)
	require.NotNil(t, first.Committed)

	clash := sessionSpec("09:30")
	second, err := c.ProposeSessionHandler.Handle(ctx, commands.ProposeSessionCommand{SessionSpec: clash})
	require.NoError(t, err)
	assert.Nil(t, second.Committed)
	require.Len(t, second.Conflicts, 1)
	assert.NotEmpty(t, second.Slots)

	resolved, err := c.ResolveConflictHandler.Handle(ctx, commands.ResolveConflictCommand{
		SessionSpec: clash,
		Strategy:    "force",
	})
	require.NoError(t, err)
	assert.True(t, resolved.Session.AllowOverlap)

	list, err := c.ListSessionsHandler.Handle(ctx, queries.ListSessionsQuery{
		ResourceID: coachID,
		From:       domain.NewDate(2025, time.March, 10),
	})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	assert.Equal(t, int64(1), c.Metrics.GetCounter(observability.MetricSessionsCommitted, observability.T("resolution", "direct")))
	assert.Equal(t, int64(1), c.Metrics.GetCounter(observability.MetricSessionsCommitted, observability.T("resolution", "forced")))
}

func TestContainer_Directory(t *testing.T) {
	c := newLocalContainer(t, localConfig(t))
	ctx := context.Background()

	athlete, err := c.Directory.Register(ctx, rosterServices.RegisterAthleteInput{
		CoachID:     coachID,
		DisplayName: "Mara",
	})
	require.NoError(t, err)

	athletes, err := c.Directory.List(ctx, coachID)
	require.NoError(t, err)
	require.Len(t, athletes, 1)
	assert.Equal(t, athlete.ID(), athletes[0].ID())
}

func TestContainer_FlushOutboxSyncsCalendar(t *testing.T) {
	var (
		mu   sync.Mutex
		puts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.Method == http.MethodPut {
			puts = append(puts, r.URL.Path)
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := localConfig(t)
	cfg.CalDAVURL = srv.URL
	cfg.CalDAVCalendar = "/cal/coach"
	cfg.CalDAVTimezone = "UTC"
	c := newLocalContainer(t, cfg)
	require.NotNil(t, c.CalendarSync)

	ctx := context.Background()
	result, err := c.ProposeSessionHandler.Handle(ctx, commands.ProposeSessionCommand{SessionSpec: sessionSpec("07:00")})
	require.NoError(t, err)
	require.NotNil(t, result.Committed)

	c.FlushOutbox(ctx)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, puts, 1)
	assert.True(t, strings.HasSuffix(puts[0], result.Committed.ID.String()+".ics"))
}

func TestContainer_CloseWithoutResources(t *testing.T) {
	c := &Container{Logger: slog.Default()}
	assert.NotPanics(t, c.Close)
}
