package persistence_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/coachbook/internal/booking/application/services"
	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
	"github.com/felixgeelhaar/coachbook/internal/booking/infrastructure/memory"
	"github.com/felixgeelhaar/coachbook/internal/booking/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/coachbook/internal/shared/application"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/outbox"
)

var (
	coachID = uuid.MustParse("7d0c2a52-3f3e-4a43-9c1b-0d6c1e0b5a01")
	monday  = domain.NewDate(2025, time.March, 10)
)

func newConn(t *testing.T) database.Connection {
	t.Helper()
	ctx := context.Background()
	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "coachbook.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn, "", nil))
	return conn
}

func session(t *testing.T, day domain.Date, start, end string) *domain.Session {
	t.Helper()
	s, err := domain.NewSession(coachID, uuid.New(), "Tempo run", day,
		domain.MustParseClock(start), domain.MustParseClock(end))
	require.NoError(t, err)
	return s
}

func TestSQLiteSessionRepository_CommitAndFind(t *testing.T) {
	ctx := context.Background()
	repo := persistence.NewSQLiteSessionRepository(newConn(t))

	s := session(t, monday, "09:15", "10:00")
	saved, err := repo.Commit(ctx, s)
	require.NoError(t, err)
	require.False(t, saved.IsTransient())

	got, err := repo.FindByID(ctx, saved.ID())
	require.NoError(t, err)
	assert.Equal(t, saved.ID(), got.ID())
	assert.Equal(t, coachID, got.ResourceID())
	assert.Equal(t, s.SubjectID(), got.SubjectID())
	assert.Equal(t, "Tempo run", got.Title())
	assert.Equal(t, monday, got.Date())
	assert.Equal(t, domain.MustParseClock("09:15"), got.Start())
	assert.Equal(t, domain.MustParseClock("10:00"), got.End())
	assert.Equal(t, domain.StatusScheduled, got.Status())
	assert.False(t, got.AllowOverlap())
	assert.WithinDuration(t, s.CreatedAt(), got.CreatedAt(), time.Millisecond)

	t.Run("upsert keeps identity", func(t *testing.T) {
		got.PermitOverlap()
		require.NoError(t, got.RescheduleTo(monday, domain.MustParseClock("11:00")))
		_, err := repo.Commit(ctx, got)
		require.NoError(t, err)

		again, err := repo.FindByID(ctx, saved.ID())
		require.NoError(t, err)
		assert.Equal(t, domain.MustParseClock("11:00"), again.Start())
		assert.Equal(t, domain.MustParseClock("11:45"), again.End())
		assert.True(t, again.AllowOverlap())
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestSQLiteSessionRepository_ListSessions(t *testing.T) {
	ctx := context.Background()
	repo := persistence.NewSQLiteSessionRepository(newConn(t))

	late := session(t, monday, "15:00", "16:00")
	early := session(t, monday, "08:00", "09:00")
	tuesday := session(t, monday.AddDays(1), "07:00", "08:00")
	other, err := domain.NewSession(uuid.New(), uuid.New(), "Other coach", monday,
		domain.MustParseClock("08:00"), domain.MustParseClock("09:00"))
	require.NoError(t, err)
	for _, s := range []*domain.Session{late, early, tuesday, other} {
		_, err := repo.Commit(ctx, s)
		require.NoError(t, err)
	}

	day, err := repo.ListSessions(ctx, coachID, domain.SingleDay(monday))
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, early.ID(), day[0].ID())
	assert.Equal(t, late.ID(), day[1].ID())

	window, err := domain.NewDateRange(monday, monday.AddDays(6))
	require.NoError(t, err)
	week, err := repo.ListSessions(ctx, coachID, window)
	require.NoError(t, err)
	assert.Len(t, week, 3)

	empty, err := repo.ListSessions(ctx, coachID, domain.SingleDay(monday.AddDays(-1)))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSQLiteSessionRepository_Cancel(t *testing.T) {
	ctx := context.Background()
	repo := persistence.NewSQLiteSessionRepository(newConn(t))

	saved, err := repo.Commit(ctx, session(t, monday, "10:00", "11:00"))
	require.NoError(t, err)

	require.NoError(t, repo.Cancel(ctx, saved.ID()))
	got, err := repo.FindByID(ctx, saved.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status())

	assert.ErrorIs(t, repo.Cancel(ctx, saved.ID()), domain.ErrSessionNotFound)
	assert.ErrorIs(t, repo.Cancel(ctx, uuid.New()), domain.ErrSessionNotFound)
}

func TestSQLiteSessionRepository_RollbackDiscardsCommit(t *testing.T) {
	ctx := context.Background()
	conn := newConn(t)
	repo := persistence.NewSQLiteSessionRepository(conn)
	uow := database.NewUnitOfWork(conn)

	boom := errors.New("boom")
	var id uuid.UUID
	err := sharedApplication.WithUnitOfWork(ctx, uow, func(txCtx context.Context) error {
		saved, err := repo.Commit(txCtx, session(t, monday, "10:00", "11:00"))
		require.NoError(t, err)
		id = saved.ID()
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.FindByID(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSchedulingService_OnSQLite(t *testing.T) {
	ctx := context.Background()
	conn := newConn(t)
	sessions := persistence.NewSQLiteSessionRepository(conn)
	outboxRepo := outbox.NewSQLiteRepository(conn)
	svc := services.NewSchedulingService(sessions, database.NewUnitOfWork(conn), outboxRepo,
		services.DefaultConfig(), services.Collaborators{
			Locker: memory.NewResourceLocker(),
			Offers: persistence.NewSQLiteOfferStore(conn, time.Minute),
		}, nil)

	first, conflicts, err := svc.ProposeSession(ctx, session(t, monday, "10:00", "11:00"))
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Empty(t, conflicts)

	candidate := session(t, monday, "10:30", "11:30")
	proposal, err := svc.Propose(ctx, candidate)
	require.NoError(t, err)
	require.Len(t, proposal.Conflicts, 1)
	assert.Equal(t, first.ID(), proposal.Conflicts[0].ID())
	require.NotEmpty(t, proposal.Slots)

	chosen := proposal.Slots[0]
	moved, err := svc.ResolveAndCommit(ctx, candidate, proposal.Conflicts, domain.StrategyReschedule, &chosen)
	require.NoError(t, err)

	day, err := sessions.ListSessions(ctx, coachID, domain.SingleDay(chosen.Date))
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(day))
	for _, s := range day {
		ids = append(ids, s.ID())
	}
	assert.Contains(t, ids, moved.ID())
	assert.Empty(t, domain.DetectConflicts(moved, day))

	pending, err := outboxRepo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, msg := range pending {
		assert.Equal(t, domain.RoutingKeySessionCommitted, msg.RoutingKey)
	}
}
