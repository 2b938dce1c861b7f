package commands_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/coachbook/internal/booking/application/commands"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/queries"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/services"
	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
	"github.com/felixgeelhaar/coachbook/internal/booking/infrastructure/memory"
	"github.com/felixgeelhaar/coachbook/internal/booking/infrastructure/persistence"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/outbox"
)

var (
	coachID = uuid.MustParse("7d0c2a52-3f3e-4a43-9c1b-0d6c1e0b5a01")
	monday  = domain.NewDate(2025, time.March, 10)
)

type fixture struct {
	propose *commands.ProposeSessionHandler
	resolve *commands.ResolveConflictHandler
	cancel  *commands.CancelSessionHandler
	list    *queries.ListSessionsHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "coachbook.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn, "", nil))

	sessions := persistence.NewSQLiteSessionRepository(conn)
	svc := services.NewSchedulingService(sessions, database.NewUnitOfWork(conn), outbox.NewSQLiteRepository(conn),
		services.DefaultConfig(), services.Collaborators{
			Locker: memory.NewResourceLocker(),
			Offers: persistence.NewSQLiteOfferStore(conn, time.Minute),
		}, nil)

	return &fixture{
		propose: commands.NewProposeSessionHandler(svc),
		resolve: commands.NewResolveConflictHandler(svc),
		cancel:  commands.NewCancelSessionHandler(svc),
		list:    queries.NewListSessionsHandler(sessions),
	}
}

func spec(start string, minutes int) commands.SessionSpec {
	return commands.SessionSpec{
		ResourceID:      coachID,
		SubjectID:       uuid.New(),
		Title:           "Long run",
		Date:            monday,
		Start:           domain.MustParseClock(start),
		DurationMinutes: minutes,
	}
}

func clock(s string) *domain.Clock {
	c := domain.MustParseClock(s)
	return &c
}

func (f *fixture) book(t *testing.T, start string) queries.SessionDTO {
	t.Helper()
	result, err := f.propose.Handle(context.Background(), commands.ProposeSessionCommand{SessionSpec: spec(start, 60)})
	require.NoError(t, err)
	require.NotNil(t, result.Committed)
	return *result.Committed
}

func TestSessionSpec_Candidate(t *testing.T) {
	s := spec("09:00", 45)
	candidate, err := s.Candidate()
	require.NoError(t, err)
	assert.Equal(t, domain.MustParseClock("09:45"), candidate.End())

	s.End = clock("11:00")
	candidate, err = s.Candidate()
	require.NoError(t, err)
	assert.Equal(t, 120, candidate.DurationMinutes())

	s.End = clock("08:00")
	_, err = s.Candidate()
	assert.ErrorIs(t, err, domain.ErrInvalidTimeRange)
}

func TestProposeSessionHandler_Handle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	booked := f.book(t, "10:00")
	assert.Equal(t, "10:00", booked.Start)
	assert.Equal(t, "11:00", booked.End)

	result, err := f.propose.Handle(ctx, commands.ProposeSessionCommand{SessionSpec: spec("10:30", 60)})
	require.NoError(t, err)
	assert.Nil(t, result.Committed)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, booked.ID, result.Conflicts[0].ID)
	require.NotEmpty(t, result.Slots)
	assert.Equal(t, "08:00", result.Slots[0].Start)

	_, err = f.propose.Handle(ctx, commands.ProposeSessionCommand{SessionSpec: spec("10:30", 0)})
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)
}

func TestResolveConflictHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("reschedule to an offered slot", func(t *testing.T) {
		f := newFixture(t)
		f.book(t, "10:00")
		candidate := spec("10:30", 60)
		_, err := f.propose.Handle(ctx, commands.ProposeSessionCommand{SessionSpec: candidate})
		require.NoError(t, err)

		result, err := f.resolve.Handle(ctx, commands.ResolveConflictCommand{
			SessionSpec: candidate,
			Strategy:    "reschedule",
			SlotStart:   clock("08:00"),
		})

		require.NoError(t, err)
		assert.Equal(t, "reschedule", result.Strategy)
		assert.Equal(t, "08:00", result.Session.Start)
		assert.Equal(t, "09:00", result.Session.End)
		assert.Empty(t, result.FailedCancellations)
	})

	t.Run("slot that was never offered", func(t *testing.T) {
		f := newFixture(t)
		f.book(t, "10:00")
		candidate := spec("10:30", 60)
		_, err := f.propose.Handle(ctx, commands.ProposeSessionCommand{SessionSpec: candidate})
		require.NoError(t, err)

		_, err = f.resolve.Handle(ctx, commands.ResolveConflictCommand{
			SessionSpec: candidate,
			Strategy:    "reschedule",
			SlotStart:   clock("19:00"),
		})

		var stale *domain.StaleSlotError
		assert.ErrorAs(t, err, &stale)
	})

	t.Run("replace cancels the conflict", func(t *testing.T) {
		f := newFixture(t)
		booked := f.book(t, "10:00")
		candidate := spec("10:30", 60)

		result, err := f.resolve.Handle(ctx, commands.ResolveConflictCommand{SessionSpec: candidate, Strategy: "replace"})

		require.NoError(t, err)
		assert.Equal(t, "10:30", result.Session.Start)

		day, err := f.list.Handle(ctx, queries.ListSessionsQuery{ResourceID: coachID, From: monday, IncludeCancelled: true})
		require.NoError(t, err)
		statuses := map[uuid.UUID]string{}
		for _, s := range day {
			statuses[s.ID] = s.Status
		}
		assert.Equal(t, "cancelled", statuses[booked.ID])
		assert.Equal(t, "scheduled", statuses[result.Session.ID])
	})

	t.Run("force keeps both", func(t *testing.T) {
		f := newFixture(t)
		f.book(t, "10:00")

		result, err := f.resolve.Handle(ctx, commands.ResolveConflictCommand{SessionSpec: spec("10:30", 60), Strategy: "force"})

		require.NoError(t, err)
		assert.True(t, result.Session.AllowOverlap)
		day, err := f.list.Handle(ctx, queries.ListSessionsQuery{ResourceID: coachID, From: monday})
		require.NoError(t, err)
		assert.Len(t, day, 2)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.resolve.Handle(ctx, commands.ResolveConflictCommand{SessionSpec: spec("10:30", 60), Strategy: "ignore"})
		assert.ErrorIs(t, err, domain.ErrUnknownStrategy)
	})

	t.Run("no strategy", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.resolve.Handle(ctx, commands.ResolveConflictCommand{SessionSpec: spec("10:30", 60)})
		assert.ErrorIs(t, err, domain.ErrNoStrategy)
	})
}

func TestCancelSessionHandler_Handle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	booked := f.book(t, "10:00")

	cancelled, err := f.cancel.Handle(ctx, commands.CancelSessionCommand{SessionID: booked.ID, Reason: "injury"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)

	_, err = f.cancel.Handle(ctx, commands.CancelSessionCommand{SessionID: booked.ID})
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)

	_, err = f.cancel.Handle(ctx, commands.CancelSessionCommand{SessionID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
