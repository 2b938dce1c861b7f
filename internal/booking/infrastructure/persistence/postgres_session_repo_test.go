package persistence_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
	"github.com/felixgeelhaar/coachbook/internal/booking/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/coachbook/internal/shared/application"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database/postgres"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/migrations"
)

func setupPostgres(t *testing.T) database.Connection {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	conn, err := database.NewConnection(ctx, database.Config{Driver: database.DriverPostgres, URL: dbURL})
	if err != nil {
		t.Skipf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, migrations.Run(ctx, conn, dbURL, nil))
	_, _ = conn.Exec(ctx, "DELETE FROM sessions")
	return conn
}

func TestPostgresSessionRepository_RoundTrip(t *testing.T) {
	conn := setupPostgres(t)
	ctx := context.Background()
	repo := persistence.NewPostgresSessionRepository(conn)

	saved, err := repo.Commit(ctx, session(t, monday, "09:00", "10:30"))
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, saved.ID())
	require.NoError(t, err)
	assert.Equal(t, monday, got.Date())
	assert.Equal(t, domain.MustParseClock("10:30"), got.End())

	day, err := repo.ListSessions(ctx, coachID, domain.SingleDay(monday))
	require.NoError(t, err)
	require.Len(t, day, 1)

	require.NoError(t, repo.Cancel(ctx, saved.ID()))
	assert.ErrorIs(t, repo.Cancel(ctx, saved.ID()), domain.ErrSessionNotFound)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestPostgresSessionRepository_LockResourceInTransaction(t *testing.T) {
	conn := setupPostgres(t)
	ctx := context.Background()
	repo := persistence.NewPostgresSessionRepository(conn)

	require.NoError(t, repo.LockResource(ctx, coachID))

	err := sharedApplication.WithUnitOfWork(ctx, database.NewUnitOfWork(conn), func(txCtx context.Context) error {
		return repo.LockResource(txCtx, coachID)
	})
	assert.NoError(t, err)
}
