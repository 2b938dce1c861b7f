package outbox_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/outbox"
)

func newSQLiteRepo(t *testing.T) (*outbox.SQLiteRepository, database.Connection) {
	t.Helper()
	ctx := context.Background()
	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "outbox.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn, "", nil))
	return outbox.NewSQLiteRepository(conn), conn
}

func TestSQLiteRepository_SaveAndFetch(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSQLiteRepo(t)

	msg := createTestMessage("booking.session.committed")
	msg.Metadata = []byte(`{"correlation_id":"00000000-0000-0000-0000-000000000001"}`)
	require.NoError(t, repo.Save(ctx, msg))
	assert.NotZero(t, msg.ID)

	pending, err := repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	got := pending[0]
	assert.Equal(t, msg.EventID, got.EventID)
	assert.Equal(t, msg.AggregateID, got.AggregateID)
	assert.Equal(t, msg.RoutingKey, got.RoutingKey)
	assert.JSONEq(t, string(msg.Payload), string(got.Payload))
	assert.JSONEq(t, string(msg.Metadata), string(got.Metadata))
	assert.WithinDuration(t, msg.CreatedAt, got.CreatedAt, time.Millisecond)
	assert.Nil(t, got.PublishedAt)
}

func TestSQLiteRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSQLiteRepo(t)

	published := createTestMessage("booking.session.committed")
	failed := createTestMessage("booking.session.committed")
	dead := createTestMessage("booking.session.cancelled")
	require.NoError(t, repo.SaveBatch(ctx, []*outbox.Message{published, failed, dead}))

	require.NoError(t, repo.MarkPublished(ctx, published.ID))
	require.NoError(t, repo.MarkFailed(ctx, failed.ID, "broker down", time.Now().Add(-time.Second)))
	require.NoError(t, repo.MarkDead(ctx, dead.ID, "poison"))

	pending, err := repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, failed.ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].RetryCount)
	require.NotNil(t, pending[0].LastError)
	assert.Equal(t, "broker down", *pending[0].LastError)

	backlog, err := repo.Backlog(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), backlog.Pending)
	assert.Equal(t, int64(1), backlog.Dead)
	require.NotNil(t, backlog.OldestPendingAt)
	assert.WithinDuration(t, failed.CreatedAt, *backlog.OldestPendingAt, time.Millisecond)

	deadList, err := repo.ListDead(ctx, 10)
	require.NoError(t, err)
	require.Len(t, deadList, 1)
	assert.Equal(t, dead.ID, deadList[0].ID)
	require.NotNil(t, deadList[0].DeadLetterReason)
	assert.Equal(t, "poison", *deadList[0].DeadLetterReason)

	require.NoError(t, repo.Requeue(ctx, dead.ID))
	assert.ErrorIs(t, repo.Requeue(ctx, dead.ID), outbox.ErrMessageNotFound)
	assert.ErrorIs(t, repo.Requeue(ctx, published.ID), outbox.ErrMessageNotFound)

	pending, err = repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestSQLiteRepository_EmptyBacklog(t *testing.T) {
	repo, _ := newSQLiteRepo(t)

	backlog, err := repo.Backlog(context.Background())
	require.NoError(t, err)
	assert.Zero(t, backlog.Pending)
	assert.Zero(t, backlog.Dead)
	assert.Nil(t, backlog.OldestPendingAt)
}

func TestSQLiteRepository_FutureRetryIsHidden(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSQLiteRepo(t)

	msg := createTestMessage("booking.session.committed")
	require.NoError(t, repo.Save(ctx, msg))
	require.NoError(t, repo.MarkFailed(ctx, msg.ID, "timeout", time.Now().Add(time.Hour)))

	pending, err := repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSQLiteRepository_SaveBatchJoinsTransaction(t *testing.T) {
	ctx := context.Background()
	repo, conn := newSQLiteRepo(t)
	uow := database.NewUnitOfWork(conn)

	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.SaveBatch(txCtx, []*outbox.Message{createTestMessage("booking.session.committed")}))
	require.NoError(t, uow.Rollback(txCtx))

	pending, err := repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSQLiteRepository_DeleteOld(t *testing.T) {
	ctx := context.Background()
	repo, conn := newSQLiteRepo(t)

	msg := createTestMessage("booking.session.committed")
	require.NoError(t, repo.Save(ctx, msg))
	_, err := conn.Exec(ctx, `UPDATE outbox SET published_at = ? WHERE id = ?`,
		time.Now().AddDate(0, 0, -10).UTC().Format("2006-01-02T15:04:05.000000Z"), msg.ID)
	require.NoError(t, err)

	deleted, err := repo.DeleteOld(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
