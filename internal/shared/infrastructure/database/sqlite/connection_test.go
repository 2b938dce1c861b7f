package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database"
)

func openTestConnection(t *testing.T) database.Connection {
	t.Helper()
	conn, err := database.NewConnection(context.Background(), database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = conn.Exec(context.Background(), `CREATE TABLE notes (id TEXT PRIMARY KEY, body TEXT NOT NULL)`)
	require.NoError(t, err)
	return conn
}

func countNotes(t *testing.T, conn database.Connection) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow(context.Background(), `SELECT COUNT(*) FROM notes`).Scan(&n))
	return n
}

func TestNewConnection_RegisteredDriver(t *testing.T) {
	conn := openTestConnection(t)

	assert.Equal(t, database.DriverSQLite, conn.Driver())
	assert.NoError(t, conn.Ping(context.Background()))

	sqliteConn, ok := conn.(*Connection)
	require.True(t, ok)
	assert.NotNil(t, sqliteConn.DB())
}

func TestConnection_ExecAndQuery(t *testing.T) {
	ctx := context.Background()
	conn := openTestConnection(t)

	res, err := conn.Exec(ctx, `INSERT INTO notes (id, body) VALUES (?, ?)`, "1", "warm-up")
	require.NoError(t, err)
	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	_, err = conn.Exec(ctx, `INSERT INTO notes (id, body) VALUES (?, ?)`, "2", "intervals")
	require.NoError(t, err)

	rows, err := conn.Query(ctx, `SELECT body FROM notes ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	var bodies []string
	for rows.Next() {
		var body string
		require.NoError(t, rows.Scan(&body))
		bodies = append(bodies, body)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"warm-up", "intervals"}, bodies)
}

func TestConnection_QueryRowNoRows(t *testing.T) {
	conn := openTestConnection(t)

	var body string
	err := conn.QueryRow(context.Background(), `SELECT body FROM notes WHERE id = ?`, "missing").Scan(&body)
	assert.True(t, database.IsNoRows(err))
}

func TestUnitOfWork_CommitPersists(t *testing.T) {
	ctx := context.Background()
	conn := openTestConnection(t)
	uow := database.NewUnitOfWork(conn)

	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)

	exec := database.ExecutorFromContext(txCtx, conn)
	_, err = exec.Exec(txCtx, `INSERT INTO notes (id, body) VALUES (?, ?)`, "1", "tempo")
	require.NoError(t, err)
	require.NoError(t, uow.Commit(txCtx))

	assert.Equal(t, 1, countNotes(t, conn))
}

func TestUnitOfWork_RollbackDiscards(t *testing.T) {
	ctx := context.Background()
	conn := openTestConnection(t)
	uow := database.NewUnitOfWork(conn)

	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)

	exec := database.ExecutorFromContext(txCtx, conn)
	_, err = exec.Exec(txCtx, `INSERT INTO notes (id, body) VALUES (?, ?)`, "1", "tempo")
	require.NoError(t, err)
	require.NoError(t, uow.Rollback(txCtx))

	assert.Equal(t, 0, countNotes(t, conn))
}

func TestUnitOfWork_NestedBeginJoinsOuter(t *testing.T) {
	ctx := context.Background()
	conn := openTestConnection(t)
	uow := database.NewUnitOfWork(conn)

	outer, err := uow.Begin(ctx)
	require.NoError(t, err)
	inner, err := uow.Begin(outer)
	require.NoError(t, err)

	assert.Same(t, database.TxFromContext(outer), database.TxFromContext(inner))

	_, err = database.ExecutorFromContext(inner, conn).Exec(inner, `INSERT INTO notes (id, body) VALUES (?, ?)`, "1", "hill sprints")
	require.NoError(t, err)

	// Committing the inner unit leaves the outer transaction open.
	require.NoError(t, uow.Commit(inner))
	require.NoError(t, uow.Rollback(outer))

	assert.Equal(t, 0, countNotes(t, conn))
}

func TestUnitOfWork_NoTransaction(t *testing.T) {
	uow := database.NewUnitOfWork(openTestConnection(t))

	assert.ErrorIs(t, uow.Commit(context.Background()), database.ErrNoTransaction)
	assert.ErrorIs(t, uow.Rollback(context.Background()), database.ErrNoTransaction)
}
