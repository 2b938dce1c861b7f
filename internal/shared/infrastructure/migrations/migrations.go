// Package migrations applies the embedded goose migrations for the active
// database driver.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database"
)

//go:embed sqlite/*.sql postgres/*.sql
var embedded embed.FS

// Status describes one migration.
type Status struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// Migrator runs goose against a Connection.
type Migrator struct {
	provider *goose.Provider
	ownsDB   bool
	logger   *slog.Logger
}

// sqlDBer is implemented by connections backed by database/sql.
type sqlDBer interface {
	DB() *sql.DB
}

// New prepares a migrator. SQLite connections are reused directly; for
// PostgreSQL a short-lived database/sql handle is opened from databaseURL
// because goose does not speak pgx pools.
func New(conn database.Connection, databaseURL string, logger *slog.Logger) (*Migrator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		dialect goose.Dialect
		db      *sql.DB
		ownsDB  bool
		dir     string
	)

	switch conn.Driver() {
	case database.DriverSQLite:
		withDB, ok := conn.(sqlDBer)
		if !ok {
			return nil, errors.New("sqlite connection does not expose *sql.DB")
		}
		dialect, db, dir = goose.DialectSQLite3, withDB.DB(), "sqlite"
	case database.DriverPostgres:
		if databaseURL == "" {
			return nil, errors.New("database URL is required for PostgreSQL migrations")
		}
		pqDB, err := sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open migration connection: %w", err)
		}
		dialect, db, ownsDB, dir = goose.DialectPostgres, pqDB, true, "postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", conn.Driver())
	}

	fsys, err := fs.Sub(embedded, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s migrations: %w", dir, err)
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		if ownsDB {
			_ = db.Close()
		}
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}

	return &Migrator{provider: provider, ownsDB: ownsDB, logger: logger}, nil
}

// Up applies all pending migrations and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	results, err := m.provider.Up(ctx)
	for _, r := range results {
		m.logger.Info("migration applied",
			"version", r.Source.Version,
			"path", r.Source.Path,
			"duration", r.Duration,
		)
	}
	if err != nil {
		return len(results), fmt.Errorf("failed to apply migrations: %w", err)
	}
	return len(results), nil
}

// Version returns the current schema version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

// Status lists every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	out := make([]Status, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, Status{
			Version:   s.Source.Version,
			Path:      s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

// Close releases the migration handle. A shared SQLite handle stays open.
func (m *Migrator) Close() error {
	if !m.ownsDB {
		return nil
	}
	return m.provider.Close()
}

// Run applies pending migrations in one call.
func Run(ctx context.Context, conn database.Connection, databaseURL string, logger *slog.Logger) error {
	m, err := New(conn, databaseURL, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	_, err = m.Up(ctx)
	return err
}
