package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// PostgresSessionRepository persists sessions in PostgreSQL.
type PostgresSessionRepository struct {
	conn database.Connection
}

// NewPostgresSessionRepository creates a new PostgreSQL session repository.
func NewPostgresSessionRepository(conn database.Connection) *PostgresSessionRepository {
	return &PostgresSessionRepository{conn: conn}
}

func (r *PostgresSessionRepository) ListSessions(ctx context.Context, resourceID uuid.UUID, window domain.DateRange) ([]*domain.Session, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE resource_id = $1 AND session_date BETWEEN $2 AND $3
		ORDER BY session_date, start_minute, end_minute`,
		resourceID, window.From.Time(), window.To.Time(),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]*domain.Session, 0)
	for rows.Next() {
		s, err := scanPostgresSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *PostgresSessionRepository) Commit(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	if session.IsTransient() {
		session.AssignID(uuid.New())
	}

	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			session_date = EXCLUDED.session_date,
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute,
			status = EXCLUDED.status,
			allow_overlap = EXCLUDED.allow_overlap,
			updated_at = EXCLUDED.updated_at`,
		session.ID(),
		session.ResourceID(),
		session.SubjectID(),
		session.Title(),
		session.Date().Time(),
		int(session.Start()),
		int(session.End()),
		string(session.Status()),
		session.AllowOverlap(),
		nonZeroTime(session.CreatedAt()),
		nonZeroTime(session.UpdatedAt()),
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *PostgresSessionRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	exec := database.ExecutorFromContext(ctx, r.conn)
	result, err := exec.Exec(ctx, `
		UPDATE sessions SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status <> $1`,
		string(domain.StatusCancelled), id,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *PostgresSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	s, err := scanPostgresSession(row)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// LockResource takes a transaction-scoped advisory lock on the resource,
// so writers in other processes wait until the current transaction ends.
// Outside a transaction it does nothing.
func (r *PostgresSessionRepository) LockResource(ctx context.Context, resourceID uuid.UUID) error {
	tx := database.TxFromContext(ctx)
	if tx == nil {
		return nil
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, resourceID.String()); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

func scanPostgresSession(row database.Row) (*domain.Session, error) {
	var (
		id, resourceID, subjectID uuid.UUID
		title, statusStr          string
		day                       time.Time
		start, end                int
		allowOverlap              bool
		createdAt, updatedAt      time.Time
	)
	if err := row.Scan(
		&id, &resourceID, &subjectID, &title, &day,
		&start, &end, &statusStr, &allowOverlap, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	status, err := domain.ParseStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return domain.RehydrateSession(id, resourceID, subjectID, title, domain.DateOf(day),
		domain.Clock(start), domain.Clock(end), status, allowOverlap, createdAt, updatedAt), nil
}

func nonZeroTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
