package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// sqliteTimeLayout keeps timestamps fixed-width so they sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z"

const sessionColumns = `id, resource_id, subject_id, title, session_date, start_minute,
	end_minute, status, allow_overlap, created_at, updated_at`

// SQLiteSessionRepository persists sessions in SQLite.
type SQLiteSessionRepository struct {
	conn database.Connection
}

// NewSQLiteSessionRepository creates a new SQLite session repository.
func NewSQLiteSessionRepository(conn database.Connection) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{conn: conn}
}

// ListSessions returns the resource's sessions in the window ordered by
// day and start.
func (r *SQLiteSessionRepository) ListSessions(ctx context.Context, resourceID uuid.UUID, window domain.DateRange) ([]*domain.Session, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE resource_id = ? AND session_date >= ? AND session_date <= ?
		ORDER BY session_date, start_minute, end_minute`,
		resourceID.String(), window.From.String(), window.To.String(),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]*domain.Session, 0)
	for rows.Next() {
		s, err := scanSQLiteSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Commit upserts the session. Transient sessions get their ID here.
func (r *SQLiteSessionRepository) Commit(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	if session.IsTransient() {
		session.AssignID(uuid.New())
	}

	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			session_date = excluded.session_date,
			start_minute = excluded.start_minute,
			end_minute = excluded.end_minute,
			status = excluded.status,
			allow_overlap = excluded.allow_overlap,
			updated_at = excluded.updated_at`,
		session.ID().String(),
		session.ResourceID().String(),
		session.SubjectID().String(),
		session.Title(),
		session.Date().String(),
		int(session.Start()),
		int(session.End()),
		string(session.Status()),
		boolToInt(session.AllowOverlap()),
		formatSQLiteTime(session.CreatedAt()),
		formatSQLiteTime(session.UpdatedAt()),
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Cancel marks an active session cancelled.
func (r *SQLiteSessionRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	exec := database.ExecutorFromContext(ctx, r.conn)
	result, err := exec.Exec(ctx, `
		UPDATE sessions SET status = ?, updated_at = ?
		WHERE id = ? AND status <> ?`,
		string(domain.StatusCancelled),
		formatSQLiteTime(time.Now()),
		id.String(),
		string(domain.StatusCancelled),
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

func (r *SQLiteSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id.String())
	s, err := scanSQLiteSession(row)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// LockResource is a no-op: SQLite runs a single writer and the pool holds
// one connection.
func (r *SQLiteSessionRepository) LockResource(context.Context, uuid.UUID) error {
	return nil
}

func scanSQLiteSession(row database.Row) (*domain.Session, error) {
	var (
		idStr, resourceStr, subjectStr string
		title, dateStr, statusStr      string
		start, end, allowOverlap       int
		createdStr, updatedStr         string
	)
	if err := row.Scan(
		&idStr, &resourceStr, &subjectStr, &title, &dateStr,
		&start, &end, &statusStr, &allowOverlap, &createdStr, &updatedStr,
	); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	resourceID, err := uuid.Parse(resourceStr)
	if err != nil {
		return nil, fmt.Errorf("session %s resource id: %w", id, err)
	}
	subjectID, err := uuid.Parse(subjectStr)
	if err != nil {
		return nil, fmt.Errorf("session %s subject id: %w", id, err)
	}
	date, err := domain.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("session %s date: %w", id, err)
	}
	status, err := domain.ParseStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	createdAt, _ := time.Parse(sqliteTimeLayout, createdStr)
	updatedAt, _ := time.Parse(sqliteTimeLayout, updatedStr)

	return domain.RehydrateSession(id, resourceID, subjectID, title, date,
		domain.Clock(start), domain.Clock(end), status, allowOverlap == 1, createdAt, updatedAt), nil
}

func formatSQLiteTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
