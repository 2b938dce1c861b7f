package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/felixgeelhaar/coachbook/internal/roster/domain"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z"

const athleteColumns = `id, coach_id, display_name, email, telegram_chat_id, created_at, updated_at`

// SQLiteAthleteRepository persists athletes in SQLite.
type SQLiteAthleteRepository struct {
	conn database.Connection
}

// NewSQLiteAthleteRepository creates a new SQLite athlete repository.
func NewSQLiteAthleteRepository(conn database.Connection) *SQLiteAthleteRepository {
	return &SQLiteAthleteRepository{conn: conn}
}

func (r *SQLiteAthleteRepository) Save(ctx context.Context, athlete *domain.Athlete) error {
	var chatID sql.NullInt64
	if athlete.HasTelegram() {
		chatID = sql.NullInt64{Int64: athlete.TelegramChatID(), Valid: true}
	}

	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, `
		INSERT INTO athletes (`+athleteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			display_name = excluded.display_name,
			email = excluded.email,
			telegram_chat_id = excluded.telegram_chat_id,
			updated_at = excluded.updated_at`,
		athlete.ID().String(),
		athlete.CoachID().String(),
		athlete.DisplayName(),
		athlete.Email(),
		chatID,
		athlete.CreatedAt().UTC().Format(sqliteTimeLayout),
		athlete.UpdatedAt().UTC().Format(sqliteTimeLayout),
	)
	return err
}

func (r *SQLiteAthleteRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Athlete, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, `SELECT `+athleteColumns+` FROM athletes WHERE id = ?`, id.String())
	athlete, err := scanSQLiteAthlete(row)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrAthleteNotFound
		}
		return nil, err
	}
	return athlete, nil
}

func (r *SQLiteAthleteRepository) ListByCoach(ctx context.Context, coachID uuid.UUID) ([]*domain.Athlete, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, `
		SELECT `+athleteColumns+`
		FROM athletes
		WHERE coach_id = ?
		ORDER BY display_name`,
		coachID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	athletes := make([]*domain.Athlete, 0)
	for rows.Next() {
		athlete, err := scanSQLiteAthlete(rows)
		if err != nil {
			return nil, err
		}
		athletes = append(athletes, athlete)
	}
	return athletes, rows.Err()
}

func scanSQLiteAthlete(row database.Row) (*domain.Athlete, error) {
	var (
		idStr, coachStr, name, email string
		chatID                       sql.NullInt64
		createdStr, updatedStr       string
	)
	if err := row.Scan(&idStr, &coachStr, &name, &email, &chatID, &createdStr, &updatedStr); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("athlete id: %w", err)
	}
	coachID, err := uuid.Parse(coachStr)
	if err != nil {
		return nil, fmt.Errorf("athlete %s coach id: %w", id, err)
	}
	createdAt, _ := time.Parse(sqliteTimeLayout, createdStr)
	updatedAt, _ := time.Parse(sqliteTimeLayout, updatedStr)

	return domain.RehydrateAthlete(id, coachID, name, email, chatID.Int64, createdAt, updatedAt), nil
}
