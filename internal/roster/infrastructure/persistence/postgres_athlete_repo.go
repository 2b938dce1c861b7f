package persistence

import (
	"context"
	"time"

	"github.com/felixgeelhaar/coachbook/internal/roster/domain"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// PostgresAthleteRepository persists athletes in PostgreSQL.
type PostgresAthleteRepository struct {
	conn database.Connection
}

// NewPostgresAthleteRepository creates a new PostgreSQL athlete repository.
func NewPostgresAthleteRepository(conn database.Connection) *PostgresAthleteRepository {
	return &PostgresAthleteRepository{conn: conn}
}

func (r *PostgresAthleteRepository) Save(ctx context.Context, athlete *domain.Athlete) error {
	var chatID *int64
	if athlete.HasTelegram() {
		id := athlete.TelegramChatID()
		chatID = &id
	}

	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, `
		INSERT INTO athletes (`+athleteColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			telegram_chat_id = EXCLUDED.telegram_chat_id,
			updated_at = EXCLUDED.updated_at`,
		athlete.ID(),
		athlete.CoachID(),
		athlete.DisplayName(),
		athlete.Email(),
		chatID,
		athlete.CreatedAt(),
		athlete.UpdatedAt(),
	)
	return err
}

func (r *PostgresAthleteRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Athlete, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, `SELECT `+athleteColumns+` FROM athletes WHERE id = $1`, id)
	athlete, err := scanPostgresAthlete(row)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrAthleteNotFound
		}
		return nil, err
	}
	return athlete, nil
}

func (r *PostgresAthleteRepository) ListByCoach(ctx context.Context, coachID uuid.UUID) ([]*domain.Athlete, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, `
		SELECT `+athleteColumns+`
		FROM athletes
		WHERE coach_id = $1
		ORDER BY display_name`,
		coachID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	athletes := make([]*domain.Athlete, 0)
	for rows.Next() {
		athlete, err := scanPostgresAthlete(rows)
		if err != nil {
			return nil, err
		}
		athletes = append(athletes, athlete)
	}
	return athletes, rows.Err()
}

func scanPostgresAthlete(row database.Row) (*domain.Athlete, error) {
	var (
		id, coachID          uuid.UUID
		name, email          string
		chatID               *int64
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &coachID, &name, &email, &chatID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var chat int64
	if chatID != nil {
		chat = *chatID
	}
	return domain.RehydrateAthlete(id, coachID, name, email, chat, createdAt, updatedAt), nil
}
