package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/coachbook/internal/roster/domain"
	"github.com/google/uuid"
)

// RegisterAthleteInput holds the fields needed to add an athlete.
type RegisterAthleteInput struct {
	CoachID        uuid.UUID
	DisplayName    string
	Email          string
	TelegramChatID int64
}

// Directory looks up the athletes sessions are booked for.
type Directory struct {
	repo   domain.Repository
	logger *slog.Logger
}

// NewDirectory creates a new athlete directory.
func NewDirectory(repo domain.Repository, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{repo: repo, logger: logger}
}

// Register adds an athlete to a coach's roster.
func (d *Directory) Register(ctx context.Context, input RegisterAthleteInput) (*domain.Athlete, error) {
	athlete, err := domain.NewAthlete(input.CoachID, input.DisplayName, input.Email, input.TelegramChatID)
	if err != nil {
		return nil, err
	}
	if err := d.repo.Save(ctx, athlete); err != nil {
		return nil, fmt.Errorf("save athlete: %w", err)
	}

	d.logger.InfoContext(ctx, "athlete registered",
		"athlete_id", athlete.ID(),
		"coach_id", athlete.CoachID(),
	)
	return athlete, nil
}

// Athlete returns domain.ErrAthleteNotFound for unknown ids.
func (d *Directory) Athlete(ctx context.Context, id uuid.UUID) (*domain.Athlete, error) {
	return d.repo.FindByID(ctx, id)
}

func (d *Directory) List(ctx context.Context, coachID uuid.UUID) ([]*domain.Athlete, error) {
	return d.repo.ListByCoach(ctx, coachID)
}
