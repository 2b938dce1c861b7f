package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores athletes.
type Repository interface {
	Save(ctx context.Context, athlete *Athlete) error
	// FindByID returns ErrAthleteNotFound when there is no such athlete.
	FindByID(ctx context.Context, id uuid.UUID) (*Athlete, error)
	ListByCoach(ctx context.Context, coachID uuid.UUID) ([]*Athlete, error)
}
