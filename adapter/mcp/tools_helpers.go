package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/coachbook/adapter/cli"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/commands"
	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
	"github.com/felixgeelhaar/coachbook/pkg/observability"
)

// sessionInput describes a candidate session. It is shared by the
// propose, resolve and slots tools.
type sessionInput struct {
	CoachID         string `json:"coach_id,omitempty"`
	AthleteID       string `json:"athlete_id,omitempty"`
	Title           string `json:"title,omitempty"`
	Date            string `json:"date,omitempty"`
	Start           string `json:"start" jsonschema:"required"`
	End             string `json:"end,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

func (in sessionInput) spec(app *cli.App) (commands.SessionSpec, error) {
	coachID, err := resolveCoach(app, in.CoachID)
	if err != nil {
		return commands.SessionSpec{}, err
	}
	subjectID, err := parseOptionalUUID(in.AthleteID)
	if err != nil {
		return commands.SessionSpec{}, err
	}
	day, err := parseDate(in.Date)
	if err != nil {
		return commands.SessionSpec{}, err
	}
	start, err := domain.ParseClock(in.Start)
	if err != nil {
		return commands.SessionSpec{}, err
	}

	spec := commands.SessionSpec{
		ResourceID:      coachID,
		SubjectID:       subjectID,
		Title:           in.Title,
		Date:            day,
		Start:           start,
		DurationMinutes: in.DurationMinutes,
	}
	if spec.DurationMinutes == 0 {
		spec.DurationMinutes = 60
	}
	if in.End != "" {
		end, err := domain.ParseClock(in.End)
		if err != nil {
			return commands.SessionSpec{}, err
		}
		spec.End = &end
	}
	return spec, nil
}

// toolContext starts a correlation chain for one tool call.
func toolContext(ctx context.Context, app *cli.App) context.Context {
	return observability.NewOperationContext(ctx, app.CoachID)
}

// flush delivers the events a tool call produced.
func flush(ctx context.Context, app *cli.App) {
	if app.FlushOutbox != nil {
		app.FlushOutbox(ctx)
	}
}

func resolveCoach(app *cli.App, value string) (uuid.UUID, error) {
	if value == "" {
		if app.CoachID == uuid.Nil {
			return uuid.Nil, errors.New("coach_id is required")
		}
		return app.CoachID, nil
	}
	return parseUUID(value)
}

func parseDate(value string) (domain.Date, error) {
	if value == "" {
		return domain.DateOf(time.Now()), nil
	}
	return domain.ParseDate(value)
}

func parseUUID(value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.UUID{}, errors.New("id is required")
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid id: %w", err)
	}
	return id, nil
}

func parseOptionalUUID(value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, nil
	}
	return parseUUID(value)
}
