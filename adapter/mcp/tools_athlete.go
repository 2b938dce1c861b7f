package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/google/uuid"

	rosterServices "github.com/felixgeelhaar/coachbook/internal/roster/application/services"
	rosterDomain "github.com/felixgeelhaar/coachbook/internal/roster/domain"
)

type athleteAddInput struct {
	DisplayName    string `json:"display_name" jsonschema:"required"`
	Email          string `json:"email,omitempty"`
	TelegramChatID int64  `json:"telegram_chat_id,omitempty"`
}

type athleteListInput struct{}

type athleteDTO struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	HasTelegram bool      `json:"has_telegram"`
}

func toAthleteDTO(a *rosterDomain.Athlete) athleteDTO {
	return athleteDTO{
		ID:          a.ID(),
		DisplayName: a.DisplayName(),
		Email:       a.Email(),
		HasTelegram: a.HasTelegram(),
	}
}

func registerAthleteTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("athlete.add").
		Description("Add an athlete to the coach's roster").
		Handler(func(ctx context.Context, input athleteAddInput) (*athleteDTO, error) {
			if app == nil || app.Directory == nil {
				return nil, errors.New("roster requires database connection")
			}
			if app.CoachID == uuid.Nil {
				return nil, errors.New("no coach configured")
			}

			athlete, err := app.Directory.Register(ctx, rosterServices.RegisterAthleteInput{
				CoachID:        app.CoachID,
				DisplayName:    input.DisplayName,
				Email:          input.Email,
				TelegramChatID: input.TelegramChatID,
			})
			if err != nil {
				return nil, err
			}
			dto := toAthleteDTO(athlete)
			return &dto, nil
		})

	srv.Tool("athlete.list").
		Description("List the athletes on the coach's roster").
		Handler(func(ctx context.Context, input athleteListInput) ([]athleteDTO, error) {
			return listAthletes(ctx, deps)
		})

	return nil
}

func listAthletes(ctx context.Context, deps ToolDependencies) ([]athleteDTO, error) {
	app := deps.App
	if app == nil || app.Directory == nil {
		return nil, errors.New("roster requires database connection")
	}
	athletes, err := app.Directory.List(ctx, app.CoachID)
	if err != nil {
		return nil, err
	}
	dtos := make([]athleteDTO, len(athletes))
	for i, a := range athletes {
		dtos[i] = toAthleteDTO(a)
	}
	return dtos, nil
}
