package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/coachbook/internal/booking/application/commands"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/queries"
	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

type sessionResolveInput struct {
	CoachID         string `json:"coach_id,omitempty"`
	AthleteID       string `json:"athlete_id,omitempty"`
	Title           string `json:"title,omitempty"`
	Date            string `json:"date,omitempty"`
	Start           string `json:"start" jsonschema:"required"`
	End             string `json:"end,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Strategy        string `json:"strategy" jsonschema:"required"`
	SlotDate        string `json:"slot_date,omitempty"`
	SlotStart       string `json:"slot_start,omitempty"`
}

func (in sessionResolveInput) candidate() sessionInput {
	return sessionInput{
		CoachID:         in.CoachID,
		AthleteID:       in.AthleteID,
		Title:           in.Title,
		Date:            in.Date,
		Start:           in.Start,
		End:             in.End,
		DurationMinutes: in.DurationMinutes,
	}
}

type sessionCancelInput struct {
	SessionID string `json:"session_id" jsonschema:"required"`
	Reason    string `json:"reason,omitempty"`
}

type sessionListInput struct {
	CoachID          string `json:"coach_id,omitempty"`
	From             string `json:"from,omitempty"`
	To               string `json:"to,omitempty"`
	IncludeCancelled bool   `json:"include_cancelled,omitempty"`
}

// sessionResolveOutput carries the result of a resolve. Warning is set when
// a replace committed but left some sessions uncancelled.
type sessionResolveOutput struct {
	*commands.ResolveConflictResult
	Warning string `json:"warning,omitempty"`
}

func registerSessionTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("session.propose").
		Description("Propose a coaching session. Books it when the slot is free, otherwise returns the conflicts and free alternative slots").
		Handler(func(ctx context.Context, input sessionInput) (*commands.ProposeSessionResult, error) {
			if app == nil || app.ProposeSessionHandler == nil {
				return nil, errors.New("session booking requires database connection")
			}
			ctx = toolContext(ctx, app)
			spec, err := input.spec(app)
			if err != nil {
				return nil, err
			}

			result, err := app.ProposeSessionHandler.Handle(ctx, commands.ProposeSessionCommand{SessionSpec: spec})
			if err != nil {
				return nil, err
			}
			flush(ctx, app)
			return result, nil
		})

	srv.Tool("session.resolve").
		Description("Resolve a conflicting proposal with strategy reschedule (pick slot_start/slot_date from the offered slots), replace or force").
		Handler(func(ctx context.Context, input sessionResolveInput) (*sessionResolveOutput, error) {
			if app == nil || app.ResolveConflictHandler == nil {
				return nil, errors.New("session booking requires database connection")
			}
			ctx = toolContext(ctx, app)
			spec, err := input.candidate().spec(app)
			if err != nil {
				return nil, err
			}

			cmd := commands.ResolveConflictCommand{SessionSpec: spec, Strategy: input.Strategy}
			if input.SlotStart != "" {
				start, err := domain.ParseClock(input.SlotStart)
				if err != nil {
					return nil, err
				}
				cmd.SlotStart = &start
			}
			if input.SlotDate != "" {
				day, err := domain.ParseDate(input.SlotDate)
				if err != nil {
					return nil, err
				}
				cmd.SlotDate = &day
			}

			result, err := app.ResolveConflictHandler.Handle(ctx, cmd)
			var partial *domain.PartialFailureError
			if err != nil && !errors.As(err, &partial) {
				return nil, err
			}
			flush(ctx, app)

			out := &sessionResolveOutput{ResolveConflictResult: result}
			if partial != nil {
				out.Warning = partial.Error()
			}
			return out, nil
		})

	srv.Tool("session.cancel").
		Description("Cancel a session and free its slot").
		Handler(func(ctx context.Context, input sessionCancelInput) (*queries.SessionDTO, error) {
			if app == nil || app.CancelSessionHandler == nil {
				return nil, errors.New("session cancellation requires database connection")
			}
			ctx = toolContext(ctx, app)
			sessionID, err := parseUUID(input.SessionID)
			if err != nil {
				return nil, err
			}

			cancelled, err := app.CancelSessionHandler.Handle(ctx, commands.CancelSessionCommand{
				SessionID: sessionID,
				Reason:    input.Reason,
			})
			if err != nil {
				return nil, err
			}
			flush(ctx, app)
			return cancelled, nil
		})

	srv.Tool("session.list").
		Description("List a coach's sessions for a day or a date range").
		Handler(func(ctx context.Context, input sessionListInput) ([]queries.SessionDTO, error) {
			if app == nil || app.ListSessionsHandler == nil {
				return nil, errors.New("session listing requires database connection")
			}
			coachID, err := resolveCoach(app, input.CoachID)
			if err != nil {
				return nil, err
			}
			from, err := parseDate(input.From)
			if err != nil {
				return nil, err
			}

			query := queries.ListSessionsQuery{
				ResourceID:       coachID,
				From:             from,
				IncludeCancelled: input.IncludeCancelled,
			}
			if input.To != "" {
				query.To, err = domain.ParseDate(input.To)
				if err != nil {
					return nil, err
				}
			}
			return app.ListSessionsHandler.Handle(ctx, query)
		})

	srv.Tool("session.slots").
		Description("Check whether a slot is free and list free alternatives without booking anything").
		Handler(func(ctx context.Context, input sessionInput) (*queries.FindSlotsResult, error) {
			if app == nil || app.FindSlotsHandler == nil {
				return nil, errors.New("slot search requires database connection")
			}
			spec, err := input.spec(app)
			if err != nil {
				return nil, err
			}
			duration := spec.DurationMinutes
			if spec.End != nil {
				duration = int(*spec.End - spec.Start)
			}

			return app.FindSlotsHandler.Handle(ctx, queries.FindSlotsQuery{
				ResourceID:      spec.ResourceID,
				Date:            spec.Date,
				Start:           spec.Start,
				DurationMinutes: duration,
			})
		})

	return nil
}
