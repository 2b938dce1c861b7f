package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/coachbook/internal/booking/application/queries"
	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

// RegisterResources registers MCP resources that expose Coachbook data.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	if err := registerSessionResources(srv, deps); err != nil {
		return err
	}
	if err := registerRosterResources(srv, deps); err != nil {
		return err
	}
	return nil
}

func registerSessionResources(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	sessionsFor := func(ctx context.Context, days int) ([]queries.SessionDTO, error) {
		if app == nil || app.ListSessionsHandler == nil {
			return nil, fmt.Errorf("session listing requires database connection")
		}
		today := domain.DateOf(time.Now())
		return app.ListSessionsHandler.Handle(ctx, queries.ListSessionsQuery{
			ResourceID: app.CoachID,
			From:       today,
			To:         today.AddDays(days - 1),
		})
	}

	srv.Resource("coachbook://sessions/today").
		Name("Today's Sessions").
		Description("Active sessions on the coach's calendar today").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			sessions, err := sessionsFor(ctx, 1)
			if err != nil {
				return nil, err
			}
			return jsonContent(uri, sessions)
		})

	srv.Resource("coachbook://sessions/week").
		Name("This Week's Sessions").
		Description("Active sessions for today and the next six days").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			sessions, err := sessionsFor(ctx, 7)
			if err != nil {
				return nil, err
			}
			return jsonContent(uri, sessions)
		})

	return nil
}

func registerRosterResources(srv *mcp.Server, deps ToolDependencies) error {
	srv.Resource("coachbook://athletes").
		Name("Athletes").
		Description("The coach's roster").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			athletes, err := listAthletes(ctx, deps)
			if err != nil {
				return nil, err
			}
			return jsonContent(uri, athletes)
		})

	return nil
}

func jsonContent(uri string, v any) (*mcp.ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ResourceContent{
		URI:      uri,
		MimeType: "application/json",
		Text:     string(data),
	}, nil
}
