package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/coachbook/internal/app"
	mcpinternal "github.com/felixgeelhaar/coachbook/internal/mcp"
	"github.com/felixgeelhaar/coachbook/pkg/config"
	"github.com/felixgeelhaar/coachbook/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logger := observability.LoggerFromEnv()

		container, err := app.NewContainer(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer container.Close()

		coachID, err := uuid.Parse(cfg.CoachID)
		if err != nil {
			return fmt.Errorf("invalid COACHBOOK_COACH_ID: %w", err)
		}

		cliApp := mcpinternal.NewCLIApp(container, coachID)
		err = mcpinternal.Serve(ctx, cfg, cliApp, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
