package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/coachbook/adapter/cli"
	"github.com/felixgeelhaar/coachbook/adapter/cli/athlete"
	"github.com/felixgeelhaar/coachbook/adapter/cli/mcp"
	"github.com/felixgeelhaar/coachbook/adapter/cli/session"
	"github.com/felixgeelhaar/coachbook/internal/app"
	"github.com/felixgeelhaar/coachbook/pkg/config"
	"github.com/felixgeelhaar/coachbook/pkg/observability"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	logger := observability.LoggerFromEnv()
	cli.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		return err
	}
	defer container.Close()

	cliApp := cli.NewApp(
		container.ProposeSessionHandler,
		container.ResolveConflictHandler,
		container.CancelSessionHandler,
		container.ListSessionsHandler,
		container.FindSlotsHandler,
		container.Directory,
	)
	cliApp.SetDatabase(container.DBConn, cfg.DatabaseURL)
	cliApp.SetHealthRegistry(container.Health)
	cliApp.SetOutboxFlusher(container.FlushOutbox)
	cliApp.SetOutbox(container.OutboxProcessor)
	cliApp.SetMetrics(container.Metrics)

	if cfg.CoachID != "" {
		coachID, err := uuid.Parse(cfg.CoachID)
		if err != nil {
			return fmt.Errorf("invalid COACHBOOK_COACH_ID: %w", err)
		}
		cliApp.SetCoachID(coachID)
	}
	cli.SetApp(cliApp)

	cli.AddCommand(session.Cmd)
	cli.AddCommand(athlete.Cmd)
	cli.AddCommand(mcp.Cmd)

	return cli.RootCommand().ExecuteContext(ctx)
}
