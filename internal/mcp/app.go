package mcp

import (
	"github.com/google/uuid"

	"github.com/felixgeelhaar/coachbook/adapter/cli"
	"github.com/felixgeelhaar/coachbook/internal/app"
)

// NewCLIApp binds the tools to a wired container, booking on coachID's
// calendar by default.
func NewCLIApp(container *app.Container, coachID uuid.UUID) *cli.App {
	cliApp := cli.NewApp(
		container.ProposeSessionHandler,
		container.ResolveConflictHandler,
		container.CancelSessionHandler,
		container.ListSessionsHandler,
		container.FindSlotsHandler,
		container.Directory,
	)

	cliApp.SetCoachID(coachID)
	cliApp.SetDatabase(container.DBConn, container.Config.DatabaseURL)
	cliApp.SetHealthRegistry(container.Health)
	cliApp.SetOutboxFlusher(container.FlushOutbox)
	cliApp.SetOutbox(container.OutboxProcessor)
	cliApp.SetMetrics(container.Metrics)

	return cliApp
}
