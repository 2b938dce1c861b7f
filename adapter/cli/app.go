package cli

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/coachbook/internal/booking/application/commands"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/queries"
	rosterServices "github.com/felixgeelhaar/coachbook/internal/roster/application/services"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/coachbook/pkg/observability"
)

// OutboxOperator inspects and repairs event delivery.
type OutboxOperator interface {
	Backlog(ctx context.Context) (outbox.Backlog, error)
	Requeue(ctx context.Context, ids ...int64) (int, error)
}

// App holds the CLI application dependencies.
type App struct {
	// Session Command Handlers
	ProposeSessionHandler  *commands.ProposeSessionHandler
	ResolveConflictHandler *commands.ResolveConflictHandler
	CancelSessionHandler   *commands.CancelSessionHandler

	// Session Query Handlers
	ListSessionsHandler *queries.ListSessionsHandler
	FindSlotsHandler    *queries.FindSlotsHandler

	// Roster
	Directory *rosterServices.Directory

	// Infrastructure used by maintenance commands
	DB          database.Connection
	DatabaseURL string
	Health      *observability.HealthRegistry
	Outbox      OutboxOperator
	Metrics     interface{ Snapshot() []observability.Sample }

	// FlushOutbox delivers pending events after each command.
	FlushOutbox func(ctx context.Context)

	// CoachID is the calendar sessions are booked on by default.
	CoachID uuid.UUID
}

// NewApp creates a new CLI application with the given handlers.
func NewApp(
	proposeSessionHandler *commands.ProposeSessionHandler,
	resolveConflictHandler *commands.ResolveConflictHandler,
	cancelSessionHandler *commands.CancelSessionHandler,
	listSessionsHandler *queries.ListSessionsHandler,
	findSlotsHandler *queries.FindSlotsHandler,
	directory *rosterServices.Directory,
) *App {
	return &App{
		ProposeSessionHandler:  proposeSessionHandler,
		ResolveConflictHandler: resolveConflictHandler,
		CancelSessionHandler:   cancelSessionHandler,
		ListSessionsHandler:    listSessionsHandler,
		FindSlotsHandler:       findSlotsHandler,
		Directory:              directory,
		CoachID:                uuid.Nil,
	}
}

// SetCoachID updates the default coach.
func (a *App) SetCoachID(id uuid.UUID) {
	a.CoachID = id
}

// SetDatabase exposes the connection to maintenance commands.
func (a *App) SetDatabase(conn database.Connection, databaseURL string) {
	a.DB = conn
	a.DatabaseURL = databaseURL
}

// SetHealthRegistry updates the health registry.
func (a *App) SetHealthRegistry(registry *observability.HealthRegistry) {
	a.Health = registry
}

// SetOutbox exposes the outbox to the maintenance commands.
func (a *App) SetOutbox(op OutboxOperator) {
	a.Outbox = op
}

// SetMetrics exposes the metrics printed with --verbose.
func (a *App) SetMetrics(m interface{ Snapshot() []observability.Sample }) {
	a.Metrics = m
}

// SetOutboxFlusher updates the post-command outbox flush.
func (a *App) SetOutboxFlusher(flush func(ctx context.Context)) {
	a.FlushOutbox = flush
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
