package mcp

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/coachbook/adapter/cli"
	internalApp "github.com/felixgeelhaar/coachbook/internal/app"
	rosterServices "github.com/felixgeelhaar/coachbook/internal/roster/application/services"
	"github.com/felixgeelhaar/coachbook/pkg/config"
)

func newTestServer() *mcp.Server {
	return mcp.NewServer(mcp.ServerInfo{
		Name:    "test",
		Version: "1.0.0",
		Capabilities: mcp.Capabilities{
			Tools: true,
		},
	})
}

func newTestApp(t *testing.T) *cli.App {
	t.Helper()
	cfg := &config.Config{
		AppEnv:         "test",
		DatabaseDriver: "sqlite",
		SQLitePath:     filepath.Join(t.TempDir(), "test.db"),
		OfferTTL:       time.Minute,
	}
	container, err := internalApp.NewContainer(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(container.Close)

	app := cli.NewApp(
		container.ProposeSessionHandler,
		container.ResolveConflictHandler,
		container.CancelSessionHandler,
		container.ListSessionsHandler,
		container.FindSlotsHandler,
		container.Directory,
	)
	app.SetCoachID(uuid.New())
	app.SetOutboxFlusher(container.FlushOutbox)
	return app
}

func TestRegisterCLITools_RequiresServerAndApp(t *testing.T) {
	assert.Error(t, RegisterCLITools(nil, ToolDependencies{App: &cli.App{}}))
	assert.Error(t, RegisterCLITools(newTestServer(), ToolDependencies{}))
}

func TestRegisterCLITools_ListTools(t *testing.T) {
	srv := newTestServer()
	require.NoError(t, RegisterCLITools(srv, ToolDependencies{App: &cli.App{}}))

	tc := testutil.NewTestClient(t, srv)
	defer tc.Close()

	tools, err := tc.ListTools()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, tool := range tools {
		if name, ok := tool["name"].(string); ok {
			names[name] = true
		}
	}
	for _, want := range []string{
		"session.propose",
		"session.resolve",
		"session.cancel",
		"session.list",
		"session.slots",
		"athlete.add",
		"athlete.list",
	} {
		assert.True(t, names[want], "%s should be registered", want)
	}
}

func TestSessionInput_Spec(t *testing.T) {
	app := &cli.App{CoachID: uuid.New()}

	spec, err := sessionInput{Date: "2025-03-10", Start: "09:00"}.spec(app)
	require.NoError(t, err)
	assert.Equal(t, app.CoachID, spec.ResourceID)
	assert.Equal(t, 60, spec.DurationMinutes)
	assert.Nil(t, spec.End)

	spec, err = sessionInput{Date: "2025-03-10", Start: "09:00", End: "09:45"}.spec(app)
	require.NoError(t, err)
	require.NotNil(t, spec.End)
	assert.Equal(t, "09:45", spec.End.String())

	_, err = sessionInput{Date: "10/03/2025", Start: "09:00"}.spec(app)
	assert.Error(t, err)
	_, err = sessionInput{Start: "9am"}.spec(app)
	assert.Error(t, err)
	_, err = sessionInput{Start: "09:00", AthleteID: "nope"}.spec(app)
	assert.Error(t, err)

	_, err = sessionInput{Start: "09:00"}.spec(&cli.App{})
	assert.Error(t, err)
}

func TestSessionResolveInput_Candidate(t *testing.T) {
	in := sessionResolveInput{Date: "2025-03-10", Start: "09:30", DurationMinutes: 45, Strategy: "force"}

	c := in.candidate()

	assert.Equal(t, "2025-03-10", c.Date)
	assert.Equal(t, "09:30", c.Start)
	assert.Equal(t, 45, c.DurationMinutes)
}

func TestListAthletes_RequiresDirectory(t *testing.T) {
	_, err := listAthletes(context.Background(), ToolDependencies{App: &cli.App{}})
	assert.Error(t, err)
}

func TestListAthletes(t *testing.T) {
	app := newTestApp(t)
	_, err := app.Directory.Register(context.Background(), rosterInput(app, "Mara"))
	require.NoError(t, err)

	athletes, err := listAthletes(context.Background(), ToolDependencies{App: app})
	require.NoError(t, err)
	require.Len(t, athletes, 1)
	assert.Equal(t, "Mara", athletes[0].DisplayName)
	assert.False(t, athletes[0].HasTelegram)
}

func rosterInput(app *cli.App, name string) rosterServices.RegisterAthleteInput {
	return rosterServices.RegisterAthleteInput{CoachID: app.CoachID, DisplayName: name}
}
