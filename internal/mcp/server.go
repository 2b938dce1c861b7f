// Package mcp runs coachbook's MCP server: the booking tools, calendar
// resources and prompts over HTTP.
package mcp

import (
	"context"
	"errors"
	"log/slog"

	mcpgo "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/middleware"

	"github.com/felixgeelhaar/coachbook/adapter/cli"
	mcplocal "github.com/felixgeelhaar/coachbook/adapter/mcp"
	"github.com/felixgeelhaar/coachbook/pkg/config"
)

// ServerName identifies coachbook to MCP clients.
const ServerName = "coachbook"

// NewServer builds a server with every tool, resource and prompt bound to
// the CLI application's handlers.
func NewServer(cliApp *cli.App) (*mcpgo.Server, error) {
	if cliApp == nil {
		return nil, errors.New("CLI app is required")
	}

	srv := mcpgo.NewServer(mcpgo.ServerInfo{
		Name:    ServerName,
		Version: cli.Version,
		Capabilities: mcpgo.Capabilities{
			Tools:     true,
			Resources: true,
			Prompts:   true,
		},
	})

	deps := mcplocal.ToolDependencies{App: cliApp}
	if err := mcplocal.RegisterCLITools(srv, deps); err != nil {
		return nil, err
	}
	if err := mcplocal.RegisterResources(srv, deps); err != nil {
		return nil, err
	}
	if err := mcplocal.RegisterPrompts(srv, deps); err != nil {
		return nil, err
	}
	return srv, nil
}

// Middleware is the request stack. With a token every request must carry
// it as a bearer credential; the check runs before anything else.
func Middleware(token string, logger *slog.Logger) []middleware.Middleware {
	log := slogAdapter{logger}
	stack := middleware.DefaultStack(log)
	if token == "" {
		return stack
	}
	auth := middleware.Auth(
		middleware.BearerTokenAuthenticator(middleware.StaticTokens(map[string]*middleware.Identity{
			token: {ID: "coach", Name: "coach"},
		})),
		middleware.WithAuthLogger(log),
	)
	return append([]middleware.Middleware{auth}, stack...)
}

// Serve listens on cfg.MCPAddr until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config, cliApp *cli.App, logger *slog.Logger) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	srv, err := NewServer(cliApp)
	if err != nil {
		return err
	}
	if cfg.MCPAuthToken == "" {
		logger.Warn("MCP_AUTH_TOKEN not set; MCP requests are unauthenticated")
	}

	logger.Info("mcp server listening", "addr", cfg.MCPAddr, "version", cli.Version)
	stack := Middleware(cfg.MCPAuthToken, logger)
	return mcpgo.ServeHTTPWithMiddleware(ctx, srv, cfg.MCPAddr, nil, mcpgo.WithMiddleware(stack...))
}

// slogAdapter lets the mcp-go middleware log through slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) log(level slog.Level, msg string, fields []middleware.Field) {
	args := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	a.logger.Log(context.Background(), level, msg, args...)
}

func (a slogAdapter) Debug(msg string, fields ...middleware.Field) { a.log(slog.LevelDebug, msg, fields) }
func (a slogAdapter) Info(msg string, fields ...middleware.Field)  { a.log(slog.LevelInfo, msg, fields) }
func (a slogAdapter) Warn(msg string, fields ...middleware.Field)  { a.log(slog.LevelWarn, msg, fields) }
func (a slogAdapter) Error(msg string, fields ...middleware.Field) { a.log(slog.LevelError, msg, fields) }
