// Package observability provides structured logging, metrics, timing and
// health checks for coachbook processes.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// LogConfig configures NewLogger.
type LogConfig struct {
	Level slog.Level
	// JSON selects the JSON handler; the default is logfmt-style text.
	JSON      bool
	Output    io.Writer
	AddSource bool
	Service   string
	Version   string
}

// redactedKeys never reach the log output with their value.
var redactedKeys = []string{"password", "token", "auth_token", "bot_token", "authorization"}

const redacted = "[redacted]"

// ParseLogLevel accepts the slog level names in any case ("debug", "WARN",
// "info+2").
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(strings.TrimSpace(s)))
	return level, err
}

// NewLogger builds a logger that stamps every record with the service name
// and version, plus the correlation and actor IDs found in the context.
func NewLogger(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: redact,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	var attrs []slog.Attr
	if cfg.Service != "" {
		attrs = append(attrs, slog.String("service", cfg.Service))
	}
	if cfg.Version != "" {
		attrs = append(attrs, slog.String("version", cfg.Version))
	}
	if len(attrs) > 0 {
		handler = handler.WithAttrs(attrs)
	}
	return slog.New(traceHandler{handler})
}

// LoggerFromEnv builds the process logger. Logs go to stderr so command
// output on stdout stays machine-readable.
//
//	COACHBOOK_LOG_LEVEL (or LOG_LEVEL)  debug, info, warn, error
//	COACHBOOK_LOG_FORMAT                text, json
//	COACHBOOK_ENV (or APP_ENV)          production switches to json with source
//	COACHBOOK_VERSION                   version attribute
func LoggerFromEnv() *slog.Logger {
	cfg := LogConfig{
		Level:   slog.LevelInfo,
		Service: "coachbook",
		Version: envOr("dev", "COACHBOOK_VERSION"),
	}
	if envOr("development", "COACHBOOK_ENV", "APP_ENV") == "production" {
		cfg.JSON = true
		cfg.AddSource = true
	}
	if level, err := ParseLogLevel(envOr("info", "COACHBOOK_LOG_LEVEL", "LOG_LEVEL")); err == nil {
		cfg.Level = level
	}
	switch strings.ToLower(os.Getenv("COACHBOOK_LOG_FORMAT")) {
	case "json":
		cfg.JSON = true
	case "text":
		cfg.JSON = false
	}
	return NewLogger(cfg)
}

func envOr(fallback string, keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return fallback
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if slices.Contains(redactedKeys, strings.ToLower(a.Key)) && a.Value.String() != "" {
		return slog.String(a.Key, redacted)
	}
	return a
}

// traceHandler adds the IDs carried by the context to each record.
type traceHandler struct {
	slog.Handler
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := CorrelationIDFromContext(ctx); id != uuid.Nil {
		r.AddAttrs(slog.String(CorrelationIDKey, id.String()))
	}
	if id := ActorIDFromContext(ctx); id != uuid.Nil {
		r.AddAttrs(slog.String(ActorIDKey, id.String()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{h.Handler.WithGroup(name)}
}
