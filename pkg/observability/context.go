package observability

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	correlationIDCtxKey contextKey = "correlation_id"
	actorIDCtxKey       contextKey = "actor_id"
)

// Attribute keys shared by logs and metric tags.
const (
	CorrelationIDKey = "correlation_id"
	ActorIDKey       = "actor_id"
	OperationKey     = "operation"
	DurationKey      = "duration_ms"
	ErrorKey         = "error"
)

// WithCorrelationID stores a correlation ID. uuid.Nil generates one.
func WithCorrelationID(ctx context.Context, id uuid.UUID) context.Context {
	if id == uuid.Nil {
		id = uuid.New()
	}
	return context.WithValue(ctx, correlationIDCtxKey, id)
}

// CorrelationIDFromContext returns the correlation ID or uuid.Nil.
func CorrelationIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	id, _ := ctx.Value(correlationIDCtxKey).(uuid.UUID)
	return id
}

// WithActorID records who is acting, usually the coach.
func WithActorID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, actorIDCtxKey, id)
}

// ActorIDFromContext returns the acting user or uuid.Nil.
func ActorIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	id, _ := ctx.Value(actorIDCtxKey).(uuid.UUID)
	return id
}

// NewOperationContext starts a correlation chain for one CLI or tool call.
func NewOperationContext(ctx context.Context, actorID uuid.UUID) context.Context {
	ctx = WithCorrelationID(ctx, CorrelationIDFromContext(ctx))
	if actorID != uuid.Nil {
		ctx = WithActorID(ctx, actorID)
	}
	return ctx
}
