package eventbus

import (
	"context"
	"errors"
)

// ErrInvalidEnvelope marks a payload that is not a ConsumedEvent. Retrying
// such a message cannot succeed.
var ErrInvalidEnvelope = errors.New("invalid event envelope")

// Publisher hands envelopes to whatever delivers them: RabbitMQ, or the
// in-process bus in local mode.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}
