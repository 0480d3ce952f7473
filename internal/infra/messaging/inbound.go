package messaging

import (
	"context"
	"errors"
)

// ErrClientClosed is returned by publishes after Close.
var ErrClientClosed = errors.New("messaging: client is closed")

// InboundMessage is one delivery read back from the broker by the consumer.
type InboundMessage struct {
	ID         string
	EventType  string
	DedupKey   string
	RoutingKey string
	Body       []byte
	Redelivery bool
}

// Handler processes one delivery. A nil error acknowledges it; an error asks the
// broker to redeliver.
type Handler func(ctx context.Context, msg InboundMessage) error
