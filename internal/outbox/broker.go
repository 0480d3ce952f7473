package outbox

import (
	"context"

	"github.com/Potenup-community/backend-sub002/internal/domain/entity"
)

const (
	ContentTypeJSON = "application/json"

	HeaderDedupKey  = "dedupKey"
	HeaderEventType = "eventType"
)

// Message is what a broker receives for one outbox record. Body is the payload stored
// at creation time; it is not re-serialized.
type Message struct {
	ID          string
	EventType   string
	DedupKey    string
	Exchange    string
	RoutingKey  string
	ContentType string
	Body        []byte
}

// Headers returns the application headers carried next to the message id and
// content type.
func (m Message) Headers() map[string]string {
	return map[string]string{
		HeaderDedupKey:  m.DedupKey,
		HeaderEventType: m.EventType,
	}
}

func MessageFromEvent(event entity.OutboxEvent) Message {
	return Message{
		ID:          event.ID.String(),
		EventType:   event.EventType,
		DedupKey:    event.DedupKey,
		Exchange:    event.Exchange,
		RoutingKey:  event.RoutingKey,
		ContentType: ContentTypeJSON,
		Body:        []byte(event.Payload),
	}
}

// Broker delivers one message and returns once the broker accepted it.
type Broker interface {
	Publish(ctx context.Context, msg Message) error
}

type BrokerFunc func(ctx context.Context, msg Message) error

func (fn BrokerFunc) Publish(ctx context.Context, msg Message) error {
	return fn(ctx, msg)
}
