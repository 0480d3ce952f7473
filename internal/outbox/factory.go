package outbox

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/domain/entity"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const DefaultMaxPayloadBytes = 1 << 20

// Factory builds outbox records. It never persists: callers save the record inside the
// transaction of the domain write.
type Factory struct {
	now   func() time.Time
	newID func() uuid.UUID
}

type FactoryOption func(*Factory)

func WithFactoryClock(now func() time.Time) FactoryOption {
	return func(f *Factory) {
		if now != nil {
			f.now = now
		}
	}
}

func WithIDGenerator(newID func() uuid.UUID) FactoryOption {
	return func(f *Factory) {
		if newID != nil {
			f.newID = newID
		}
	}
}

func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{now: time.Now, newID: uuid.New}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DedupKey is the deterministic consumer-side deduplication key for an event.
func DedupKey(eventType EventType, contentHash string) string {
	return eventType.dedupPrefix() + contentHash
}

// BuildEvent returns a PENDING record for eventType carrying payload as JSON. The
// route is resolved here and stored on the record.
func (f *Factory) BuildEvent(eventType EventType, domainID, contentHash string, payload any) (entity.OutboxEvent, error) {
	domainID = strings.TrimSpace(domainID)
	if domainID == "" {
		return entity.OutboxEvent{}, ErrDomainIDRequired
	}
	contentHash = strings.TrimSpace(contentHash)
	if contentHash == "" {
		return entity.OutboxEvent{}, ErrContentHashRequired
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return entity.OutboxEvent{}, fmt.Errorf("outbox payload: %w", err)
	}
	if len(body) > DefaultMaxPayloadBytes {
		return entity.OutboxEvent{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(body))
	}

	route := Resolve(eventType)
	now := f.now().UTC()

	return entity.OutboxEvent{
		ID:          f.newID(),
		EventType:   route.EventType,
		Exchange:    route.Exchange,
		RoutingKey:  route.RoutingKey,
		Payload:     datatypes.JSON(body),
		DedupKey:    DedupKey(eventType, contentHash),
		DomainID:    domainID,
		Status:      entity.OutboxStatusPending,
		NextRetryAt: nil,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
