package outbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/Potenup-community/backend-sub002/internal/domain/entity"
)

// PostPublishHook runs after a record was published and marked PUBLISHED. A hook
// error is logged and counted; the record stays PUBLISHED.
type PostPublishHook func(ctx context.Context, event entity.OutboxEvent) error

type Hooks struct {
	mu     sync.RWMutex
	byType map[string]PostPublishHook
}

func NewHooks() *Hooks {
	return &Hooks{byType: map[string]PostPublishHook{}}
}

func (h *Hooks) Register(eventType EventType, hook PostPublishHook) error {
	if hook == nil {
		return ErrHookRequired
	}
	name := eventType.Name()

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.byType[name]; exists {
		return fmt.Errorf("%w: %s", ErrHookAlreadyRegistered, name)
	}
	h.byType[name] = hook
	return nil
}

func (h *Hooks) lookup(eventType string) (PostPublishHook, bool) {
	if h == nil {
		return nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	hook, ok := h.byType[eventType]
	return hook, ok
}
