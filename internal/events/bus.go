// Package events provides the typed, in-process event bus the host platform
// uses to invoke the SMS dispatcher. Handlers are registered against named
// event types and run synchronously in publish order; handler failures are
// the handler's own responsibility and never propagate to the publisher.
package events

import (
	"context"
	"sync"

	"github.com/common-repository/sms-manager/internal/repo"
)

// Event types the service publishes.
const (
	// OrderStatusChanged fires after an order transitions to a new status.
	OrderStatusChanged = "order.status_changed"
	// ManualSendRequested is the fixed identifier of the admin "send order
	// SMS to customer" action.
	ManualSendRequested = "order.send_sms"
)

// Event is the payload delivered to handlers. Order may be nil when only the
// ID is known; handlers resolve it through the repository.
type Event struct {
	Type    string
	OrderID int64
	Order   *repo.Order
	Status  string
}

// Handler processes one event. Handlers must not panic and must swallow
// their own errors.
type Handler func(ctx context.Context, evt Event)

// Bus is a synchronous in-process publish/subscribe registry.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers a handler for the given event type.
func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Publish invokes every handler registered for the event's type, in
// registration order, on the caller's goroutine.
func (b *Bus) Publish(ctx context.Context, evt Event) {
	b.mu.RLock()
	handlers := b.handlers[evt.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, evt)
	}
}
