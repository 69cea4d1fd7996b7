// Package events is the process-local synchronous topic fan-out of
// spec §4.11.
package events

import (
	"sync"

	"github.com/ternarybob/arbor"
)

// Handler receives an event payload. Handlers must not block
// indefinitely: Emit calls every subscriber synchronously in
// registration order.
type Handler func(payload interface{})

// Bus is a topic -> subscriber-list fan-out.
type Bus struct {
	mu          sync.Mutex
	subscribers map[string][]Handler
	logger      arbor.ILogger
}

// New returns an empty Bus.
func New(logger arbor.ILogger) *Bus {
	return &Bus{subscribers: map[string][]Handler{}, logger: logger}
}

// Subscribe appends handler to topic's subscriber list.
func (b *Bus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], handler)
}

// Emit invokes every subscriber of topic, synchronously, in registration
// order, on the caller's goroutine. A panicking subscriber is recovered
// and logged; it never interrupts delivery to the remaining subscribers.
func (b *Bus) Emit(topic string, payload interface{}) {
	b.mu.Lock()
	handlers := make([]Handler, len(b.subscribers[topic]))
	copy(handlers, b.subscribers[topic])
	b.mu.Unlock()

	for _, h := range handlers {
		b.invoke(topic, h, payload)
	}
}

func (b *Bus) invoke(topic string, h Handler, payload interface{}) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Error().Interface("recover", r).Str("topic", topic).Msg("event subscriber panicked")
		}
	}()
	h(payload)
}
