// Package events carries outbound real-time events from the location services to transports.
package events

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// Audience selects who an event is addressed to.
type Audience int

const (
	// AudienceUsers targets the ids listed in Event.Recipients.
	AudienceUsers Audience = iota
	// AudienceAll targets every live connection.
	AudienceAll
)

func (a Audience) String() string {
	if a == AudienceAll {
		return "all"
	}
	return "users"
}

// Event is a message for live clients. Payload must be JSON encodable.
type Event struct {
	Kind       string
	Audience   Audience
	Recipients []string
	Payload    any
}

// Handler receives published events.
type Handler func(context.Context, Event)

// Publisher is the producer side of the bus.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Bus fans events out to every subscriber synchronously, in subscription order.
type Bus struct {
	logger *slog.Logger

	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

// NewBus constructs an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger, handlers: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it. The returned function is idempotent.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to all current subscribers. A panicking subscriber does not affect the others.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.safeInvoke(ctx, h, e)
	}
}

func (b *Bus) safeInvoke(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panic", "kind", e.Kind, "panic", r)
		}
	}()
	h(ctx, e)
}
