package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Bus fans events out to subscriber channels. Delivery is non-blocking: a
// full subscriber drops the event rather than stalling the emitter.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event // event name -> channels
	allSubs     []chan Event
	logger      *slog.Logger
	closed      bool
}

// NewBus creates an event bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[string][]chan Event),
		logger:      logger,
	}
}

// Emit delivers the event to all matching subscribers.
func (b *Bus) Emit(_ context.Context, e Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := make([]chan Event, len(b.subscribers[e.Name]))
	copy(subs, b.subscribers[e.Name])
	allSubs := make([]chan Event, len(b.allSubs))
	copy(allSubs, b.allSubs)
	b.mu.RUnlock()

	for _, ch := range append(subs, allSubs...) {
		select {
		case ch <- e:
		default:
			b.logger.Warn("subscriber channel full, dropping event",
				"event", e.Name, "request_id", e.RequestID)
		}
	}
}

// Subscribe returns a channel receiving events with the given name.
func (b *Bus) Subscribe(name string, bufferSize int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, bufferSize)
	b.subscribers[name] = append(b.subscribers[name], ch)
	return ch
}

// SubscribeAll returns a channel receiving every event.
func (b *Bus) SubscribeAll(bufferSize int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, bufferSize)
	b.allSubs = append(b.allSubs, ch)
	return ch
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subscribers = nil

	for _, ch := range b.allSubs {
		close(ch)
	}
	b.allSubs = nil

	return nil
}
