// Package events provides a simple publish-subscribe bus for analog value
// change events, used to fan provider events out to SSE clients.
package events

import (
	"sync"

	"github.com/horter-io/horter-go/internal/analog"
)

const subBufferSize = 8

// Bus is a non-blocking publish-subscribe event bus.
// Subscribers that are slow to consume events will have events dropped rather
// than blocking publishers.
//
// Bus implements analog.Listener, so it can be attached to a provider
// directly.
type Bus struct {
	mu   sync.Mutex
	subs map[string]chan analog.ValueChangeEvent
}

var _ analog.Listener = (*Bus)(nil)

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string]chan analog.ValueChangeEvent),
	}
}

// Subscribe creates a new subscription with the given ID.
// Call Unsubscribe when done to clean up.
func (b *Bus) Subscribe(id string) <-chan analog.ValueChangeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.subs[id]; ok {
		close(old)
	}
	ch := make(chan analog.ValueChangeEvent, subBufferSize)
	b.subs[id] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish sends an event to all subscribers.
// If a subscriber's channel is full, the event is dropped (non-blocking).
func (b *Bus) Publish(ev analog.ValueChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Drop if subscriber is slow
		}
	}
}

// HandleValueChange publishes ev.
func (b *Bus) HandleValueChange(ev analog.ValueChangeEvent) { b.Publish(ev) }

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
