// internal/bus/bus.go

// Package bus is a best-effort fan-out used to push roster deltas to live
// viewers. Slow viewers are dropped, never waited on.
package bus

import (
	"sync"

	"github.com/google/uuid"
)

// SubscriberCap bounds each subscriber's backlog. A viewer that falls this
// far behind is evicted rather than applying backpressure to the publisher;
// it must reconnect and take a fresh snapshot.
const SubscriberCap = 10

// Bus delivers every published message to every live subscriber, at most
// once each.
type Bus[T any] struct {
	mu   sync.Mutex
	subs map[uuid.UUID]chan T
}

// New returns a bus with no subscribers.
func New[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[uuid.UUID]chan T)}
}

// Subscribe registers a new viewer queue. The returned channel is closed
// when the subscriber is evicted.
func (b *Bus[T]) Subscribe() <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan T, SubscriberCap)
	b.subs[uuid.New()] = ch
	return ch
}

// Publish enqueues msg for every subscriber without blocking. A subscriber
// whose queue is full is treated as dead: unregistered immediately, backlog
// discarded, channel closed.
func (b *Bus[T]) Publish(msg T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			delete(b.subs, id)
			close(ch)
		}
	}
}

// Subscribers reports how many viewers are currently registered.
func (b *Bus[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
