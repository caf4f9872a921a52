// internal/bus/bus_test.go
package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := New[int]()
	s1 := b.Subscribe()
	s2 := b.Subscribe()

	b.Publish(42)

	assert.Equal(t, 42, <-s1)
	assert.Equal(t, 42, <-s2)
}

func TestSlowSubscriberIsEvicted(t *testing.T) {
	b := New[int]()
	slow := b.Subscribe()
	fast := b.Subscribe()

	// Fill the slow subscriber's queue exactly to capacity, draining the
	// fast one as we go.
	for i := 0; i < SubscriberCap; i++ {
		b.Publish(i)
		assert.Equal(t, i, <-fast)
	}
	assert.Equal(t, 2, b.Subscribers())

	// One more publish overflows the slow queue and evicts it.
	b.Publish(SubscriberCap)
	assert.Equal(t, SubscriberCap, <-fast)
	assert.Equal(t, 1, b.Subscribers())

	// The evicted subscriber still drains its backlog, then sees closure.
	for i := 0; i < SubscriberCap; i++ {
		v, ok := <-slow
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := <-slow
	assert.False(t, ok, "evicted subscriber channel should be closed")

	// The surviving subscriber keeps receiving.
	b.Publish(99)
	assert.Equal(t, 99, <-fast)
}

func TestPublishWithNoSubscribers(t *testing.T) {
	b := New[string]()
	b.Publish("nobody home") // must not panic or block
	assert.Equal(t, 0, b.Subscribers())
}
