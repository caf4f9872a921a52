// internal/queue/queue.go

// Package queue carries player join/leave envelopes from the bot side to
// the lobby roster engine.
package queue

import (
	"context"
	"sync"
)

// Message is one envelope on the queue.
type Message interface {
	isMessage()
}

// PlayerJoined announces a registered player entering a lobby channel.
// Btags keeps insertion order; the last entry is the canonical tag.
type PlayerJoined struct {
	PlayerID  string
	Btags     []string
	ServerID  string
	LobbyName string
	Nick      string
}

// PlayerLeft announces a tracked player leaving all PUG channels.
type PlayerLeft struct {
	PlayerID  string
	ServerID  string
	LobbyName string
}

func (PlayerJoined) isMessage() {}
func (PlayerLeft) isMessage()   {}

// Queue is an unbounded, order-preserving handoff channel. Put never
// blocks and never drops; Get suspends until a message arrives, the queue
// is closed, or the context ends.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	msgs   []Message
	closed bool
}

// New returns an empty queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Put appends a message. Puts after Close are discarded.
func (q *Queue) Put(m Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.msgs = append(q.msgs, m)
	q.cond.Signal()
}

// Get removes and returns the oldest message, blocking while the queue is
// empty. The second return is false once the queue is drained and closed,
// or the context is done.
func (q *Queue) Get(ctx context.Context) (Message, bool) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.msgs) == 0 && !q.closed && ctx.Err() == nil {
		q.cond.Wait()
	}
	if len(q.msgs) == 0 {
		return nil, false
	}
	m := q.msgs[0]
	q.msgs = q.msgs[1:]
	return m, true
}

// Len reports how many messages are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}

// Close wakes all blocked consumers. Messages already queued can still be
// drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
