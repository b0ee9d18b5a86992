// Package progress fans optimizer progress out to subscribers such as
// websocket clients.
package progress

import (
	"sync"
	"time"
)

// Run states beyond the optimizer phases
const (
	StateSeeded    = "seeded"
	StateRunning   = "running"
	StateExhausted = "exhausted"
	StateCancelled = "cancelled"
	StateFailed    = "failed"
)

// Event is one progress update of an optimization run
type Event struct {
	RunID     string    `json:"run_id"`
	State     string    `json:"state"`
	Iteration int       `json:"iteration"`
	Total     int       `json:"total"`
	Cost      float64   `json:"cost"`
	Accepted  int       `json:"accepted"`
	Rejected  int       `json:"rejected"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Terminal reports whether no further events follow for the run
func (e Event) Terminal() bool {
	switch e.State {
	case StateExhausted, StateCancelled, StateFailed:
		return true
	}
	return false
}

// Broker delivers events per run. Slow subscribers drop events rather than
// block the publisher. Last returns the most recent event of a run so late
// subscribers can catch up.
type Broker interface {
	Subscribe(runID string) chan Event
	Unsubscribe(runID string, ch chan Event)
	Publish(runID string, evt Event)
	Last(runID string) (Event, bool)
	Close() error
}

const subscriberBuffer = 16

// MemoryBroker is an in-process Broker
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
	last map[string]Event
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subs: map[string]map[chan Event]struct{}{},
		last: map[string]Event{},
	}
}

func (b *MemoryBroker) Subscribe(runID string) chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	if b.subs[runID] == nil {
		b.subs[runID] = map[chan Event]struct{}{}
	}
	b.subs[runID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *MemoryBroker) Unsubscribe(runID string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[runID]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, runID)
	}
	close(ch)
}

func (b *MemoryBroker) Publish(runID string, evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last[runID] = evt
	for ch := range b.subs[runID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (b *MemoryBroker) Last(runID string) (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	evt, ok := b.last[runID]
	return evt, ok
}

// Close closes every open subscription
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for runID, m := range b.subs {
		for ch := range m {
			close(ch)
		}
		delete(b.subs, runID)
	}
	return nil
}
