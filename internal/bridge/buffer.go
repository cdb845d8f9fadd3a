package bridge

import (
	"sync"

	"rovergym/internal/sim/env"
)

// ActionBuffer is a bounded FIFO of trainer actions plus the count of
// states sent but not yet answered. When full, the oldest action is
// dropped.
type ActionBuffer struct {
	mu      sync.Mutex
	cap     int
	items   []env.Action
	pending int
}

func NewActionBuffer(capacity int) *ActionBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ActionBuffer{cap: capacity, items: make([]env.Action, 0, capacity)}
}

func (b *ActionBuffer) Capacity() int { return b.cap }

// Push appends a and reports how many actions were dropped to make room.
// It also marks one outstanding state as answered.
func (b *ActionBuffer) Push(a env.Action) (dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.items) >= b.cap {
		b.items = b.items[1:]
		dropped++
	}
	b.items = append(b.items, a)
	if b.pending > 0 {
		b.pending--
	}
	return dropped
}

// Pop removes the oldest action.
func (b *ActionBuffer) Pop() (env.Action, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return env.Action{}, false
	}
	a := b.items[0]
	b.items = b.items[1:]
	return a, true
}

// TryStep pops the next action if fewer than Capacity states are
// outstanding, and counts the state about to be sent. ok is false when the
// trainer is too far behind; fresh is false when the buffer was empty and
// the caller should repeat its last action.
func (b *ActionBuffer) TryStep() (a env.Action, fresh, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending >= b.cap {
		return env.Action{}, false, false
	}
	b.pending++
	if len(b.items) == 0 {
		return env.Action{}, false, true
	}
	a = b.items[0]
	b.items = b.items[1:]
	return a, true, true
}

func (b *ActionBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *ActionBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// Reset empties the buffer and sets the outstanding count.
func (b *ActionBuffer) Reset(pending int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = b.items[:0]
	b.pending = max(pending, 0)
}
