// Package cache holds a single-slot TTL memo. The firmware catalog uses it
// to answer the per-device update poll without a database round trip for
// every check.
package cache

import (
	"sync"
	"time"
)

type Memo[T any] struct {
	mu    sync.Mutex
	value T
	setAt time.Time
	valid bool
	ttl   time.Duration
	now   func() time.Time
}

// New returns an empty memo. A now func of nil uses the wall clock.
func New[T any](ttl time.Duration, now func() time.Time) *Memo[T] {
	if now == nil {
		now = time.Now
	}
	return &Memo[T]{ttl: ttl, now: now}
}

// Get returns the memoized value and whether it is still fresh.
func (m *Memo[T]) Get() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valid || m.now().Sub(m.setAt) > m.ttl {
		var zero T
		return zero, false
	}
	return m.value, true
}

func (m *Memo[T]) Set(value T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = value
	m.setAt = m.now()
	m.valid = true
}

// Invalidate empties the memo so the next Get misses.
func (m *Memo[T]) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	m.value = zero
	m.valid = false
}
