package cache

import (
	"context"
	"sync"
	"time"
)

// TTL is an in-memory key/value store whose entries expire ttl after they were stored.
// Expiry is checked lazily on read; there is no size bound and no background sweep.
type TTL[V any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry[V]
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// NewTTL builds a cache; ttl <= 0 keeps entries forever.
func NewTTL[V any](ttl time.Duration) *TTL[V] {
	return &TTL[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]entry[V]{},
	}
}

// Get returns the live value stored under key.
func (c *TTL[V]) Get(_ context.Context, key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Put stores value under key, restarting its lifetime.
func (c *TTL[V]) Put(_ context.Context, key string, value V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
	c.mu.Unlock()
}

// Clear drops every entry and returns how many were held.
func (c *TTL[V]) Clear(_ context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = map[string]entry[V]{}
	return n
}

// Len counts stored entries, including ones that expired but were not read since.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
