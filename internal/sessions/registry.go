// Package sessions keeps per-visit state objects between HTTP requests.
package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry[T any] struct {
	value    T
	lastSeen time.Time
}

// Registry holds sessions by id (thread-safe). Entries idle for longer than ttl are dropped by Sweep.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[T]
	ttl     time.Duration
	now     func() time.Time
}

// NewRegistry creates a registry. A zero ttl disables expiry.
func NewRegistry[T any](ttl time.Duration) *Registry[T] {
	return &Registry[T]{entries: make(map[string]*entry[T]), ttl: ttl, now: time.Now}
}

// Add stores value under a fresh id and returns the id.
func (r *Registry[T]) Add(value T) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.entries[id] = &entry[T]{value: value, lastSeen: r.now()}
	r.mu.Unlock()
	return id
}

// Get returns the session for id and refreshes its idle timer.
func (r *Registry[T]) Get(id string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		var zero T
		return zero, false
	}
	e.lastSeen = r.now()
	return e.value, true
}

// Remove drops the session for id.
func (r *Registry[T]) Remove(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Len returns the number of live sessions.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sweep removes idle sessions and returns how many were dropped.
func (r *Registry[T]) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, id)
			n++
		}
	}
	return n
}
