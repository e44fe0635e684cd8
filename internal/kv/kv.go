// Package kv is the small key-value port behind per-browser persisted lists.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Keys used by the registration view.
const (
	KeySuggestions = "wedding_suggestions"
	KeyGifts       = "wedding_gifts"
)

// Store reads and writes opaque values by key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Update replaces the value under key with fn's result. Concurrent updates of one
	// key never overwrite each other. fn may be called more than once.
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// UpdateFunc computes a new value from the current one. ok is false when key is absent.
type UpdateFunc func(current []byte, ok bool) ([]byte, error)

// Memory is an in-process Store. Values do not survive a restart.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	m.mu.Lock()
	m.data[key] = v
	m.mu.Unlock()
	return nil
}

func (m *Memory) Update(_ context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.data[key]
	next, err := fn(cur, ok)
	if err != nil {
		return err
	}
	v := make([]byte, len(next))
	copy(v, next)
	m.data[key] = v
	return nil
}

// Scoped prefixes every key with scope, so one backend can hold many browsers' lists.
type Scoped struct {
	store Store
	scope string
}

// NewScoped wraps store under scope.
func NewScoped(store Store, scope string) *Scoped {
	return &Scoped{store: store, scope: scope}
}

func (s *Scoped) key(k string) string { return "visitor:" + s.scope + ":" + k }

func (s *Scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.store.Get(ctx, s.key(key))
}

func (s *Scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.store.Set(ctx, s.key(key), value)
}

func (s *Scoped) Update(ctx context.Context, key string, fn UpdateFunc) error {
	return s.store.Update(ctx, s.key(key), fn)
}

// GetJSON loads key into out. It reports false when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v as JSON under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// UpdateJSON decodes the value under key into a fresh T, lets fn change it and stores it back
// as one Update. An absent or unreadable value starts from the zero T.
func UpdateJSON[T any](ctx context.Context, s Store, key string, fn func(*T) error) error {
	return s.Update(ctx, key, func(cur []byte, ok bool) ([]byte, error) {
		var v T
		if ok {
			if err := json.Unmarshal(cur, &v); err != nil {
				var zero T
				v = zero
			}
		}
		if err := fn(&v); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", key, err)
		}
		return raw, nil
	})
}
