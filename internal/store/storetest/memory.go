// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"fmt"
	"sync"

	"shift-tracker-backend/internal/store"
)

// Memory is a map-backed store.Store. Setting FailWrites makes Set and Remove
// fail with store.ErrPersistence without touching the data.
type Memory struct {
	mu         sync.Mutex
	data       map[string]string
	FailWrites bool
	FailReads  bool
	Writes     int
}

// NewMemory returns an empty Memory store seeded with the given pairs.
func NewMemory(seed map[string]string) *Memory {
	m := &Memory{data: make(map[string]string)}
	for k, v := range seed {
		m.data[k] = v
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads {
		return "", false, fmt.Errorf("%w: get %q: injected", store.ErrPersistence, key)
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return fmt.Errorf("%w: set %q: injected", store.ErrPersistence, key)
	}
	m.Writes++
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return fmt.Errorf("%w: remove %q: injected", store.ErrPersistence, key)
	}
	m.Writes++
	delete(m.data, key)
	return nil
}

// Value returns the raw value for key, or "" when absent.
func (m *Memory) Value(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

// Has reports whether key is present.
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// SetFailWrites toggles write failures.
func (m *Memory) SetFailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailWrites = fail
}
