package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"shift-tracker-backend/internal/model"
	"shift-tracker-backend/internal/store"
)

// StoreKey is the store key holding the serialized log.
const StoreKey = "history.locations"

// Log is the append-only, persisted list of captured fixes. The in-memory copy
// is authoritative; every mutation rewrites the whole list to the store.
type Log struct {
	mu    sync.RWMutex
	store store.Store
	fixes []model.LocationFix
	ids   map[string]struct{}
	newID func() string
}

// Load restores the log from s. A missing or unreadable entry yields an empty
// log together with the error, so callers can log it and carry on.
func Load(ctx context.Context, s store.Store) (*Log, error) {
	l := &Log{
		store: s,
		ids:   make(map[string]struct{}),
		newID: uuid.NewString,
	}

	raw, found, err := s.Get(ctx, StoreKey)
	if err != nil {
		return l, err
	}
	if !found || raw == "" {
		return l, nil
	}

	var fixes []model.LocationFix
	if err := json.Unmarshal([]byte(raw), &fixes); err != nil {
		return l, fmt.Errorf("corrupt location history: %w", err)
	}
	l.fixes = fixes
	for _, f := range fixes {
		l.ids[f.ID] = struct{}{}
	}
	return l, nil
}

// Append assigns fix a fresh id, adds it to the end of the log and persists
// the log. The fix stays in memory even if persisting fails.
func (l *Log) Append(ctx context.Context, fix model.LocationFix) (model.LocationFix, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fix.ID = l.uniqueIDLocked()
	l.fixes = append(l.fixes, fix)
	l.ids[fix.ID] = struct{}{}
	return fix, l.persistLocked(ctx)
}

// Clear empties the log and persists the empty list. Ids handed out earlier
// stay reserved for the lifetime of the process.
func (l *Log) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.fixes = nil
	return l.persistLocked(ctx)
}

// Latest returns the most recently appended fix.
func (l *Log) Latest() (model.LocationFix, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.fixes) == 0 {
		return model.LocationFix{}, false
	}
	return l.fixes[len(l.fixes)-1], true
}

// First returns the oldest fix, i.e. the first capture of the current session.
func (l *Log) First() (model.LocationFix, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.fixes) == 0 {
		return model.LocationFix{}, false
	}
	return l.fixes[0], true
}

// List returns a copy of all fixes in append order.
func (l *Log) List() []model.LocationFix {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.LocationFix, len(l.fixes))
	copy(out, l.fixes)
	return out
}

// Len returns the number of fixes in the log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.fixes)
}

func (l *Log) uniqueIDLocked() string {
	for {
		id := l.newID()
		if _, taken := l.ids[id]; !taken {
			return id
		}
	}
}

func (l *Log) persistLocked(ctx context.Context) error {
	fixes := l.fixes
	if fixes == nil {
		fixes = []model.LocationFix{}
	}
	data, err := json.Marshal(fixes)
	if err != nil {
		return fmt.Errorf("failed to marshal location history: %w", err)
	}
	if err := l.store.Set(ctx, StoreKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist location history: %w", err)
	}
	return nil
}
