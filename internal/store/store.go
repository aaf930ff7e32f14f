package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shift-tracker-backend/internal/model"
)

// ErrPersistence wraps every failure to read or write durable state.
var ErrPersistence = errors.New("persistence failure")

// Store is a durable key/value store that survives process restarts.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// DBStore is a Store that also exposes its database handle for the
// subscription endpoints.
type DBStore interface {
	Store
	DB() *gorm.DB
}

// gormStore implements DBStore using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) DBStore {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// Get returns the value stored under key. A missing key is not an error.
func (s *gormStore) Get(ctx context.Context, key string) (string, bool, error) {
	var entry model.StateEntry
	err := s.db.WithContext(ctx).Take(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %q: %w", ErrPersistence, key, err)
	}
	return entry.Value, true, nil
}

// Set inserts or replaces the value stored under key.
func (s *gormStore) Set(ctx context.Context, key, value string) error {
	entry := model.StateEntry{Key: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("%w: set %q: %w", ErrPersistence, key, err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is a no-op.
func (s *gormStore) Remove(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&model.StateEntry{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("%w: remove %q: %w", ErrPersistence, key, err)
	}
	return nil
}
