package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// KVRepository handles database operations for the key/value store
type KVRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewKVRepository creates a new repository instance
func NewKVRepository(db *sqlx.DB) *KVRepository {
	return &KVRepository{db: db, now: time.Now}
}

// Get returns the value stored under key; ok is false when the key is absent
func (r *KVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.GetContext(ctx, &value, r.db.Rebind(`SELECT value FROM kv_store WHERE key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

// Set inserts or replaces the value under key
func (r *KVRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), key, value, r.now().UTC()); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (r *KVRepository) Remove(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM kv_store WHERE key = ?`), key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}
