// Package kvstore persists application state as JSON values under well-known
// keys, one row per key. Every mutation rewrites the full value for its key;
// collections are small and the write pattern favors simplicity over
// incremental updates.
package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Well-known keys. A reader must tolerate an absent key and treat it as the
// type's empty value.
const (
	KeyUsers         = "users"
	KeyCurrentUser   = "currentUser"
	KeyExpenses      = "expenses"
	KeyIncomes       = "incomes"
	KeyFixedExpenses = "fixedExpenses"
	KeyUserSettings  = "userSettings"
	KeyShoppingLists = "shoppingLists"
)

type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the backing database and runs migrations.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get unmarshals the value stored under key into dest. An absent key leaves
// dest untouched. A corrupted value is logged and treated as absent rather
// than surfaced; callers always see a usable default.
func (s *Store) Get(ctx context.Context, key string, dest any) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read key %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		slog.WarnContext(ctx, "Discarding corrupted stored value",
			"key", key,
			"error", err)
		return nil
	}
	return nil
}

// Put marshals v and stores it under key, replacing any previous value.
func (s *Store) Put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal key %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, string(raw))
	if err != nil {
		return fmt.Errorf("write key %s: %w", key, err)
	}

	slog.DebugContext(ctx, "Persisted value", "key", key, "bytes", len(raw))
	return nil
}

// Delete removes the value stored under key. Deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete key %s: %w", key, err)
	}
	return nil
}
