// Package storage persists game snapshots in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/zappabad/coinsim/internal/market/core"
)

// DefaultKey is the fixed identifier the game snapshot is stored under.
const DefaultKey = "cryptoSimState"

// SQLiteStore keeps one full JSON snapshot per key.
type SQLiteStore struct {
	db  *sql.DB
	key string
}

// NewSQLiteStore opens (or creates) the database at path. An empty key uses
// DefaultKey.
func NewSQLiteStore(path, key string) (*SQLiteStore, error) {
	if key == "" {
		key = DefaultKey
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// single writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snapshots table: %w", err)
	}

	return &SQLiteStore{db: db, key: key}, nil
}

// Load returns the stored snapshot. ok is false when nothing was saved yet.
func (s *SQLiteStore) Load(ctx context.Context) (core.State, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM snapshots WHERE key = ?", s.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return core.State{}, false, nil
	}
	if err != nil {
		return core.State{}, false, fmt.Errorf("failed to query snapshot: %w", err)
	}

	var st core.State
	if err := json.Unmarshal([]byte(value), &st); err != nil {
		return core.State{}, false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return st, true, nil
}

// Save overwrites the stored snapshot.
func (s *SQLiteStore) Save(ctx context.Context, st core.State) error {
	value, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO snapshots (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		s.key, string(value), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Delete removes the stored snapshot.
func (s *SQLiteStore) Delete(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE key = ?", s.key); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
