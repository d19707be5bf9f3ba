package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps values in a kv table via modernc.org/sqlite (pure Go)
type SQLiteStore struct {
	db *sql.DB

	// serialises Set so listeners observe commits in order
	mu sync.Mutex
	notifier
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at dbPath; use ":memory:" for testing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and writes serial.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the stored values for keys
func (s *SQLiteStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	query := `SELECT key, value FROM kv`
	args := make([]interface{}, 0, len(keys))
	if len(keys) > 0 {
		placeholders := make([]string, len(keys))
		for i, k := range keys {
			placeholders[i] = "?"
			args = append(args, k)
		}
		query += ` WHERE key IN (` + strings.Join(placeholders, ",") + `)`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query values: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		out[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate rows: %w", err)
	}

	return out, nil
}

// Set upserts every value in one transaction, then notifies listeners
func (s *SQLiteStore) Set(ctx context.Context, values map[string]any) error {
	encoded, keys, err := encodeValues(values)
	if err != nil {
		return err
	}

	s.mu.Lock()
	err = s.commit(ctx, encoded, keys)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publish(encoded, keys)
	return nil
}

func (s *SQLiteStore) commit(ctx context.Context, encoded map[string]json.RawMessage, keys []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}

	query := `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, query, k, string(encoded[k]), now); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: upsert %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Subscribe registers a change listener
func (s *SQLiteStore) Subscribe(fn Listener) func() {
	return s.subscribe(fn)
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
