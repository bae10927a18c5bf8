package kfc

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteKVStore is a reference KVStore backing for SessionStore: one table,
// last-write-wins overwrite per stream_id.
type SQLiteKVStore struct {
	db *sql.DB
}

// NewSQLiteKVStore opens (creating if necessary) a sqlite database at path
// and ensures the sessions table exists.
func NewSQLiteKVStore(path string) (*SQLiteKVStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	stream_id  TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	updated_at REAL NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return &SQLiteKVStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteKVStore) Close() error {
	return s.db.Close()
}

// Load implements KVStore.
func (s *SQLiteKVStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM sessions WHERE stream_id = ?`, key)
	var doc string
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load session %s: %w", key, err)
	}
	return []byte(doc), true, nil
}

// Save implements KVStore with an upsert for last-write-wins semantics.
func (s *SQLiteKVStore) Save(ctx context.Context, key string, doc []byte) error {
	const stmt = `
INSERT INTO sessions (stream_id, document, updated_at) VALUES (?, ?, ?)
ON CONFLICT(stream_id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at;`
	_, err := s.db.ExecContext(ctx, stmt, key, string(doc), float64(time.Now().Unix()))
	if err != nil {
		return fmt.Errorf("save session %s: %w", key, err)
	}
	return nil
}
