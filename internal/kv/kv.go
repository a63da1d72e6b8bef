// Package kv is the durable local key-value store backing payment history.
// It mirrors the getItem/setItem surface of browser local storage on top of
// the workspace SQLite database.
package kv

import (
	"context"
	"database/sql"
	"time"
)

type Store struct {
	DB  *sql.DB
	Now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{DB: db, Now: time.Now}
}

// GetItem returns the stored value and whether the key exists.
func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetItem writes value under key, replacing any previous value.
func (s *Store) SetItem(ctx context.Context, key, value string) error {
	now := s.Now().UTC().Format(time.RFC3339)
	_, err := s.DB.ExecContext(ctx, `INSERT INTO kv(key,value,updated_at) VALUES (?,?,?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`, key, value, now)
	return err
}
