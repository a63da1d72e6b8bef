// Package db opens the workspace SQLite database that backs the payment
// history KV and the operation journal.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	dataDirName = ".agrichain"
	dbFileName  = "agrichain.db"
)

type Config struct {
	Workspace string
}

func dataDir(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, dataDirName)
}

// EnsureWorkspace creates the workspace data directory if missing and
// returns its path.
func EnsureWorkspace(workspace string) (string, error) {
	dir := dataDir(workspace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create workspace dir: %w", err)
	}
	return dir, nil
}

// Path returns the database file path for the workspace.
func Path(workspace string) string {
	return filepath.Join(dataDir(workspace), dbFileName)
}

// Open opens the workspace database. Journal appends happen on the request
// path, so the connection pool is capped at one writer and readers wait on
// the busy timeout instead of failing.
func Open(cfg Config) (*sql.DB, error) {
	if _, err := EnsureWorkspace(cfg.Workspace); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", Path(cfg.Workspace))
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", Path(cfg.Workspace), err)
	}
	conn.SetMaxOpenConns(1)
	return conn, nil
}
