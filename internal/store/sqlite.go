package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ginjaninja78/stock-scan/internal/config"
	"github.com/ginjaninja78/stock-scan/internal/session"
)

// SQLiteStore keeps one snapshot row per namespace.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	namespace string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path, namespace string) (*SQLiteStore, error) {
	if namespace == "" {
		namespace = config.DefaultNamespace
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path, namespace: namespace}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS snapshots (
		namespace TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create snapshots table: %w", err)
	}
	return nil
}

// Load implements session.Store.
func (s *SQLiteStore) Load(ctx context.Context) (session.State, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM snapshots WHERE namespace = ?", s.namespace).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Empty(), nil
	}
	if err != nil {
		return session.Empty(), fmt.Errorf("failed to read snapshot: %w", err)
	}
	return session.Decode([]byte(payload))
}

// Save implements session.Store.
func (s *SQLiteStore) Save(ctx context.Context, st session.State) error {
	data, err := session.Encode(st)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (namespace, payload, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(namespace) DO UPDATE SET
			payload = excluded.payload,
			saved_at = excluded.saved_at`,
		s.namespace, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Clear deletes this namespace's snapshot.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE namespace = ?", s.namespace); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	return nil
}

// Path returns the database path.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
