package snapshot

import (
	"database/sql"
	"time"

	"github.com/go-faster/errors"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
);`

// SQLiteStore is a Store backed by a local sqlite database, surviving
// process restarts. expires_at is a unix timestamp; zero means no expiry.
// Expired rows are deleted lazily on read.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteStore opens (creating if needed) the snapshot database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(key string) (string, bool) {
	var (
		value     string
		expiresAt int64
	)
	err := s.db.QueryRow(
		`SELECT value, expires_at FROM snapshots WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if err != nil {
		return "", false
	}
	if expiresAt > 0 && s.now().Unix() > expiresAt {
		_, _ = s.db.Exec(`DELETE FROM snapshots WHERE key = ?`, key)
		return "", false
	}
	return value, true
}

// Set implements Store.
func (s *SQLiteStore) Set(key, value string, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).Unix()
	}
	_, err := s.db.Exec(
		`INSERT INTO snapshots (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt,
	)
	return errors.Wrap(err, "upsert snapshot")
}

// Remove implements Store.
func (s *SQLiteStore) Remove(key string) error {
	_, err := s.db.Exec(`DELETE FROM snapshots WHERE key = ?`, key)
	return errors.Wrap(err, "delete snapshot")
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable, for readiness probes.
func (s *SQLiteStore) Ping() error {
	return s.db.Ping()
}
