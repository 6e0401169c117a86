package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ledger_kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER
)`

// SQLiteStorage persists ledger state in a local SQLite file.
type SQLiteStorage struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLiteStorage opens (or creates) the database at path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, errors.Join(ErrOpenDatabase, err)
	}
	// a single connection keeps ":memory:" databases coherent
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Join(ErrOpenDatabase, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Join(ErrMigrateDatabase, err)
	}

	return &SQLiteStorage{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type kvRow struct {
	Value     []byte        `db:"value"`
	ExpiresAt sql.NullInt64 `db:"expires_at"`
}

// Get returns the value for key, or nil when missing or expired.
func (s *SQLiteStorage) Get(key string) ([]byte, error) {
	var row kvRow
	err := s.db.Get(&row, "SELECT value, expires_at FROM ledger_kv WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading key %s: %w", key, err)
	}

	if row.ExpiresAt.Valid && s.now().UnixNano() >= row.ExpiresAt.Int64 {
		return nil, s.Delete(key)
	}
	return row.Value, nil
}

// Set stores val under key. A zero exp never expires.
func (s *SQLiteStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" {
		return nil
	}

	var expiresAt sql.NullInt64
	if exp > 0 {
		expiresAt = sql.NullInt64{Int64: s.now().Add(exp).UnixNano(), Valid: true}
	}

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO ledger_kv (key, value, expires_at) VALUES (?, ?, ?)",
		key, val, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("writing key %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *SQLiteStorage) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM ledger_kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting key %s: %w", key, err)
	}
	return nil
}
