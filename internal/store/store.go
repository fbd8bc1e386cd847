// Package store persists threshold snapshots, proof events, and strategy
// lifecycle state in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS threshold_snapshots (
	config_version  TEXT PRIMARY KEY,
	thresholds_hash TEXT NOT NULL,
	snapshot        TEXT NOT NULL,
	status          TEXT NOT NULL,
	activated_by    TEXT,
	activated_at    TEXT,
	deprecated_at   TEXT,
	created_at      TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS threshold_snapshots_one_active
	ON threshold_snapshots (status) WHERE status = 'ACTIVE';

CREATE TABLE IF NOT EXISTS proof_events (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id      TEXT NOT NULL,
	sequence        INTEGER NOT NULL CHECK (sequence > 0),
	strategy_id     TEXT NOT NULL,
	type            TEXT NOT NULL,
	event_hash      TEXT NOT NULL,
	prev_event_hash TEXT NOT NULL,
	payload         TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	UNIQUE (session_id, sequence)
);

CREATE INDEX IF NOT EXISTS proof_events_strategy ON proof_events (strategy_id);

CREATE TABLE IF NOT EXISTS strategies (
	strategy_id      TEXT PRIMARY KEY,
	strategy_version INTEGER NOT NULL,
	lifecycle_state  TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS lifecycle_transitions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy_id TEXT NOT NULL,
	from_state  TEXT NOT NULL,
	to_state    TEXT NOT NULL,
	record_id   TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (strategy_id) REFERENCES strategies(strategy_id)
);
`

// #endregion schema

var (
	ErrSnapshotNotFound    = errors.New("threshold snapshot not found")
	ErrStrategyNotFound    = errors.New("strategy not found")
	ErrStaleLifecycleState = errors.New("lifecycle state changed concurrently")
)

// #region store-struct
// Store wraps the SQLite database. A single connection serializes writers,
// which makes every transaction serializable.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

// #endregion helpers
