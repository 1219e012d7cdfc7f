// Package sqlite implements the repository interfaces on an embedded SQLite
// database. It is the zero-infrastructure backend: local development, demos,
// and the router tests all run on it (":memory:" works too).
//
// modernc.org/sqlite is a pure Go translation of SQLite, so no C toolchain
// is needed.
//
// Layout mirrors the document model: one row per event, one row per
// attendee in event_attendees. Attendee order is insertion order (rowid).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/event-board/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/events.db"  → file-based database (persistent)
//   - ":memory:"        → in-memory database, gone on Close
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate empty database, so the
	// pool must never grow past one. File databases get the same limit:
	// SQLite serialises writers anyway.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Off by default in SQLite; attendee rows cascade with their event.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	// title is UNIQUE: the service checks for duplicates first, the
	// constraint closes the window between that check and the insert.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			place       TEXT NOT NULL,
			time        TEXT NOT NULL,
			category    TEXT NOT NULL,
			img_url     TEXT NOT NULL DEFAULT '',
			created_by  TEXT NOT NULL,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_events_time ON events(time);
		CREATE INDEX IF NOT EXISTS idx_events_category ON events(category);
	`)
	if err != nil {
		return fmt.Errorf("creating events table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS event_attendees (
			event_id  TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			user_sub  TEXT NOT NULL,
			name      TEXT NOT NULL DEFAULT '',
			email     TEXT NOT NULL DEFAULT '',
			picture   TEXT NOT NULL DEFAULT '',
			joined_at DATETIME NOT NULL,
			PRIMARY KEY (event_id, user_sub)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating event_attendees table: %w", err)
	}

	// Accounts are keyed by email: provider logins upsert on it.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			email         TEXT PRIMARY KEY,
			sub           TEXT NOT NULL DEFAULT '',
			name          TEXT NOT NULL DEFAULT '',
			picture       TEXT NOT NULL DEFAULT '',
			is_admin      INTEGER NOT NULL DEFAULT 0,
			password_hash TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login_at DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_users_sub ON users(sub);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	return nil
}
