// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code, so it builds wherever Go builds.
//
// LIFECYCLE:
// The store is an explicit handle, not a package-level singleton:
//
//	db, err := sqlite.Open(ctx, "data/edublog.db")  // connect + migrate
//	if err != nil { ... }
//	defer db.Close()                                // disconnect
//
// The handle is passed down to the services through the repository
// interfaces (db.Users(), db.Posts()).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB owns the connection pool and hands out the per-table stores.
type DB struct {
	conn  *sql.DB
	users *UserDB
	posts *PostDB
}

// Open connects to the database at dbPath and applies any pending migrations.
//
// dbPath examples:
//   - "data/edublog.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests; lost on Close)
func Open(ctx context.Context, dbPath string) (*DB, error) {
	db, err := Connect(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Connect opens the database without touching the schema. cmd/migrate uses
// it to drive migrations by hand; everything else should call Open.
func Connect(ctx context.Context, dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// ONE CONNECTION:
	// SQLite allows a single writer at a time anyway, so a one-connection pool
	// serializes writes inside database/sql instead of surfacing SQLITE_BUSY.
	// It also matters for ":memory:": every new connection would otherwise
	// get its own empty database. PRAGMAs are per connection, so they only
	// have to be applied once.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight.
	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	return &DB{
		conn:  conn,
		users: &UserDB{conn: conn},
		posts: &PostDB{conn: conn},
	}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database still answers. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: pinging database: %w", err)
	}
	return nil
}

// Users returns the user store backed by this database.
func (db *DB) Users() *UserDB {
	return db.users
}

// Posts returns the post store backed by this database.
func (db *DB) Posts() *PostDB {
	return db.posts
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
