// Package sqlite implements the Record Store interfaces on SQLite.
//
// SQLite is an embedded database — it lives inside the Go binary as a
// single file, which keeps a single-server deployment to exactly one
// artifact. We use modernc.org/sqlite, a pure-Go translation of the
// SQLite C sources: no CGo, no C toolchain, cross-compiles anywhere Go
// does.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: the driver registers itself with database/sql
	// under the name "sqlite" in its init().
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool. The repositories hang off it as
// views over the same pool: db.Users() and db.Reports(). Both interfaces
// declare a Create/GetByID pair, so they cannot share one receiver type.
type DB struct {
	conn *sql.DB
}

// Users returns the user repository view of this database.
func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

// Reports returns the report repository view of this database.
func (db *DB) Reports() *ReportDB {
	return &ReportDB{conn: db.conn}
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for a throwaway in-memory database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// One connection only. SQLite has a single writer regardless, and a
	// ":memory:" database exists per connection — with a larger pool each
	// pooled connection would see its own empty database.
	conn.SetMaxOpenConns(1)

	// Force an immediate connection so a bad path or permission problem
	// surfaces here, not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress — without
	// it SQLite locks the whole file per write, which stalls a web server.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. reports.user_id
	// references users(id), so turn referential integrity on.
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

// Close closes the connection pool (flushes the WAL, releases the file
// lock). Callers should defer this right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it
// idempotent, so it is safe on every startup.
//
// users.id is INTEGER PRIMARY KEY AUTOINCREMENT: SQLite assigns ids
// starting at 1 and never reuses them, which is what lets the session
// layer use 0 as its "nobody" sentinel.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			name          TEXT NOT NULL DEFAULT '',
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			is_privileged INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS reports (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			price      REAL NOT NULL,
			make       TEXT NOT NULL,
			model      TEXT NOT NULL,
			year       INTEGER NOT NULL,
			longitude  REAL NOT NULL,
			latitude   REAL NOT NULL,
			mileage    INTEGER NOT NULL,
			approved   INTEGER NOT NULL DEFAULT 0,
			user_id    INTEGER NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_reports_user_id ON reports(user_id);
		CREATE INDEX IF NOT EXISTS idx_reports_make_model ON reports(make, model);
	`)
	if err != nil {
		return fmt.Errorf("creating reports table: %w", err)
	}

	return nil
}
