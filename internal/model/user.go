// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// IDs are store-assigned integers starting at 1. That matters for the
// session layer: a session with userId 0 means "nobody is logged in", so
// the database must never hand out 0 as a real ID (SQLite AUTOINCREMENT
// starts at 1, which guarantees this).
//
// PasswordHash is the encoded output of the credential hasher
// ("<hex salt>.<hex key>", see internal/auth). It is stored as an opaque
// string and must never leave the server — the serialize package's user
// projection does not include it, so even a handler that returns the full
// User cannot leak it.
type User struct {
	ID           int64     `json:"id"           db:"id"`
	Name         string    `json:"name"         db:"name"`
	Email        string    `json:"email"        db:"email"` // unique, compared case-sensitively as stored
	PasswordHash string    `json:"passwordHash" db:"password_hash"`
	IsPrivileged bool      `json:"isPrivileged" db:"is_privileged"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"    db:"updated_at"`
}
