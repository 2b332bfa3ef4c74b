package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zackriver/carvalue/internal/apperror"
	"github.com/zackriver/carvalue/internal/model"
	"github.com/zackriver/carvalue/internal/repository"
)

// UserDB implements repository.UserRepository over the shared pool.
type UserDB struct {
	conn *sql.DB
}

var _ repository.UserRepository = (*UserDB)(nil)

// isUniqueEmailViolation recognises the UNIQUE constraint error for
// users.email. database/sql gives us no typed constraint errors for this
// driver, so we match the stable constraint name in the message.
func isUniqueEmailViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: users.email")
}

// Create inserts a new user and fills in the store-assigned ID and
// timestamps on the passed struct. A duplicate email surfaces as
// apperror.ErrConflict; the message deliberately says nothing about the
// existing account beyond the address already being taken.
func (db *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, is_privileged, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsPrivileged,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueEmailViolation(err) {
			return apperror.Conflict("email is already in use")
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id

	return nil
}

// GetByID retrieves a user by the store-assigned ID.
// Returns apperror.ErrNotFound when no such user exists.
func (db *UserDB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return db.scanUser(db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, is_privileged, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	), func() error { return apperror.NotFound("user", id) })
}

// GetByEmail is the lookup-by-unique-key operation. The comparison is
// case-sensitive, exactly as stored.
func (db *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.scanUser(db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, is_privileged, created_at, updated_at
		 FROM users WHERE email = ?`,
		email,
	), func() error { return apperror.NotFoundMsg("user not found with email " + email) })
}

// scanUser reads one user row; notFound supplies the miss error so the
// two lookups can report their own key.
func (db *UserDB) scanUser(row *sql.Row, notFound func() error) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.IsPrivileged,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound()
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}
	return &u, nil
}

// Update writes the mutable fields (name, email, password hash, privilege
// flag) and bumps updated_at. ID and created_at are immutable.
func (db *UserDB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET name = ?, email = ?, password_hash = ?, is_privileged = ?, updated_at = ?
		 WHERE id = ?`,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsPrivileged,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueEmailViolation(err) {
			return apperror.Conflict("email is already in use")
		}
		return fmt.Errorf("sqlite: updating user %d: %w", user.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", user.ID)
	}

	return nil
}

// Delete removes a user. RowsAffected distinguishes "deleted" from
// "never existed".
func (db *UserDB) Delete(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM users WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}

	return nil
}
