package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/zackriver/carvalue/internal/apperror"
	"github.com/zackriver/carvalue/internal/model"
)

// newTestDB opens an in-memory database. Each test gets its own — the DB
// disappears when the connection closes, so tests can't interfere.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a user and fails the test on error.
func createTestUser(t *testing.T, u *UserDB, email string) *model.User {
	t.Helper()
	user := &model.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: "deadbeefdeadbeef.0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
	}
	if err := u.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()

	user := createTestUser(t, u, "alice@example.com")

	// The store assigns the ID and fills timestamps in-place.
	if user.ID == 0 {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}
}

func TestUserCreate_IDsStartAtOne(t *testing.T) {
	// The session layer uses userId 0 as "anonymous", so the store must
	// never hand out 0.
	db := newTestDB(t)
	u := db.Users()

	first := createTestUser(t, u, "first@example.com")
	if first.ID < 1 {
		t.Errorf("first assigned ID = %d, want >= 1", first.ID)
	}
}

func TestUserCreate_DuplicateEmailConflicts(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()

	createTestUser(t, u, "dup@example.com")

	duplicate := &model.User{Email: "dup@example.com", PasswordHash: "x.y"}
	err := u.Create(context.Background(), duplicate)
	if err == nil {
		t.Fatal("Create() should fail for a duplicate email")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestUserCreate_EmailIsCaseSensitive(t *testing.T) {
	// Emails are unique as stored; "Dup@example.com" is a different key.
	db := newTestDB(t)
	u := db.Users()

	createTestUser(t, u, "dup@example.com")

	other := &model.User{Email: "Dup@example.com", PasswordHash: "x.y"}
	if err := u.Create(context.Background(), other); err != nil {
		t.Fatalf("Create() with different casing should succeed, got: %v", err)
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestUserGetByID(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()

	created := createTestUser(t, u, "bob@example.com")

	got, err := u.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "bob@example.com" {
		t.Errorf("Email = %q, want bob@example.com", got.Email)
	}
	if got.PasswordHash != created.PasswordHash {
		t.Error("GetByID() did not return the stored password hash")
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Users().GetByID(context.Background(), 9999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByEmail(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()

	created := createTestUser(t, u, "carol@example.com")

	got, err := u.GetByEmail(context.Background(), "carol@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID = %d, want %d", got.ID, created.ID)
	}
}

func TestUserGetByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Users().GetByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestUserUpdate(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()

	user := createTestUser(t, u, "dave@example.com")
	originalUpdatedAt := user.UpdatedAt

	user.Name = "Dave Renamed"
	user.IsPrivileged = true
	if err := u.Update(context.Background(), user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := u.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Dave Renamed" || !got.IsPrivileged {
		t.Errorf("update not persisted: %+v", got)
	}
	if !got.UpdatedAt.After(originalUpdatedAt) && !got.UpdatedAt.Equal(originalUpdatedAt) {
		t.Error("Update() did not bump updated_at")
	}
}

func TestUserUpdate_DuplicateEmailConflicts(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()

	createTestUser(t, u, "taken@example.com")
	user := createTestUser(t, u, "free@example.com")

	user.Email = "taken@example.com"
	err := u.Update(context.Background(), user)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestUserUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Users().Update(context.Background(), &model.User{ID: 9999, Email: "x@example.com"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestUserDelete(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()

	user := createTestUser(t, u, "gone@example.com")

	if err := u.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := u.GetByID(context.Background(), user.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("after delete, error = %v, want ErrNotFound", err)
	}
}

func TestUserDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Users().Delete(context.Background(), 9999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
