package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zackriver/carvalue/internal/apperror"
	"github.com/zackriver/carvalue/internal/auth"
	"github.com/zackriver/carvalue/internal/model"
	"github.com/zackriver/carvalue/internal/repository"
)

// UserService manages existing accounts: lookup, profile updates, and
// deletion. Creation lives in AuthService because it is part of signup.
type UserService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *UserService {
	return &UserService{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// authorizeAccount enforces the account access rule: a user may act on
// their own account, a privileged user on any account.
func authorizeAccount(actor *model.User, targetID int64) error {
	if actor.ID == targetID || actor.IsPrivileged {
		return nil
	}
	return apperror.Forbidden("you may only manage your own account")
}

// Get returns the user with the given ID, if the actor may see it.
func (s *UserService) Get(ctx context.Context, actor *model.User, id int64) (*model.User, error) {
	if err := authorizeAccount(actor, id); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user %d: %w", id, err)
	}
	return user, nil
}

// GetByEmail looks a user up by exact email. The route serving this is
// restricted to privileged users; the service just resolves the lookup.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email query parameter is required")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user by email: %w", err)
	}
	return user, nil
}

// UserUpdate carries the optional fields of a profile update. Nil means
// "leave unchanged" — so a PUT body can send just the fields it wants to
// touch.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

// Update applies a partial update to the target account and returns the
// stored result.
//
// A new password goes through the same length rule and hashing as signup;
// the plaintext never reaches the Record Store. Privilege cannot be
// granted here — is_privileged is operator-managed, not an API field.
func (s *UserService) Update(ctx context.Context, actor *model.User, id int64, upd UserUpdate) (*model.User, error) {
	if err := authorizeAccount(actor, id); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user %d: %w", id, err)
	}

	if upd.Name != nil {
		user.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if email == "" || !strings.Contains(email, "@") {
			return nil, apperror.ValidationFailed("email", "a valid email is required")
		}
		user.Email = email
	}
	if upd.Password != nil {
		if len(*upd.Password) < MinPasswordLength {
			return nil, apperror.ValidationFailed("password",
				fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
		}
		hashed, err := s.passwords.Hash(*upd.Password)
		if err != nil {
			return nil, fmt.Errorf("service/user: hashing password: %w", err)
		}
		user.PasswordHash = hashed
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating user %d: %w", id, err)
	}

	s.logger.Info("user updated", slog.Int64("userID", id), slog.Int64("actorID", actor.ID))

	return user, nil
}

// Delete removes the target account.
func (s *UserService) Delete(ctx context.Context, actor *model.User, id int64) error {
	if err := authorizeAccount(actor, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/user: deleting user %d: %w", id, err)
	}

	s.logger.Info("user deleted", slog.Int64("userID", id), slog.Int64("actorID", actor.ID))

	return nil
}
