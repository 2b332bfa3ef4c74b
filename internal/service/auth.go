// Package service contains the business logic layer: it sits between the
// HTTP handlers and the repositories, owns validation and access rules,
// and returns domain errors the handler layer translates to HTTP.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zackriver/carvalue/internal/apperror"
	"github.com/zackriver/carvalue/internal/auth"
	"github.com/zackriver/carvalue/internal/metrics"
	"github.com/zackriver/carvalue/internal/model"
	"github.com/zackriver/carvalue/internal/repository"
)

// MinPasswordLength is the business rule for new passwords. The HTTP
// layer only checks the body parses; length is enforced here so every
// caller gets it.
const MinPasswordLength = 8

// AuthService handles registration, login, and identity lookups.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	recorder  metrics.Recorder
	logger    *slog.Logger

	// dummyHash is a throwaway credential verified on login when the
	// email doesn't exist, so "unknown email" and "wrong password" take
	// the same time — an attacker can't enumerate accounts by timing.
	dummyHash string
}

// NewAuthService creates an AuthService with all dependencies injected.
func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *AuthService {
	// If hashing the pad fails, crypto/rand is broken and nothing else
	// will work either; Login degrades to a fast reject.
	dummyHash, _ := passwords.Hash("carvalue-timing-pad")

	return &AuthService{
		users:     users,
		passwords: passwords,
		recorder:  recorder,
		logger:    logger,
		dummyHash: dummyHash,
	}
}

// invalidCredentials is the single login failure. The message is
// identical for "no such email" and "wrong password" — returning
// different errors would let anyone probe which emails have accounts.
func invalidCredentials() error {
	return apperror.ValidationFailed("credentials", "invalid email or password")
}

// Register creates a new account and returns the stored user.
//
// A duplicate email surfaces as a conflict from the Record Store (its
// UNIQUE constraint is the source of truth — checking first and inserting
// second would race with concurrent signups).
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hashed, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Conflict (duplicate email) passes through as-is
		return nil, fmt.Errorf("service/auth: registering user: %w", err)
	}

	s.logger.Info("user registered", slog.Int64("userID", user.ID))

	return user, nil
}

// Login verifies credentials and returns the user on success.
//
// Failure is uniform: same error and comparable timing whether the email
// is unknown or the password is wrong. The password itself is never
// logged.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Burn the same derivation work a real verify would cost.
			s.passwords.Verify(s.dummyHash, password)
			s.recorder.RecordLoginFailure()
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if !s.passwords.Verify(user.PasswordHash, password) {
		s.recorder.RecordLoginFailure()
		return nil, invalidCredentials()
	}

	s.recorder.RecordLoginSuccess()
	s.logger.Info("user logged in", slog.Int64("userID", user.ID))

	return user, nil
}

// GetUserByID returns the user for the given store-assigned ID.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", id, err)
	}
	return user, nil
}

// LoginOrRegisterGitHub handles the OAuth callback: find the account for
// the GitHub user's verified email, or create one on first sign-in.
//
// Accounts created this way get an unusable random credential — the user
// can only sign in via GitHub until they set a password through a profile
// update.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*model.User, error) {
	if ghUser == nil || ghUser.Email == "" {
		return nil, fmt.Errorf("service/auth: GitHub user with email required")
	}

	user, err := s.users.GetByEmail(ctx, ghUser.Email)
	if err == nil {
		s.recorder.RecordLoginSuccess()
		s.logger.Info("user logged in via GitHub", slog.Int64("userID", user.ID))
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up GitHub user: %w", err)
	}

	credential, err := randomCredential()
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating credential: %w", err)
	}
	hashed, err := s.passwords.Hash(credential)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing credential: %w", err)
	}

	user = &model.User{
		Name:         ghUser.Login,
		Email:        ghUser.Email,
		PasswordHash: hashed,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			// Lost a race with a concurrent first sign-in for the same
			// email — the row exists now, use it.
			return s.users.GetByEmail(ctx, ghUser.Email)
		}
		return nil, fmt.Errorf("service/auth: creating GitHub user: %w", err)
	}

	s.logger.Info("user registered via GitHub", slog.Int64("userID", user.ID))

	return user, nil
}

// randomCredential returns 32 bytes of entropy as hex — a password nobody
// knows and nobody can guess.
func randomCredential() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
