package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/event-board/internal/apperror"
	"github.com/sakif/event-board/internal/auth"
	"github.com/sakif/event-board/internal/model"
	"github.com/sakif/event-board/internal/repository"
)

// AuthService turns login requests into identities and keeps the users
// collection in step with them.
type AuthService struct {
	users     repository.UserRepository
	verifier  auth.Verifier
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService wires the account store, identity provider and password
// hasher.
func NewAuthService(
	users repository.UserRepository,
	verifier auth.Verifier,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		verifier:  verifier,
		passwords: passwords,
		logger:    logger,
	}
}

// LoginWithAccessToken verifies a provider access token and upserts the
// account by email. Provider failures are reported as unauthenticated.
func (s *AuthService) LoginWithAccessToken(ctx context.Context, accessToken string) (*model.Identity, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, apperror.ValidationFailed("access_token", "Missing access_token")
	}

	id, err := s.verifier.Verify(ctx, accessToken)
	if err != nil {
		s.logger.Info("access token rejected", slog.String("error", err.Error()))
		return nil, apperror.InvalidCredentials("Invalid access token")
	}
	if id.Sub == "" || id.Email == "" {
		return nil, apperror.InvalidCredentials("Identity provider returned no subject or email")
	}

	user := &model.User{
		Sub:         id.Sub,
		Email:       strings.ToLower(id.Email),
		Name:        id.Name,
		Picture:     id.Picture,
		LastLoginAt: time.Now().UTC(),
	}
	if err := s.users.UpsertLogin(ctx, user); err != nil {
		s.logger.Error("failed to record login",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("recording login: %w", err)
	}

	s.logger.Info("user logged in", slog.String("sub", id.Sub))
	return id, nil
}

// AdminLogin checks an email and password against a provisioned admin
// account.
//
// Unknown email and wrong password are unauthenticated; a known non-admin is
// forbidden. An admin record without a password hash or sub is a
// provisioning fault and surfaces as an internal error.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*model.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("", "Email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials("Invalid email or password")
		}
		return nil, fmt.Errorf("looking up admin: %w", err)
	}
	if !user.IsAdmin {
		return nil, apperror.Forbidden("Not an admin account")
	}
	if user.PasswordHash == "" || user.Sub == "" {
		s.logger.Error("admin account is not provisioned correctly", slog.String("email", email))
		return nil, fmt.Errorf("admin account %s has no password hash or sub", email)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("admin login failed", slog.String("email", email))
			return nil, apperror.InvalidCredentials("Invalid email or password")
		}
		return nil, fmt.Errorf("verifying admin password: %w", err)
	}

	s.logger.Info("admin logged in", slog.String("sub", user.Sub))
	return &model.Identity{
		Sub:     user.Sub,
		Email:   user.Email,
		Name:    user.Name,
		Picture: user.Picture,
	}, nil
}

// UserProfile returns the stored account for sub, or nil when none exists.
func (s *AuthService) UserProfile(ctx context.Context, sub string) (*model.User, error) {
	user, err := s.users.GetUserBySub(ctx, sub)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	return user, nil
}

// ProvisionAdmin creates or promotes the account for email to admin with
// the given password. Existing accounts keep their sub; new ones get a
// generated one.
func (s *AuthService) ProvisionAdmin(ctx context.Context, email, name, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperror.ValidationFailed("email", "Email is required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{Email: email, Name: strings.TrimSpace(name)}
	existing, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		user.Sub = existing.Sub
		if user.Name == "" {
			user.Name = existing.Name
		}
	case errors.Is(err, apperror.ErrNotFound):
	default:
		return nil, fmt.Errorf("looking up %s: %w", email, err)
	}
	if user.Sub == "" {
		user.Sub = xid.New().String()
	}
	user.IsAdmin = true
	user.PasswordHash = hash

	if err := s.users.SaveAdmin(ctx, user); err != nil {
		return nil, fmt.Errorf("saving admin: %w", err)
	}

	s.logger.Info("admin provisioned", slog.String("email", email), slog.String("sub", user.Sub))
	return user, nil
}
