// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth handles registration, login, email verification and
// password resets.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"codeberg.org/oliverandrich/crypto-tracker/internal/models"
	"codeberg.org/oliverandrich/crypto-tracker/internal/repository"
	"codeberg.org/oliverandrich/crypto-tracker/internal/services/email"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("email not verified")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrMissingField       = errors.New("missing required field")
)

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Notifier delivers account emails.
type Notifier interface {
	SendVerification(ctx context.Context, user *models.User, token string) error
	SendPasswordReset(ctx context.Context, user *models.User, token string) error
}

// TokenIssuer issues bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// MissingFieldError names the required field that was empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return e.Field + " is required"
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

type Service struct {
	repo              *repository.Repository
	notifier          Notifier
	issuer            TokenIssuer
	passwordValidator *PasswordValidator
	now               func() time.Time
	pending           sync.WaitGroup
}

func NewService(repo *repository.Repository, notifier Notifier, issuer TokenIssuer) *Service {
	return &Service{
		repo:              repo,
		notifier:          notifier,
		issuer:            issuer,
		passwordValidator: DefaultPasswordValidator(),
		now:               time.Now,
	}
}

// RegisterParams holds the parameters for user registration
type RegisterParams struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates an unverified account and emails a verification link.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	params.Username = strings.TrimSpace(params.Username)
	params.Email = strings.TrimSpace(params.Email)

	switch {
	case params.Username == "":
		return nil, &MissingFieldError{Field: "username"}
	case params.Email == "":
		return nil, &MissingFieldError{Field: "email"}
	case params.Password == "":
		return nil, &MissingFieldError{Field: "password"}
	}

	if _, err := mail.ParseAddress(params.Email); err != nil {
		return nil, ErrInvalidEmail
	}

	validation := s.passwordValidator.Validate(params.Password, params.Username, params.Email)
	if !validation.Valid {
		return nil, &PasswordValidationError{Errors: validation.Errors}
	}

	exists, err := s.repo.UserExists(ctx, params.Username, params.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: string(passwordHash),
		FirstName:    strings.TrimSpace(params.FirstName),
		LastName:     strings.TrimSpace(params.LastName),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("register_success", "user_id", user.ID, "username", user.Username)

	token, err := s.issueOneTimeToken(ctx, user.ID, models.PurposeVerifyEmail, email.VerificationExpiry)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, "verification", user, token, s.notifier.SendVerification)

	return user, nil
}

// Login authenticates a user and returns the user with a bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return nil, "", &MissingFieldError{Field: "username"}
	case password == "":
		return nil, "", &MissingFieldError{Field: "password"}
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "username", username, "reason", "user_not_found")
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "username", username, "reason", "invalid_password")
		return nil, "", ErrInvalidCredentials
	}

	if !user.IsVerified {
		slog.Warn("login_failed", "username", username, "reason", "not_verified")
		return nil, "", ErrNotVerified
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("login_success", "user_id", user.ID)
	return user, token, nil
}

// VerifyEmail redeems a verification token and marks the user verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	vt, err := s.redeemable(ctx, token, models.PurposeVerifyEmail)
	if err != nil {
		return nil, err
	}

	if err := s.repo.VerifyUserEmail(ctx, vt.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to verify email: %w", err)
	}

	slog.Info("email_verified", "user_id", vt.UserID)
	return s.repo.GetUserByID(ctx, vt.UserID)
}

// ForgotPassword emails a password reset token to the account's address.
func (s *Service) ForgotPassword(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return &MissingFieldError{Field: "email"}
	}

	user, err := s.repo.GetUserByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	token, err := s.issueOneTimeToken(ctx, user.ID, models.PurposeResetPassword, email.ResetExpiry)
	if err != nil {
		return err
	}
	s.notify(ctx, "password_reset", user, token, s.notifier.SendPasswordReset)

	slog.Info("password_reset_requested", "user_id", user.ID)
	return nil
}

// ResetPassword redeems a reset token and replaces the user's password.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if password == "" {
		return &MissingFieldError{Field: "password"}
	}

	vt, err := s.redeemable(ctx, token, models.PurposeResetPassword)
	if err != nil {
		return err
	}

	user, err := s.repo.GetUserByID(ctx, vt.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	validation := s.passwordValidator.Validate(password, user.Username, user.Email)
	if !validation.Valid {
		return &PasswordValidationError{Errors: validation.Errors}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.ResetUserPassword(ctx, user.ID, string(passwordHash)); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	slog.Info("password_reset", "user_id", user.ID)
	return nil
}

// Wait blocks until every queued email has been handed to the notifier.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) redeemable(ctx context.Context, token string, purpose models.TokenPurpose) (*models.VerificationToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, &MissingFieldError{Field: "token"}
	}

	vt, err := s.repo.GetVerificationToken(ctx, email.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	if vt.Purpose != purpose || vt.Expired(s.now()) {
		return nil, ErrInvalidToken
	}
	return vt, nil
}

func (s *Service) issueOneTimeToken(ctx context.Context, userID int64, purpose models.TokenPurpose, ttl time.Duration) (string, error) {
	plaintext, hash, expiresAt, err := email.GenerateToken(ttl)
	if err != nil {
		return "", err
	}
	if err := s.repo.CreateVerificationToken(ctx, userID, purpose, hash, expiresAt); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return plaintext, nil
}

// notify sends in the background; failures are logged and never reach
// the caller.
func (s *Service) notify(ctx context.Context, kind string, user *models.User, token string, send func(context.Context, *models.User, string) error) {
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := send(ctx, user, token); err != nil {
			slog.Error("email_send_failed", "kind", kind, "user_id", user.ID, "error", err)
		}
	}()
}
