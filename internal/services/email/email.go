// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email sends account verification and password reset emails.
package email

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"codeberg.org/oliverandrich/crypto-tracker/internal/config"
	"codeberg.org/oliverandrich/crypto-tracker/internal/i18n"
	"codeberg.org/oliverandrich/crypto-tracker/internal/models"
	"github.com/wneessen/go-mail"
)

const (
	// TokenLength is the number of random bytes for one-time tokens.
	TokenLength = 32
	// VerificationExpiry is how long email verification tokens are valid.
	VerificationExpiry = 24 * time.Hour
	// ResetExpiry is how long password reset tokens are valid.
	ResetExpiry = time.Hour
)

// Sender delivers a single plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service composes localized account emails and hands them to a Sender.
type Service struct {
	sender  Sender
	baseURL string
}

// NewService creates a new email service.
func NewService(sender Sender, baseURL string) *Service {
	return &Service{
		sender:  sender,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// NewFromConfig delivers through SMTP when a host is configured and logs
// messages otherwise.
func NewFromConfig(cfg *config.SMTPConfig, baseURL string) (*Service, error) {
	if cfg.Host == "" {
		slog.Warn("smtp_disabled", "hint", "emails are written to the log")
		return NewService(LogSender{}, baseURL), nil
	}

	sender, err := NewSMTPSender(cfg)
	if err != nil {
		return nil, err
	}
	return NewService(sender, baseURL), nil
}

// GenerateToken generates a new one-time token valid for ttl.
// Returns (plaintext token, SHA256 hash for storage, expiry time, error).
func GenerateToken(ttl time.Duration) (string, string, time.Time, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	plaintext := hex.EncodeToString(bytes)
	return plaintext, HashToken(plaintext), time.Now().Add(ttl), nil
}

// HashToken computes the SHA256 hash of a token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// SendVerification sends the email verification link to the user.
func (s *Service) SendVerification(ctx context.Context, user *models.User, token string) error {
	verifyURL := fmt.Sprintf("%s/user/verify-email?token=%s", s.baseURL, url.QueryEscape(token))

	subject := i18n.T(ctx, "email_verification_subject")
	body := i18n.TData(ctx, "email_verification_body", map[string]any{
		"Name": displayName(user),
		"URL":  verifyURL,
	})

	return s.sender.Send(ctx, user.Email, subject, body)
}

// SendPasswordReset sends the password reset token to the user.
func (s *Service) SendPasswordReset(ctx context.Context, user *models.User, token string) error {
	subject := i18n.T(ctx, "email_password_reset_subject")
	body := i18n.TData(ctx, "email_password_reset_body", map[string]any{
		"Name":  displayName(user),
		"Token": token,
	})

	return s.sender.Send(ctx, user.Email, subject, body)
}

func displayName(user *models.User) string {
	if user.FirstName != "" {
		return user.FirstName
	}
	return user.Username
}

// SMTPSender delivers mail via SMTP using go-mail.
type SMTPSender struct {
	cfg *config.SMTPConfig
}

// NewSMTPSender validates the SMTP configuration.
func NewSMTPSender(cfg *config.SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	return &SMTPSender{cfg: cfg}, nil
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	// Implicit TLS on 465, STARTTLS elsewhere
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(_ context.Context, to, subject, body string) error {
	slog.Info("email_logged", "to", to, "subject", subject, "body", body)
	return nil
}
