// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// TokenPurpose distinguishes what a one-time token may be redeemed for.
type TokenPurpose string

const (
	PurposeVerifyEmail   TokenPurpose = "verify_email"
	PurposeResetPassword TokenPurpose = "reset_password"
)

// VerificationToken stores a hashed one-time token.
type VerificationToken struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64        `db:"id" json:"id"`
	UserID    int64        `db:"user_id" json:"user_id"`
	Purpose   TokenPurpose `db:"purpose" json:"purpose"`
	TokenHash string       `db:"token_hash" json:"-"` // SHA256 hash
	ExpiresAt time.Time    `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// Expired reports whether the token is past its expiry at now.
func (t *VerificationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
