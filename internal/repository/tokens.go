// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/crypto-tracker/internal/models"
	"github.com/vinovest/sqlx"
)

// CreateVerificationToken stores a hashed one-time token for a user.
func (r *Repository) CreateVerificationToken(ctx context.Context, userID int64, purpose models.TokenPurpose, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verification_tokens (user_id, purpose, token_hash, expires_at) VALUES (?, ?, ?, ?)`,
		userID, string(purpose), tokenHash, expiresAt.UTC())
	return wrapError(err)
}

// GetVerificationToken retrieves a token by hash.
func (r *Repository) GetVerificationToken(ctx context.Context, tokenHash string) (*models.VerificationToken, error) {
	var token models.VerificationToken
	err := r.db.GetContext(ctx, &token, `SELECT * FROM verification_tokens WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// DeleteUserVerificationTokens deletes all tokens of a purpose for a user.
func (r *Repository) DeleteUserVerificationTokens(ctx context.Context, userID int64, purpose models.TokenPurpose) error {
	return deleteUserTokens(ctx, r.db, userID, purpose)
}

// DeleteExpiredVerificationTokens deletes tokens whose expiry has passed.
func (r *Repository) DeleteExpiredVerificationTokens(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func deleteUserTokens(ctx context.Context, db sqlx.ExecerContext, userID int64, purpose models.TokenPurpose) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE user_id = ? AND purpose = ?`, userID, string(purpose))
	return err
}
