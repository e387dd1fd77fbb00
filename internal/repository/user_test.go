// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/crypto-tracker/internal/models"
	"codeberg.org/oliverandrich/crypto-tracker/internal/repository"
	"codeberg.org/oliverandrich/crypto-tracker/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	err := repo.CreateUser(ctx, user)

	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.IsVerified)
	assert.NotZero(t, user.CreatedAt)
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "alice")

	err := repo.CreateUser(ctx, &models.User{Username: "alice", Email: "other@example.com", PasswordHash: "hash"})

	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "alice")

	err := repo.CreateUser(ctx, &models.User{Username: "bob", Email: "alice@example.com", PasswordHash: "hash"})

	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestGetUserByID(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	created := testutil.NewTestUser(t, repo, "alice")

	retrieved, err := repo.GetUserByID(ctx, created.ID)

	require.NoError(t, err)
	assert.Equal(t, created.ID, retrieved.ID)
	assert.Equal(t, created.Username, retrieved.Username)
}

func TestGetUserByID_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetUserByID(context.Background(), 999)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetUserByUsernameAndEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	created := testutil.NewTestUser(t, repo, "alice")

	byName, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	byEmail, err := repo.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserExists(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "alice")

	tests := []struct {
		name     string
		username string
		email    string
		expected bool
	}{
		{"same username", "alice", "new@example.com", true},
		{"same email", "bob", "alice@example.com", true},
		{"neither", "bob", "bob@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exists, err := repo.UserExists(ctx, tt.username, tt.email)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, exists)
		})
	}
}

func TestVerifyUserEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(ctx, user))
	require.NoError(t, repo.CreateVerificationToken(ctx, user.ID, models.PurposeVerifyEmail, "verify-hash", time.Now().Add(time.Hour)))

	err := repo.VerifyUserEmail(ctx, user.ID)

	require.NoError(t, err)
	updated, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsVerified)

	_, err = repo.GetVerificationToken(ctx, "verify-hash")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestVerifyUserEmail_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.VerifyUserEmail(context.Background(), 999)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestResetUserPassword(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice")
	require.NoError(t, repo.CreateVerificationToken(ctx, user.ID, models.PurposeResetPassword, "reset-hash", time.Now().Add(time.Hour)))
	require.NoError(t, repo.CreateVerificationToken(ctx, user.ID, models.PurposeVerifyEmail, "verify-hash", time.Now().Add(time.Hour)))

	err := repo.ResetUserPassword(ctx, user.ID, "new-hash")

	require.NoError(t, err)
	updated, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", updated.PasswordHash)

	_, err = repo.GetVerificationToken(ctx, "reset-hash")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// tokens of other purposes survive
	_, err = repo.GetVerificationToken(ctx, "verify-hash")
	assert.NoError(t, err)
}
