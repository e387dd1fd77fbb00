// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"codeberg.org/oliverandrich/crypto-tracker/internal/config"
	"codeberg.org/oliverandrich/crypto-tracker/internal/handlers"
	"codeberg.org/oliverandrich/crypto-tracker/internal/models"
	"codeberg.org/oliverandrich/crypto-tracker/internal/repository"
	"codeberg.org/oliverandrich/crypto-tracker/internal/services/auth"
	"codeberg.org/oliverandrich/crypto-tracker/internal/services/token"
	"codeberg.org/oliverandrich/crypto-tracker/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingNotifier captures the one-time tokens that would be emailed.
type recordingNotifier struct {
	verify chan string
	reset  chan string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{verify: make(chan string, 4), reset: make(chan string, 4)}
}

func (n *recordingNotifier) SendVerification(_ context.Context, _ *models.User, tok string) error {
	n.verify <- tok
	return nil
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, _ *models.User, tok string) error {
	n.reset <- tok
	return nil
}

func newUserHandlers(t *testing.T) (*handlers.UserHandlers, *repository.Repository, *recordingNotifier) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	issuer, err := token.NewIssuer(&config.AuthConfig{JWTSecret: "test-secret"})
	require.NoError(t, err)

	notifier := newRecordingNotifier()
	svc := auth.NewService(repo, notifier, issuer)
	t.Cleanup(svc.Wait)
	return handlers.NewUser(svc), repo, notifier
}

func TestRegister(t *testing.T) {
	h, repo, notifier := newUserHandlers(t)

	body := `{"username":"alice","email":"alice@example.com","password":"s3cure-pass","first_name":"Alice"}`
	c, rec := newContext(http.MethodPost, "/user/register", body, 0, nil)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Message string      `json:"message"`
		User    models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "User registered successfully", resp.Message)
	assert.Equal(t, "alice", resp.User.Username)
	assert.False(t, resp.User.IsVerified)
	assert.NotContains(t, rec.Body.String(), "password")

	user, err := repo.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.FirstName)
	assert.NotEmpty(t, <-notifier.verify)
}

func TestRegister_Failures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"missing username", `{"email":"a@example.com","password":"s3cure-pass"}`, "Username is required"},
		{"missing email", `{"username":"alice","password":"s3cure-pass"}`, "Email is required"},
		{"missing password", `{"username":"alice","email":"a@example.com"}`, "Password is required"},
		{"invalid email", `{"username":"alice","email":"nope","password":"s3cure-pass"}`, "A valid email address is required"},
		{"short password", `{"username":"alice","email":"a@example.com","password":"abc"}`, "Password must be at least 6 characters long"},
		{"numeric password", `{"username":"alice","email":"a@example.com","password":"12345678"}`, "Password cannot be entirely numeric"},
		{"malformed body", `{"username":`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := newUserHandlers(t)

			c, rec := newContext(http.MethodPost, "/user/register", tt.body, 0, nil)
			require.NoError(t, h.Register(c))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, decodeMessage(t, rec))
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	h, repo, _ := newUserHandlers(t)
	testutil.NewTestUser(t, repo, "alice")

	body := `{"username":"alice","email":"other@example.com","password":"s3cure-pass"}`
	c, rec := newContext(http.MethodPost, "/user/register", body, 0, nil)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", decodeMessage(t, rec))
}

func TestLogin(t *testing.T) {
	h, repo, _ := newUserHandlers(t)
	user := testutil.NewTestUser(t, repo, "alice")

	body := `{"username":"alice","password":"` + testutil.TestPassword + `"}`
	c, rec := newContext(http.MethodPost, "/user/login", body, 0, nil)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Message string      `json:"message"`
		Token   string      `json:"token"`
		User    models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Login successful", resp.Message)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, user.ID, resp.User.ID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h, repo, _ := newUserHandlers(t)
	testutil.NewTestUser(t, repo, "alice")

	for _, body := range []string{
		`{"username":"alice","password":"wrong-password"}`,
		`{"username":"nobody","password":"wrong-password"}`,
	} {
		c, rec := newContext(http.MethodPost, "/user/login", body, 0, nil)
		require.NoError(t, h.Login(c))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid credentials", decodeMessage(t, rec))
	}
}

func TestLogin_Unverified(t *testing.T) {
	h, _, notifier := newUserHandlers(t)

	c, _ := newContext(http.MethodPost, "/user/register",
		`{"username":"bob","email":"bob@example.com","password":"s3cure-pass"}`, 0, nil)
	require.NoError(t, h.Register(c))
	<-notifier.verify

	c, rec := newContext(http.MethodPost, "/user/login", `{"username":"bob","password":"s3cure-pass"}`, 0, nil)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email not verified", decodeMessage(t, rec))
}

func TestVerifyEmail(t *testing.T) {
	h, repo, notifier := newUserHandlers(t)

	c, _ := newContext(http.MethodPost, "/user/register",
		`{"username":"bob","email":"bob@example.com","password":"s3cure-pass"}`, 0, nil)
	require.NoError(t, h.Register(c))
	tok := <-notifier.verify

	c, rec := newContext(http.MethodGet, "/user/verify-email?token="+tok, "", 0, nil)
	require.NoError(t, h.VerifyEmail(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "has been verified")

	user, err := repo.GetUserByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.True(t, user.IsVerified)
}

func TestVerifyEmail_InvalidToken(t *testing.T) {
	h, _, _ := newUserHandlers(t)

	for _, target := range []string{"/user/verify-email?token=bogus", "/user/verify-email"} {
		c, rec := newContext(http.MethodGet, target, "", 0, nil)
		require.NoError(t, h.VerifyEmail(c))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid or has expired")
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	h, repo, notifier := newUserHandlers(t)
	testutil.NewTestUser(t, repo, "alice")

	c, rec := newContext(http.MethodPost, "/user/forgot-password", `{"email":"alice@example.com"}`, 0, nil)
	require.NoError(t, h.ForgotPassword(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password reset email sent", decodeMessage(t, rec))
	tok := <-notifier.reset

	c, rec = newContext(http.MethodPost, "/user/reset-password", `{"token":"`+tok+`","password":"n3w-passphrase"}`, 0, nil)
	require.NoError(t, h.ResetPassword(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password has been reset", decodeMessage(t, rec))

	c, rec = newContext(http.MethodPost, "/user/login", `{"username":"alice","password":"n3w-passphrase"}`, 0, nil)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestForgotPassword_Failures(t *testing.T) {
	h, _, _ := newUserHandlers(t)

	c, rec := newContext(http.MethodPost, "/user/forgot-password", `{"email":"ghost@example.com"}`, 0, nil)
	require.NoError(t, h.ForgotPassword(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User not found", decodeMessage(t, rec))

	c, rec = newContext(http.MethodPost, "/user/forgot-password", `{}`, 0, nil)
	require.NoError(t, h.ForgotPassword(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email is required", decodeMessage(t, rec))
}

func TestResetPassword_Failures(t *testing.T) {
	h, repo, notifier := newUserHandlers(t)
	testutil.NewTestUser(t, repo, "alice")

	c, rec := newContext(http.MethodPost, "/user/reset-password", `{"token":"bogus","password":"n3w-passphrase"}`, 0, nil)
	require.NoError(t, h.ResetPassword(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired token", decodeMessage(t, rec))

	c, _ = newContext(http.MethodPost, "/user/forgot-password", `{"email":"alice@example.com"}`, 0, nil)
	require.NoError(t, h.ForgotPassword(c))
	tok := <-notifier.reset

	c, rec = newContext(http.MethodPost, "/user/reset-password", `{"token":"`+tok+`","password":"123"}`, 0, nil)
	require.NoError(t, h.ResetPassword(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Password must be at least 6 characters long", decodeMessage(t, rec))
}
