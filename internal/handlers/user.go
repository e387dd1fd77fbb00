// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"bytes"
	"html/template"
	"net/http"

	"codeberg.org/oliverandrich/crypto-tracker/internal/i18n"
	"codeberg.org/oliverandrich/crypto-tracker/internal/services/auth"
	"github.com/labstack/echo/v4"
)

// UserHandlers contains account handlers.
type UserHandlers struct {
	auth *auth.Service
}

// NewUser creates a new UserHandlers instance.
func NewUser(authSvc *auth.Service) *UserHandlers {
	return &UserHandlers{auth: authSvc}
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register creates an unverified account and mails a verification link.
func (h *UserHandlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "error_bad_request", nil)
	}

	user, err := h.auth.Register(c.Request().Context(), auth.RegisterParams{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"message": i18n.T(c.Request().Context(), "user_registered"),
		"user":    user,
	})
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials of a verified account for a bearer token.
func (h *UserHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "error_bad_request", nil)
	}

	user, token, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message": i18n.T(c.Request().Context(), "login_success"),
		"token":   token,
		"user":    user,
	})
}

var verifyPage = template.Must(template.New("verify").Parse(`<!doctype html>
<html lang="{{.Lang}}">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body><h1>{{.Title}}</h1><p>{{.Text}}</p></body>
</html>
`))

// VerifyEmail redeems the emailed verification token. The link is opened
// in a browser, so the outcome is rendered as a small HTML page.
func (h *UserHandlers) VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()

	status, textID := http.StatusOK, "verify_page_success"
	if _, err := h.auth.VerifyEmail(ctx, c.QueryParam("token")); err != nil {
		status, textID = http.StatusBadRequest, "verify_page_failure"
	}

	var buf bytes.Buffer
	if err := verifyPage.Execute(&buf, map[string]string{
		"Lang":  i18n.GetLocale(ctx),
		"Title": i18n.T(ctx, "verify_page_title"),
		"Text":  i18n.T(ctx, textID),
	}); err != nil {
		return err
	}

	return c.HTML(status, buf.String())
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword mails a password reset token to a known address.
func (h *UserHandlers) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "error_bad_request", nil)
	}

	if err := h.auth.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return respondError(c, err)
	}

	return message(c, http.StatusOK, "password_reset_sent", nil)
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword redeems a reset token and sets a new password.
func (h *UserHandlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "error_bad_request", nil)
	}

	if err := h.auth.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return respondError(c, err)
	}

	return message(c, http.StatusOK, "password_reset_success", nil)
}
