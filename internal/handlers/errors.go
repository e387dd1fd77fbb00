// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/crypto-tracker/internal/i18n"
	"codeberg.org/oliverandrich/crypto-tracker/internal/services/auth"
	"codeberg.org/oliverandrich/crypto-tracker/internal/services/market"
	"codeberg.org/oliverandrich/crypto-tracker/internal/services/watchlist"
	"github.com/labstack/echo/v4"
)

// errorMapping translates a service error into a status and message ID.
// The first matching entry wins, so specific errors precede their parents.
type errorMapping struct {
	target    error
	status    int
	messageID string
}

var errorMappings = []errorMapping{
	// lists
	{watchlist.ErrNotMember, http.StatusNotFound, "error_membership_not_found"},
	{watchlist.ErrNotFound, http.StatusNotFound, "error_list_not_found"},
	{watchlist.ErrDuplicateName, http.StatusBadRequest, "error_list_exists"},
	{watchlist.ErrUnknownReference, http.StatusBadRequest, "error_crypto_not_found"},
	{watchlist.ErrNoNewMembers, http.StatusBadRequest, "error_no_new_cryptos"},
	{watchlist.ErrNameRequired, http.StatusBadRequest, "error_list_name_required"},
	{watchlist.ErrNoCatalogIDs, http.StatusBadRequest, "error_crypto_ids_required"},
	{watchlist.ErrInvalidInput, http.StatusBadRequest, "error_bad_request"},

	// catalog
	{market.ErrQueryRequired, http.StatusBadRequest, "error_query_required"},
	{market.ErrIDsRequired, http.StatusBadRequest, "error_ids_required"},
	{market.ErrInvalidRange, http.StatusBadRequest, "error_invalid_range"},
	{market.ErrInvalidInput, http.StatusBadRequest, "error_bad_request"},
	{market.ErrUpstream, http.StatusInternalServerError, "error_upstream"},

	// users
	{auth.ErrUserExists, http.StatusBadRequest, "error_user_exists"},
	{auth.ErrInvalidCredentials, http.StatusBadRequest, "error_invalid_credentials"},
	{auth.ErrNotVerified, http.StatusBadRequest, "error_email_not_verified"},
	{auth.ErrUserNotFound, http.StatusBadRequest, "error_user_not_found"},
	{auth.ErrInvalidEmail, http.StatusBadRequest, "error_invalid_email"},
	{auth.ErrInvalidToken, http.StatusBadRequest, "error_invalid_or_expired_token"},
}

// message writes a localized {"message": ...} body.
func message(c echo.Context, status int, messageID string, data map[string]any) error {
	return c.JSON(status, map[string]string{
		"message": i18n.TData(c.Request().Context(), messageID, data),
	})
}

// respondError maps err to its status code and localized message. Unknown
// errors are logged and reported as a generic server error.
func respondError(c echo.Context, err error) error {
	var missing *auth.MissingFieldError
	if errors.As(err, &missing) {
		return message(c, http.StatusBadRequest, "error_"+missing.Field+"_required", nil)
	}

	var weak *auth.PasswordValidationError
	if errors.As(err, &weak) {
		first := weak.First()
		return message(c, http.StatusBadRequest, first.Code, first.Data)
	}

	if errors.Is(err, market.ErrLimitExceeded) {
		return message(c, http.StatusBadRequest, "error_limit_exceeded", map[string]any{"Max": market.MaxLimit})
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				slog.Error("request_failed", "path", c.Path(), "error", err)
			}
			return message(c, m.status, m.messageID, nil)
		}
	}

	slog.Error("request_failed", "path", c.Path(), "error", err)
	return message(c, http.StatusInternalServerError, "error_server", nil)
}

// HTTPErrorHandler renders errors that escape handlers, such as unknown
// routes or oversized bodies, in the same shape as handler errors.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		_ = respondError(c, err)
		return
	}

	var messageID string
	switch he.Code {
	case http.StatusNotFound:
		messageID = "error_not_found"
	case http.StatusRequestEntityTooLarge:
		messageID = "error_request_too_large"
	case http.StatusBadRequest:
		messageID = "error_bad_request"
	case http.StatusUnauthorized:
		messageID = "error_invalid_token"
	default:
		if he.Code >= http.StatusInternalServerError {
			slog.Error("request_failed", "path", c.Path(), "error", err)
			messageID = "error_server"
		} else {
			_ = c.JSON(he.Code, map[string]string{"message": http.StatusText(he.Code)})
			return
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = message(c, he.Code, messageID, nil)
}
