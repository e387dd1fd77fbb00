// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware provides Echo middleware shared by the API routes.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/crypto-tracker/internal/auth"
	"codeberg.org/oliverandrich/crypto-tracker/internal/i18n"
	"github.com/labstack/echo/v4"
)

// Authenticator resolves a bearer token to a user ID.
type Authenticator interface {
	Authenticate(token string) (int64, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// token's user ID in the request context.
func RequireAuth(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"message": i18n.T(ctx, "error_no_token"),
				})
			}

			userID, err := authn.Authenticate(token)
			if err != nil {
				slog.Debug("token_rejected", "path", c.Path(), "error", err)
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"message": i18n.T(ctx, "error_invalid_token"),
				})
			}

			c.SetRequest(c.Request().WithContext(auth.WithUserID(ctx, userID)))
			return next(c)
		}
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
