// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers implements the JSON HTTP API.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/oliverandrich/crypto-tracker/internal/repository"
	"github.com/labstack/echo/v4"
)

// Handlers contains the operational handlers.
type Handlers struct {
	repo *repository.Repository
	env  string
}

// New creates a new Handlers instance.
func New(repo *repository.Repository, env string) *Handlers {
	return &Handlers{repo: repo, env: env}
}

// Health reports service status and database reachability.
func (h *Handlers) Health(c echo.Context) error {
	status, code := "ok", http.StatusOK
	if h.repo != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.repo.Ping(ctx); err != nil {
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}

	return c.JSON(code, map[string]string{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"env":       h.env,
	})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}
