// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"codeberg.org/oliverandrich/crypto-tracker/internal/repository"
	"codeberg.org/oliverandrich/crypto-tracker/internal/services/market"
	"github.com/labstack/echo/v4"
)

// CryptoHandlers serves provider lookups and the shared catalog.
type CryptoHandlers struct {
	gateway *market.Gateway
	repo    *repository.Repository
}

// NewCrypto creates a new CryptoHandlers instance.
func NewCrypto(gateway *market.Gateway, repo *repository.Repository) *CryptoHandlers {
	return &CryptoHandlers{gateway: gateway, repo: repo}
}

type SearchRequest struct {
	Query string `json:"query"`
}

// Search proxies a free-text coin search to the provider.
func (h *CryptoHandlers) Search(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "error_bad_request", nil)
	}

	coins, err := h.gateway.Search(c.Request().Context(), req.Query)
	if err != nil {
		return respondError(c, err)
	}
	if coins == nil {
		coins = []market.CoinSummary{}
	}
	return c.JSON(http.StatusOK, coins)
}

// Top returns the provider's top coins by market cap.
func (h *CryptoHandlers) Top(c echo.Context) error {
	limit, ok := queryLimit(c)
	if !ok {
		return message(c, http.StatusBadRequest, "error_invalid_limit", nil)
	}

	records, err := h.gateway.Top(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err)
	}
	if records == nil {
		records = []market.MarketRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

type SaveCryptoRequest struct {
	IDs []string `json:"ids"`
}

// SaveCrypto fetches market data for provider ids and caches it.
func (h *CryptoHandlers) SaveCrypto(c echo.Context) error {
	var req SaveCryptoRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "error_bad_request", nil)
	}

	refs, err := h.gateway.FetchMarket(c.Request().Context(), req.IDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, refs)
}

type SaveTopRequest struct {
	Limit int `json:"limit"`
}

// SaveTop caches the provider's top coins.
func (h *CryptoHandlers) SaveTop(c echo.Context) error {
	var req SaveTopRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "error_bad_request", nil)
	}
	if req.Limit < 0 {
		return message(c, http.StatusBadRequest, "error_invalid_limit", nil)
	}

	refs, err := h.gateway.SaveTop(c.Request().Context(), req.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, refs)
}

// SavedCryptos lists the cached catalog ordered by market cap.
func (h *CryptoHandlers) SavedCryptos(c echo.Context) error {
	entries, err := h.repo.ListCatalogEntries(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	if len(entries) == 0 {
		return message(c, http.StatusNotFound, "error_no_saved_cryptos", nil)
	}
	return c.JSON(http.StatusOK, entries)
}

// Historical returns a coin's price history between time_start and
// time_end. Missing bounds default to the last seven days.
func (h *CryptoHandlers) Historical(c echo.Context) error {
	from, ok := queryTime(c, "time_start")
	if !ok {
		return message(c, http.StatusBadRequest, "error_invalid_time", nil)
	}
	to, ok := queryTime(c, "time_end")
	if !ok {
		return message(c, http.StatusBadRequest, "error_invalid_time", nil)
	}

	points, err := h.gateway.Historical(c.Request().Context(), c.QueryParam("id"), from, to)
	if err != nil {
		return respondError(c, err)
	}
	if points == nil {
		points = []market.PricePoint{}
	}
	return c.JSON(http.StatusOK, points)
}

// queryTime parses an optional RFC 3339 query parameter. Absent means the
// zero time.
func queryTime(c echo.Context, name string) (time.Time, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	return t, err == nil
}

// queryLimit reads the optional limit query parameter. Absent means zero,
// which selects the default.
func queryLimit(c echo.Context) (int, bool) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	return limit, err == nil && limit > 0
}
