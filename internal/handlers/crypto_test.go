// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"codeberg.org/oliverandrich/crypto-tracker/internal/handlers"
	"codeberg.org/oliverandrich/crypto-tracker/internal/models"
	"codeberg.org/oliverandrich/crypto-tracker/internal/repository"
	"codeberg.org/oliverandrich/crypto-tracker/internal/services/market"
	"codeberg.org/oliverandrich/crypto-tracker/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	coins   []market.CoinSummary
	records []market.MarketRecord
	points  []market.PricePoint
	err     error
	history []market.HistoryQuery
}

func (s *stubProvider) Search(context.Context, string) ([]market.CoinSummary, error) {
	return s.coins, s.err
}

func (s *stubProvider) Markets(_ context.Context, q market.MarketsQuery) ([]market.MarketRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	if q.Limit > 0 && q.Limit < len(s.records) {
		return s.records[:q.Limit], nil
	}
	return s.records, nil
}

func (s *stubProvider) Historical(_ context.Context, q market.HistoryQuery) ([]market.PricePoint, error) {
	s.history = append(s.history, q)
	return s.points, s.err
}

func newCryptoHandlers(t *testing.T, p *stubProvider) (*handlers.CryptoHandlers, *repository.Repository) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	return handlers.NewCrypto(market.NewGateway(p, repo), repo), repo
}

func marketRecord(id, symbol string, marketCap int64) market.MarketRecord {
	return market.MarketRecord{
		ID:           id,
		Symbol:       symbol,
		Name:         id,
		CurrentPrice: decimal.NewFromInt(marketCap / 1000),
		MarketCap:    decimal.NewFromInt(marketCap),
	}
}

func TestSearch(t *testing.T) {
	h, _ := newCryptoHandlers(t, &stubProvider{coins: []market.CoinSummary{{ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC"}}})

	c, rec := newContext(http.MethodPost, "/crypto/search", `{"query":"bit"}`, 0, nil)
	require.NoError(t, h.Search(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var coins []market.CoinSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &coins))
	require.Len(t, coins, 1)
	assert.Equal(t, "bitcoin", coins[0].ID)
}

func TestSearch_Failures(t *testing.T) {
	h, _ := newCryptoHandlers(t, &stubProvider{})
	c, rec := newContext(http.MethodPost, "/crypto/search", `{"query":"  "}`, 0, nil)
	require.NoError(t, h.Search(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Query parameter is required", decodeMessage(t, rec))

	h, _ = newCryptoHandlers(t, &stubProvider{err: errors.New("connection refused")})
	c, rec = newContext(http.MethodPost, "/crypto/search", `{"query":"bit"}`, 0, nil)
	require.NoError(t, h.Search(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch cryptocurrency data", decodeMessage(t, rec))
}

func TestTop(t *testing.T) {
	h, repo := newCryptoHandlers(t, &stubProvider{records: []market.MarketRecord{
		marketRecord("bitcoin", "btc", 900_000),
		marketRecord("ethereum", "eth", 400_000),
		marketRecord("tether", "usdt", 100_000),
	}})

	c, rec := newContext(http.MethodGet, "/crypto/top?limit=2", "", 0, nil)
	require.NoError(t, h.Top(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var records []market.MarketRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	assert.Len(t, records, 2)

	cached, err := repo.ListCatalogEntries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cached, "top must not write to the catalog")
}

func TestTop_InvalidLimit(t *testing.T) {
	h, _ := newCryptoHandlers(t, &stubProvider{})

	for target, msg := range map[string]string{
		"/crypto/top?limit=abc": "Limit must be a positive number",
		"/crypto/top?limit=-1":  "Limit must be a positive number",
		"/crypto/top?limit=101": "Limit cannot exceed 100",
	} {
		c, rec := newContext(http.MethodGet, target, "", 0, nil)
		require.NoError(t, h.Top(c))

		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, msg, decodeMessage(t, rec), target)
	}
}

func TestSaveCrypto(t *testing.T) {
	h, repo := newCryptoHandlers(t, &stubProvider{records: []market.MarketRecord{
		marketRecord("bitcoin", "btc", 900_000),
		marketRecord("ethereum", "eth", 400_000),
	}})

	c, rec := newContext(http.MethodPost, "/crypto/save-crypto", `{"ids":["bitcoin","ethereum"]}`, 0, nil)
	require.NoError(t, h.SaveCrypto(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var refs []models.CatalogRef
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refs))
	require.Len(t, refs, 2)
	assert.Equal(t, "BTC", refs[0].Symbol)
	assert.Equal(t, "bitcoin", refs[0].ProviderID)

	entry, err := repo.GetCatalogEntryBySymbol(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, refs[1].ID, entry.ID)
}

func TestSaveCrypto_Failures(t *testing.T) {
	h, _ := newCryptoHandlers(t, &stubProvider{})
	c, rec := newContext(http.MethodPost, "/crypto/save-crypto", `{"ids":[]}`, 0, nil)
	require.NoError(t, h.SaveCrypto(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "At least one cryptocurrency id is required", decodeMessage(t, rec))

	h, _ = newCryptoHandlers(t, &stubProvider{err: errors.New("timeout")})
	c, rec = newContext(http.MethodPost, "/crypto/save-crypto", `{"ids":["bitcoin"]}`, 0, nil)
	require.NoError(t, h.SaveCrypto(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch cryptocurrency data", decodeMessage(t, rec))
}

func TestSaveTop(t *testing.T) {
	h, repo := newCryptoHandlers(t, &stubProvider{records: []market.MarketRecord{
		marketRecord("bitcoin", "btc", 900_000),
		marketRecord("ethereum", "eth", 400_000),
		marketRecord("tether", "usdt", 100_000),
	}})

	c, rec := newContext(http.MethodPost, "/crypto/save-top", `{"limit":2}`, 0, nil)
	require.NoError(t, h.SaveTop(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	cached, err := repo.ListCatalogEntries(context.Background())
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestSaveTop_LimitExceeded(t *testing.T) {
	h, _ := newCryptoHandlers(t, &stubProvider{})

	c, rec := newContext(http.MethodPost, "/crypto/save-top", `{"limit":500}`, 0, nil)
	require.NoError(t, h.SaveTop(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Limit cannot exceed 100", decodeMessage(t, rec))
}

func TestSavedCryptos(t *testing.T) {
	h, repo := newCryptoHandlers(t, &stubProvider{})

	c, rec := newContext(http.MethodGet, "/crypto/saved-cryptos", "", 0, nil)
	require.NoError(t, h.SavedCryptos(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No saved cryptocurrencies found", decodeMessage(t, rec))

	testutil.NewTestCatalogEntry(t, repo, "ETH", 400_000)
	testutil.NewTestCatalogEntry(t, repo, "BTC", 900_000)

	c, rec = newContext(http.MethodGet, "/crypto/saved-cryptos", "", 0, nil)
	require.NoError(t, h.SavedCryptos(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var entries []models.CatalogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "BTC", entries[0].Symbol)
	assert.Equal(t, "ETH", entries[1].Symbol)
}

func TestHistorical(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &stubProvider{points: []market.PricePoint{{Time: at, Price: decimal.NewFromInt(61000)}}}
	h, _ := newCryptoHandlers(t, p)

	c, rec := newContext(http.MethodGet, "/crypto/historical?id=ethereum&time_start=2024-03-01T00:00:00Z&time_end=2024-03-02T00:00:00Z", "", 0, nil)
	require.NoError(t, h.Historical(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var points []market.PricePoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 1)
	assert.True(t, points[0].Time.Equal(at))
	assert.Equal(t, "61000", points[0].Price.String())

	require.Len(t, p.history, 1)
	assert.Equal(t, "ethereum", p.history[0].CoinID)
	assert.True(t, p.history[0].From.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, p.history[0].To.Equal(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)))
}

func TestHistorical_Defaults(t *testing.T) {
	p := &stubProvider{}
	h, _ := newCryptoHandlers(t, p)

	c, rec := newContext(http.MethodGet, "/crypto/historical", "", 0, nil)
	require.NoError(t, h.Historical(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	require.Len(t, p.history, 1)
	assert.Equal(t, market.DefaultHistoryCoin, p.history[0].CoinID)
	assert.Equal(t, market.DefaultHistoryWindow, p.history[0].To.Sub(p.history[0].From))
}

func TestHistorical_Failures(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		err     error
		status  int
		message string
	}{
		{"bad start", "/crypto/historical?time_start=yesterday", nil, http.StatusBadRequest, "Invalid time format"},
		{"bad end", "/crypto/historical?time_end=2024-13-01", nil, http.StatusBadRequest, "Invalid time format"},
		{"inverted range", "/crypto/historical?time_start=2024-03-02T00:00:00Z&time_end=2024-03-01T00:00:00Z", nil, http.StatusBadRequest, "Start time must be before end time"},
		{"upstream", "/crypto/historical", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubProvider{err: tt.err}
			h, _ := newCryptoHandlers(t, p)

			c, rec := newContext(http.MethodGet, tt.target, "", 0, nil)
			require.NoError(t, h.Historical(c))

			assert.Equal(t, tt.status, rec.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, decodeMessage(t, rec))
				assert.Empty(t, p.history)
			}
		})
	}
}
