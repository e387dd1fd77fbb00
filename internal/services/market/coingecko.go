// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"codeberg.org/oliverandrich/crypto-tracker/internal/config"
	"github.com/shopspring/decimal"
)

const defaultTimeout = 10 * time.Second

// CoinGecko talks to the CoinGecko v3 REST API.
type CoinGecko struct {
	baseURL      string
	apiKey       string
	apiKeyHeader string
	client       *http.Client
}

// NewCoinGecko creates a client from the market configuration.
func NewCoinGecko(cfg config.MarketConfig) *CoinGecko {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &CoinGecko{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		apiKeyHeader: cfg.APIKeyHeader,
		client:       &http.Client{Timeout: timeout},
	}
}

// Search implements Provider.
func (c *CoinGecko) Search(ctx context.Context, query string) ([]CoinSummary, error) {
	var resp struct {
		Coins []CoinSummary `json:"coins"`
	}
	if err := c.get(ctx, "/search", url.Values{"query": {query}}, &resp); err != nil {
		return nil, err
	}
	if resp.Coins == nil {
		return []CoinSummary{}, nil
	}
	return resp.Coins, nil
}

// Markets implements Provider.
func (c *CoinGecko) Markets(ctx context.Context, q MarketsQuery) ([]MarketRecord, error) {
	params := url.Values{
		"vs_currency": {"usd"},
		"order":       {"market_cap_desc"},
		"page":        {"1"},
	}
	if len(q.IDs) > 0 {
		params.Set("ids", strings.Join(q.IDs, ","))
		params.Set("per_page", strconv.Itoa(max(len(q.IDs), 1)))
	} else {
		params.Set("per_page", strconv.Itoa(q.Limit))
	}

	var records []MarketRecord
	if err := c.get(ctx, "/coins/markets", params, &records); err != nil {
		return nil, err
	}
	if records == nil {
		return []MarketRecord{}, nil
	}
	return records, nil
}

// Historical implements Provider. Samples are matched up by index across
// the price, market cap and volume series.
func (c *CoinGecko) Historical(ctx context.Context, q HistoryQuery) ([]PricePoint, error) {
	params := url.Values{
		"vs_currency": {"usd"},
		"from":        {strconv.FormatInt(q.From.Unix(), 10)},
		"to":          {strconv.FormatInt(q.To.Unix(), 10)},
	}

	var chart struct {
		Prices       [][]decimal.Decimal `json:"prices"`
		MarketCaps   [][]decimal.Decimal `json:"market_caps"`
		TotalVolumes [][]decimal.Decimal `json:"total_volumes"`
	}
	if err := c.get(ctx, "/coins/"+url.PathEscape(q.CoinID)+"/market_chart/range", params, &chart); err != nil {
		return nil, err
	}

	points := make([]PricePoint, 0, len(chart.Prices))
	for i, sample := range chart.Prices {
		if len(sample) < 2 {
			continue
		}
		points = append(points, PricePoint{
			Time:        time.UnixMilli(sample[0].IntPart()).UTC(),
			Price:       sample[1],
			MarketCap:   seriesValue(chart.MarketCaps, i),
			TotalVolume: seriesValue(chart.TotalVolumes, i),
		})
	}
	return points, nil
}

func seriesValue(series [][]decimal.Decimal, i int) decimal.Decimal {
	if i >= len(series) || len(series[i]) < 2 {
		return decimal.Zero
	}
	return series[i][1]
}

func (c *CoinGecko) get(ctx context.Context, path string, params url.Values, dst any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" && c.apiKeyHeader != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", ErrUpstream, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrUpstream, path, err)
	}
	return nil
}
