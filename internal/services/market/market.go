// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package market fetches coin data from the upstream provider and caches
// market snapshots in the catalog.
package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"codeberg.org/oliverandrich/crypto-tracker/internal/models"
	"codeberg.org/oliverandrich/crypto-tracker/internal/repository"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultLimit = 100
	MaxLimit     = 100

	// DefaultHistoryCoin and DefaultHistoryWindow apply when a history
	// request leaves the coin or the start time open.
	DefaultHistoryCoin   = "bitcoin"
	DefaultHistoryWindow = 7 * 24 * time.Hour

	upsertConcurrency = 8
)

var (
	ErrUpstream      = errors.New("market data provider failed")
	ErrInvalidInput  = errors.New("invalid input")
	ErrQueryRequired = fmt.Errorf("%w: query is required", ErrInvalidInput)
	ErrIDsRequired   = fmt.Errorf("%w: at least one id is required", ErrInvalidInput)
	ErrLimitExceeded = fmt.Errorf("%w: limit cannot exceed %d", ErrInvalidInput, MaxLimit)
	ErrInvalidRange  = fmt.Errorf("%w: start must be before end", ErrInvalidInput)
)

// Provider is the upstream market data source.
type Provider interface {
	Search(ctx context.Context, query string) ([]CoinSummary, error)
	Markets(ctx context.Context, q MarketsQuery) ([]MarketRecord, error)
	Historical(ctx context.Context, q HistoryQuery) ([]PricePoint, error)
}

// Gateway adapts provider responses and keeps the catalog in sync.
type Gateway struct {
	provider Provider
	repo     *repository.Repository
	now      func() time.Time
}

func NewGateway(provider Provider, repo *repository.Repository) *Gateway {
	return &Gateway{provider: provider, repo: repo, now: time.Now}
}

// Search forwards a free-text query to the provider.
func (g *Gateway) Search(ctx context.Context, query string) ([]CoinSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}

	coins, err := g.provider.Search(ctx, query)
	if err != nil {
		slog.Error("market_search_failed", "query", query, "error", err)
		return nil, upstream(err)
	}
	return coins, nil
}

// FetchMarket loads market snapshots for the given provider ids and upserts
// them into the catalog.
func (g *Gateway) FetchMarket(ctx context.Context, ids []string) ([]models.CatalogRef, error) {
	ids = lo.Uniq(lo.Compact(lo.Map(ids, func(id string, _ int) string {
		return strings.TrimSpace(id)
	})))
	if len(ids) == 0 {
		return nil, ErrIDsRequired
	}

	records, err := g.provider.Markets(ctx, MarketsQuery{IDs: ids})
	if err != nil {
		slog.Error("market_fetch_failed", "ids", ids, "error", err)
		return nil, upstream(err)
	}
	return g.save(ctx, records)
}

// Top returns the provider's top coins by market cap without caching them.
// A non-positive limit selects DefaultLimit.
func (g *Gateway) Top(ctx context.Context, limit int) ([]MarketRecord, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}

	records, err := g.provider.Markets(ctx, MarketsQuery{Limit: limit})
	if err != nil {
		slog.Error("market_top_failed", "limit", limit, "error", err)
		return nil, upstream(err)
	}
	return records, nil
}

// SaveTop is Top followed by a catalog upsert of every record.
func (g *Gateway) SaveTop(ctx context.Context, limit int) ([]models.CatalogRef, error) {
	records, err := g.Top(ctx, limit)
	if err != nil {
		return nil, err
	}
	return g.save(ctx, records)
}

// Historical returns the market chart of coinID between from and to. An
// empty coin selects DefaultHistoryCoin, a zero to means now and a zero from
// means DefaultHistoryWindow before to.
func (g *Gateway) Historical(ctx context.Context, coinID string, from, to time.Time) ([]PricePoint, error) {
	coinID = strings.TrimSpace(coinID)
	if coinID == "" {
		coinID = DefaultHistoryCoin
	}
	if to.IsZero() {
		to = g.now()
	}
	if from.IsZero() {
		from = to.Add(-DefaultHistoryWindow)
	}
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}

	points, err := g.provider.Historical(ctx, HistoryQuery{CoinID: coinID, From: from, To: to})
	if err != nil {
		slog.Error("market_history_failed", "coin", coinID, "error", err)
		return nil, upstream(err)
	}
	return points, nil
}

// save upserts records concurrently and returns their references in
// provider order.
func (g *Gateway) save(ctx context.Context, records []MarketRecord) ([]models.CatalogRef, error) {
	refs := make([]models.CatalogRef, len(records))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(upsertConcurrency)
	for i, rec := range records {
		eg.Go(func() error {
			entry, err := g.repo.UpsertCatalogEntry(egCtx, rec.CatalogRecord())
			if err != nil {
				return fmt.Errorf("failed to cache %s: %w", rec.ID, err)
			}
			refs[i] = entry.Ref()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	slog.Info("catalog_synced", "count", len(refs))
	return refs, nil
}

func normalizeLimit(limit int) (int, error) {
	switch {
	case limit <= 0:
		return DefaultLimit, nil
	case limit > MaxLimit:
		return 0, ErrLimitExceeded
	default:
		return limit, nil
	}
}

func upstream(err error) error {
	if errors.Is(err, ErrUpstream) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
