// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"errors"

	"codeberg.org/oliverandrich/crypto-tracker/internal/models"
	"github.com/vinovest/sqlx"
)

// ErrEmptySymbol is returned when a catalog record has no symbol to key on.
var ErrEmptySymbol = errors.New("catalog record has no symbol")

const upsertCatalogEntry = `
INSERT INTO catalog_entries (
    provider_id, name, symbol, image, current_price, market_cap, total_volume,
    price_change_24h, price_change_percentage_24h, high_24h, low_24h,
    circulating_supply, total_supply, max_supply, ath
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (symbol) DO UPDATE SET
    provider_id = excluded.provider_id,
    name = excluded.name,
    image = excluded.image,
    current_price = excluded.current_price,
    market_cap = excluded.market_cap,
    total_volume = excluded.total_volume,
    price_change_24h = excluded.price_change_24h,
    price_change_percentage_24h = excluded.price_change_percentage_24h,
    high_24h = excluded.high_24h,
    low_24h = excluded.low_24h,
    circulating_supply = excluded.circulating_supply,
    total_supply = excluded.total_supply,
    max_supply = excluded.max_supply,
    ath = excluded.ath,
    updated_at = CURRENT_TIMESTAMP`

// UpsertCatalogEntry creates the entry for the record's symbol or overwrites
// the existing one in place, keeping its ID.
func (r *Repository) UpsertCatalogEntry(ctx context.Context, rec models.CatalogRecord) (*models.CatalogEntry, error) {
	rec.Symbol = models.NormalizeSymbol(rec.Symbol)
	if rec.Symbol == "" {
		return nil, ErrEmptySymbol
	}

	_, err := r.db.ExecContext(ctx, upsertCatalogEntry,
		rec.ProviderID, rec.Name, rec.Symbol, rec.Image,
		rec.CurrentPrice, rec.MarketCap, rec.TotalVolume,
		rec.PriceChange24h, rec.PriceChangePercentage24h, rec.High24h, rec.Low24h,
		rec.CirculatingSupply, rec.TotalSupply, rec.MaxSupply, rec.ATH,
	)
	if err != nil {
		return nil, wrapError(err)
	}

	return r.GetCatalogEntryBySymbol(ctx, rec.Symbol)
}

// GetCatalogEntryBySymbol retrieves an entry by its ticker symbol.
func (r *Repository) GetCatalogEntryBySymbol(ctx context.Context, symbol string) (*models.CatalogEntry, error) {
	var entry models.CatalogEntry
	err := r.db.GetContext(ctx, &entry,
		`SELECT * FROM catalog_entries WHERE symbol = ?`, models.NormalizeSymbol(symbol))
	if err != nil {
		return nil, wrapError(err)
	}
	return &entry, nil
}

// GetCatalogEntriesByIDs returns the entries whose ID is in ids. Unknown IDs
// are silently skipped; callers compare counts to detect them.
func (r *Repository) GetCatalogEntriesByIDs(ctx context.Context, ids []int64) ([]models.CatalogEntry, error) {
	if len(ids) == 0 {
		return []models.CatalogEntry{}, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM catalog_entries WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}

	entries := []models.CatalogEntry{}
	if err := r.db.SelectContext(ctx, &entries, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListCatalogEntries returns every cached entry, largest market cap first.
func (r *Repository) ListCatalogEntries(ctx context.Context) ([]models.CatalogEntry, error) {
	entries := []models.CatalogEntry{}
	err := r.db.SelectContext(ctx, &entries,
		`SELECT * FROM catalog_entries ORDER BY CAST(market_cap AS REAL) DESC, symbol`)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
