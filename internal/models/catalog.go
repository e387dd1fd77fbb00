// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CatalogRecord is a normalized market snapshot ready to be upserted.
// Symbol is the natural key.
type CatalogRecord struct { //nolint:govet // fieldalignment: readability over optimization
	ProviderID               string          `db:"provider_id" json:"provider_id"`
	Name                     string          `db:"name" json:"name"`
	Symbol                   string          `db:"symbol" json:"symbol"`
	Image                    string          `db:"image" json:"image"`
	CurrentPrice             decimal.Decimal `db:"current_price" json:"current_price"`
	MarketCap                decimal.Decimal `db:"market_cap" json:"market_cap"`
	TotalVolume              decimal.Decimal `db:"total_volume" json:"total_volume"`
	PriceChange24h           decimal.Decimal `db:"price_change_24h" json:"price_change_24h"`
	PriceChangePercentage24h decimal.Decimal `db:"price_change_percentage_24h" json:"price_change_percentage_24h"`
	High24h                  decimal.Decimal `db:"high_24h" json:"high_24h"`
	Low24h                   decimal.Decimal `db:"low_24h" json:"low_24h"`
	CirculatingSupply        decimal.Decimal `db:"circulating_supply" json:"circulating_supply"`
	TotalSupply              decimal.Decimal `db:"total_supply" json:"total_supply"`
	MaxSupply                decimal.Decimal `db:"max_supply" json:"max_supply"`
	ATH                      decimal.Decimal `db:"ath" json:"ath"`
}

// NormalizeSymbol returns the canonical form of a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// CatalogEntry is a cached cryptocurrency shared by all lists.
type CatalogEntry struct { //nolint:govet // fieldalignment: readability over optimization
	ID int64 `db:"id" json:"id"`
	CatalogRecord
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CatalogRef is the minimal reference returned after caching market data.
type CatalogRef struct {
	ID         int64  `json:"id"`
	ProviderID string `json:"provider_id"`
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
}

// Ref returns the minimal reference for the entry.
func (e *CatalogEntry) Ref() CatalogRef {
	return CatalogRef{
		ID:         e.ID,
		ProviderID: e.ProviderID,
		Name:       e.Name,
		Symbol:     e.Symbol,
	}
}
