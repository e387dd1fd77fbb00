// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package market

import (
	"time"

	"codeberg.org/oliverandrich/crypto-tracker/internal/models"
	"github.com/shopspring/decimal"
)

// CoinSummary is a search hit from the provider.
type CoinSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Thumb  string `json:"thumb"`
	Large  string `json:"large"`
}

// MarketRecord is the provider's market snapshot for one coin.
// Missing or null numbers decode as zero.
type MarketRecord struct { //nolint:govet // fieldalignment: mirrors the provider payload
	ID                       string          `json:"id"`
	Symbol                   string          `json:"symbol"`
	Name                     string          `json:"name"`
	Image                    string          `json:"image"`
	CurrentPrice             decimal.Decimal `json:"current_price"`
	MarketCap                decimal.Decimal `json:"market_cap"`
	MarketCapRank            int             `json:"market_cap_rank"`
	TotalVolume              decimal.Decimal `json:"total_volume"`
	High24h                  decimal.Decimal `json:"high_24h"`
	Low24h                   decimal.Decimal `json:"low_24h"`
	PriceChange24h           decimal.Decimal `json:"price_change_24h"`
	PriceChangePercentage24h decimal.Decimal `json:"price_change_percentage_24h"`
	CirculatingSupply        decimal.Decimal `json:"circulating_supply"`
	TotalSupply              decimal.Decimal `json:"total_supply"`
	MaxSupply                decimal.Decimal `json:"max_supply"`
	ATH                      decimal.Decimal `json:"ath"`
}

// CatalogRecord normalizes the snapshot into the catalog's record shape.
func (m MarketRecord) CatalogRecord() models.CatalogRecord {
	return models.CatalogRecord{
		ProviderID:               m.ID,
		Name:                     m.Name,
		Symbol:                   models.NormalizeSymbol(m.Symbol),
		Image:                    m.Image,
		CurrentPrice:             m.CurrentPrice,
		MarketCap:                m.MarketCap,
		TotalVolume:              m.TotalVolume,
		PriceChange24h:           m.PriceChange24h,
		PriceChangePercentage24h: m.PriceChangePercentage24h,
		High24h:                  m.High24h,
		Low24h:                   m.Low24h,
		CirculatingSupply:        m.CirculatingSupply,
		TotalSupply:              m.TotalSupply,
		MaxSupply:                m.MaxSupply,
		ATH:                      m.ATH,
	}
}

// MarketsQuery selects market records either by provider ids or, when IDs
// is empty, the top Limit coins by market cap.
type MarketsQuery struct {
	IDs   []string
	Limit int
}

// HistoryQuery selects a coin's market chart between From and To.
type HistoryQuery struct {
	CoinID string
	From   time.Time
	To     time.Time
}

// PricePoint is one sample of a coin's market chart.
type PricePoint struct {
	Time        time.Time       `json:"time"`
	Price       decimal.Decimal `json:"price"`
	MarketCap   decimal.Decimal `json:"market_cap"`
	TotalVolume decimal.Decimal `json:"total_volume"`
}
