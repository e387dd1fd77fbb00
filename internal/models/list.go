// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// List is a user-owned, named watchlist. (UserID, Name) is unique.
type List struct { //nolint:govet // fieldalignment not critical for models
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Name      string    `db:"list_name" json:"list_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ListMember links a list to a catalog entry. Only the reference is stored.
type ListMember struct { //nolint:govet // fieldalignment not critical for models
	ID        int64     `db:"id" json:"-"`
	ListID    int64     `db:"list_id" json:"-"`
	CatalogID int64     `db:"catalog_id" json:"crypto_id"`
	AddedAt   time.Time `db:"added_at" json:"date_added"`
	Notes     string    `db:"notes" json:"notes,omitempty"`
}

// ListEntry is a membership resolved against the catalog for display.
type ListEntry struct { //nolint:govet // fieldalignment not critical for models
	ListMember
	Name                     string          `db:"name" json:"name"`
	Symbol                   string          `db:"symbol" json:"symbol"`
	Image                    string          `db:"image" json:"image"`
	CurrentPrice             decimal.Decimal `db:"current_price" json:"current_price"`
	MarketCap                decimal.Decimal `db:"market_cap" json:"market_cap"`
	PriceChangePercentage24h decimal.Decimal `db:"price_change_percentage_24h" json:"price_change_percentage_24h"`
	TotalVolume              decimal.Decimal `db:"total_volume" json:"total_volume"`
}

// ListDetail is a list together with its resolved memberships.
type ListDetail struct {
	List
	Cryptos []ListEntry `json:"cryptos"`
}

// CatalogIDs returns the catalog references of the resolved memberships.
func (d ListDetail) CatalogIDs() []int64 {
	ids := make([]int64, len(d.Cryptos))
	for i, c := range d.Cryptos {
		ids[i] = c.CatalogID
	}
	return ids
}
