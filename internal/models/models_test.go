// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"codeberg.org/oliverandrich/crypto-tracker/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "BTC", models.NormalizeSymbol(" btc "))
	assert.Equal(t, "ETH", models.NormalizeSymbol("ETH"))
	assert.Empty(t, models.NormalizeSymbol("  "))
}

func TestVerificationToken_Expired(t *testing.T) {
	now := time.Now()
	token := &models.VerificationToken{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, token.Expired(now))
	assert.True(t, token.Expired(now.Add(time.Minute)))
	assert.True(t, token.Expired(now.Add(time.Hour)))
}

func TestCatalogEntry_Ref(t *testing.T) {
	entry := &models.CatalogEntry{
		ID: 7,
		CatalogRecord: models.CatalogRecord{
			ProviderID: "bitcoin",
			Name:       "Bitcoin",
			Symbol:     "BTC",
		},
	}

	assert.Equal(t, models.CatalogRef{ID: 7, ProviderID: "bitcoin", Name: "Bitcoin", Symbol: "BTC"}, entry.Ref())
}

func TestListDetail_CatalogIDs(t *testing.T) {
	detail := &models.ListDetail{
		Cryptos: []models.ListEntry{
			{ListMember: models.ListMember{CatalogID: 3}},
			{ListMember: models.ListMember{CatalogID: 1}},
		},
	}

	assert.Equal(t, []int64{3, 1}, detail.CatalogIDs())
}

func TestListDetail_CatalogIDsOnValue(t *testing.T) {
	decode := func() models.ListDetail {
		return models.ListDetail{Cryptos: []models.ListEntry{{ListMember: models.ListMember{CatalogID: 5}}}}
	}

	assert.Equal(t, []int64{5}, decode().CatalogIDs())
	assert.Empty(t, models.ListDetail{}.CatalogIDs())
}

func TestListDetail_JSON(t *testing.T) {
	detail := models.ListDetail{
		List: models.List{ID: 1, UserID: 2, Name: "Top5"},
		Cryptos: []models.ListEntry{
			{
				ListMember:   models.ListMember{CatalogID: 9, Notes: "hodl"},
				Name:         "Bitcoin",
				Symbol:       "BTC",
				CurrentPrice: decimal.RequireFromString("65000.12"),
			},
		},
	}

	raw, err := json.Marshal(detail)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "Top5", decoded["list_name"])

	cryptos, ok := decoded["cryptos"].([]any)
	require.True(t, ok)
	require.Len(t, cryptos, 1)
	first := cryptos[0].(map[string]any)
	assert.InDelta(t, 9, first["crypto_id"], 0)
	assert.Equal(t, "hodl", first["notes"])
	assert.Equal(t, "65000.12", first["current_price"])
}
