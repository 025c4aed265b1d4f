package portfolio

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koshlabs/kosh/internal/database"
	"github.com/koshlabs/kosh/pkg/logger"
)

func testLogger() zerolog.Logger {
	return logger.New(logger.Config{Level: "error", Pretty: false})
}

func newPortfolioDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func newTestHolding(symbol string, class AssetClass) *Holding {
	return &Holding{
		Symbol:       symbol,
		Name:         symbol,
		AssetClass:   class,
		Quantity:     decimal.RequireFromString("10.5"),
		CostBasis:    decimal.RequireFromString("25000"),
		TargetWeight: 0.25,
		Currency:     "INR",
	}
}

func TestCreate_GeneratesIDAndTimestamps(t *testing.T) {
	repo := NewHoldingRepository(newPortfolioDB(t).Conn(), testLogger())

	h := newTestHolding("RELIANCE.NS", AssetEquity)
	require.NoError(t, repo.Create(h))

	assert.NotEmpty(t, h.ID)
	assert.False(t, h.CreatedAt.IsZero())

	got, err := repo.GetByID(h.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "RELIANCE.NS", got.Symbol)
	assert.True(t, got.Quantity.Equal(decimal.RequireFromString("10.5")))
	assert.Equal(t, AssetEquity, got.AssetClass)
}

func TestCreate_RejectsInvalidHolding(t *testing.T) {
	repo := NewHoldingRepository(newPortfolioDB(t).Conn(), testLogger())

	tests := []struct {
		name   string
		mutate func(*Holding)
	}{
		{"empty symbol", func(h *Holding) { h.Symbol = "" }},
		{"bad asset class", func(h *Holding) { h.AssetClass = "bonds" }},
		{"negative quantity", func(h *Holding) { h.Quantity = decimal.NewFromInt(-1) }},
		{"target weight over 1", func(h *Holding) { h.TargetWeight = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHolding("BTC-USD", AssetCrypto)
			tt.mutate(h)
			assert.Error(t, repo.Create(h))
		})
	}
}

func TestCreate_DuplicateSymbolFails(t *testing.T) {
	repo := NewHoldingRepository(newPortfolioDB(t).Conn(), testLogger())

	require.NoError(t, repo.Create(newTestHolding("GC=F", AssetGold)))
	assert.Error(t, repo.Create(newTestHolding("GC=F", AssetGold)))
}

func TestUpdate_ChangesFields(t *testing.T) {
	repo := NewHoldingRepository(newPortfolioDB(t).Conn(), testLogger())

	h := newTestHolding("BTC-USD", AssetCrypto)
	require.NoError(t, repo.Create(h))

	h.Quantity = decimal.RequireFromString("0.75")
	h.TargetWeight = 0.4
	require.NoError(t, repo.Update(h))

	got, err := repo.GetByID(h.ID)
	require.NoError(t, err)
	assert.True(t, got.Quantity.Equal(decimal.RequireFromString("0.75")))
	assert.InDelta(t, 0.4, got.TargetWeight, 1e-9)
}

func TestUpdate_MissingHolding(t *testing.T) {
	repo := NewHoldingRepository(newPortfolioDB(t).Conn(), testLogger())

	h := newTestHolding("TCS.NS", AssetEquity)
	h.ID = "nonexistent"
	assert.Error(t, repo.Update(h))
}

func TestDelete(t *testing.T) {
	repo := NewHoldingRepository(newPortfolioDB(t).Conn(), testLogger())

	h := newTestHolding("ETH-USD", AssetCrypto)
	require.NoError(t, repo.Create(h))
	require.NoError(t, repo.Delete(h.ID))

	got, err := repo.GetByID(h.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, repo.Delete(h.ID))
}

func TestGetBySymbol_NotFound(t *testing.T) {
	repo := NewHoldingRepository(newPortfolioDB(t).Conn(), testLogger())

	got, err := repo.GetBySymbol("MISSING")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetAll_OrderedBySymbol(t *testing.T) {
	repo := NewHoldingRepository(newPortfolioDB(t).Conn(), testLogger())

	require.NoError(t, repo.Create(newTestHolding("TCS.NS", AssetEquity)))
	require.NoError(t, repo.Create(newTestHolding("BTC-USD", AssetCrypto)))

	holdings, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "BTC-USD", holdings[0].Symbol)
	assert.Equal(t, "TCS.NS", holdings[1].Symbol)
}
