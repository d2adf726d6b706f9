package database_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pricewatch/config"
	"pricewatch/pkg/storage/database"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteClient(t *testing.T) *database.Client {
	t.Helper()
	cfg := config.StorageConfig{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "nested", "coins.db"),
	}
	client, err := database.InitializeAndMigrateWatchlist(context.Background(), cfg, "dev")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

// go test -v --run ^TestWatchlistReplaceAndLoad$
func TestWatchlistReplaceAndLoad(t *testing.T) {
	client := newSQLiteClient(t)
	ctx := context.Background()

	require.True(t, client.IsHealthy(ctx))

	at := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	records := []database.WatchlistRecord{
		{CoinID: "ETH", Symbol: "ETH", Name: "Ethereum"},
		{
			CoinID:        "BTC",
			Symbol:        "BTC",
			Name:          "Bitcoin",
			LastPrice:     decimal.NewNullDecimal(decimal.RequireFromString("64000.123456789012345678")),
			LastUpdatedAt: &at,
		},
	}
	require.NoError(t, client.ReplaceWatchlist(ctx, records))

	got, err := client.LoadWatchlist(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "ETH", got[0].CoinID)
	assert.False(t, got[0].LastPrice.Valid)
	assert.Nil(t, got[0].LastUpdatedAt)

	assert.Equal(t, "BTC", got[1].CoinID)
	require.True(t, got[1].LastPrice.Valid)
	assert.Equal(t, "64000.123456789012345678", got[1].LastPrice.Decimal.String())
	require.NotNil(t, got[1].LastUpdatedAt)
	assert.True(t, at.Equal(*got[1].LastUpdatedAt))
}

func TestWatchlistReplaceDropsOldRows(t *testing.T) {
	client := newSQLiteClient(t)
	ctx := context.Background()

	require.NoError(t, client.ReplaceWatchlist(ctx, []database.WatchlistRecord{
		{CoinID: "BTC", Symbol: "BTC", Name: "Bitcoin"},
		{CoinID: "ETH", Symbol: "ETH", Name: "Ethereum"},
	}))
	require.NoError(t, client.ReplaceWatchlist(ctx, []database.WatchlistRecord{
		{CoinID: "SOL", Symbol: "SOL", Name: "Solana"},
	}))

	got, err := client.LoadWatchlist(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SOL", got[0].CoinID)
	assert.Equal(t, 0, got[0].Position)

	require.NoError(t, client.ReplaceWatchlist(ctx, nil))
	got, err = client.LoadWatchlist(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewClientUnsupportedDriver(t *testing.T) {
	_, err := database.NewClient("mysql", "dsn")
	assert.ErrorContains(t, err, "unsupported database driver")
}
