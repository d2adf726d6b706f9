package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pricewatch/config"
	"pricewatch/internal/coin"
	"pricewatch/internal/registry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func defaults(t *testing.T) []coin.WatchedCoin {
	t.Helper()
	reg, err := registry.For(registry.ProviderBinance)
	require.NoError(t, err)
	return reg.Defaults()
}

func sampleList() []coin.WatchedCoin {
	at := time.Date(2026, 2, 10, 8, 15, 0, 0, time.UTC)

	btc := coin.New("BTC", "BTC", "Bitcoin")
	btc.SetPrice(decimal.RequireFromString("97123.45000000"), at)

	pepe := coin.New("PEPE", "PEPE", "Pepe")
	pepe.SetPrice(decimal.RequireFromString("0.00001234"), at.Add(time.Minute))

	return []coin.WatchedCoin{btc, coin.New("ETH", "ETH", "Ethereum"), pepe}
}

func assertSameList(t *testing.T, want, got []coin.WatchedCoin) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Symbol, got[i].Symbol)
		assert.Equal(t, want[i].Name, got[i].Name)
		if want[i].LastPrice == nil {
			assert.Nil(t, got[i].LastPrice)
			assert.Nil(t, got[i].LastUpdatedAt)
			continue
		}
		require.NotNil(t, got[i].LastPrice)
		require.NotNil(t, got[i].LastUpdatedAt)
		assert.True(t, want[i].LastPrice.Equal(*got[i].LastPrice), "price of %s", want[i].ID)
		assert.True(t, want[i].LastUpdatedAt.Equal(*got[i].LastUpdatedAt), "time of %s", want[i].ID)
		assert.Equal(t, coin.StatusStale, got[i].Status)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "coins.json")
	s := NewFileStore(path, defaults(t), zap.NewNop())
	ctx := context.Background()

	list := sampleList()
	require.NoError(t, s.Save(ctx, list))
	assertSameList(t, list, s.Load(ctx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"lastPrice": 0.00001234`)
	assert.Contains(t, string(data), `"lastUpdatedAt": "2026-02-10T08:15:00Z"`)
	assert.NotContains(t, string(data), "status")
}

func TestFileStoreDefaults(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	missing := NewFileStore(filepath.Join(dir, "absent.json"), defaults(t), zap.NewNop())
	got := missing.Load(ctx)
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, coin.IDs(got))

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o644))
	got = NewFileStore(corrupt, defaults(t), zap.NewNop()).Load(ctx)
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, coin.IDs(got))

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("[]"), 0o644))
	got = NewFileStore(empty, defaults(t), zap.NewNop()).Load(ctx)
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, coin.IDs(got))
}

func TestFileStoreDefaultsAreCopies(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "coins.json"), defaults(t), zap.NewNop())
	first := s.Load(context.Background())
	first[0].Name = "changed"

	second := s.Load(context.Background())
	assert.Equal(t, "Bitcoin", second[0].Name)
}

func TestFileStoreSanitizesRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coins.json")
	body := `[
  {"id": "BTC", "symbol": "btc", "name": "Bitcoin", "lastPrice": 100.5},
  {"id": "ETH", "symbol": "ETH", "name": "Ethereum", "lastUpdatedAt": "2026-01-01T00:00:00Z"},
  {"id": "", "symbol": "X", "name": "Nameless"},
  {"id": "SOL", "symbol": "SOL", "name": "Solana", "lastPrice": "42.10", "lastUpdatedAt": "2026-01-01T00:00:00Z"},
  {"id": "SOL", "symbol": "SOL", "name": "Solana again"}
]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	got := NewFileStore(path, defaults(t), zap.NewNop()).Load(context.Background())
	require.Equal(t, []string{"BTC", "ETH", "SOL"}, coin.IDs(got))

	assert.Equal(t, "BTC", got[0].Symbol)
	assert.False(t, got[0].HasPrice())
	assert.Nil(t, got[0].LastPrice)
	assert.Nil(t, got[1].LastUpdatedAt)

	require.True(t, got[2].HasPrice())
	assert.Equal(t, "42.1", got[2].LastPrice.String())
	assert.Equal(t, "Solana", got[2].Name)
}

func TestFileStoreSaveFailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coins.json")
	s := NewFileStore(path, defaults(t), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleList()))

	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })
	if f, err := os.CreateTemp(dir, "probe"); err == nil {
		// running as root; permissions are not enforced
		f.Close()
		os.Remove(f.Name())
		t.Skip("directory permissions not enforced")
	}

	err := s.Save(ctx, []coin.WatchedCoin{coin.New("DOGE", "DOGE", "Dogecoin")})
	require.Error(t, err)
	assertSameList(t, sampleList(), s.Load(ctx))
}

func TestDatabaseStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := config.StorageConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "coins.db")}

	s, err := Open(ctx, cfg, "dev", defaults(t), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, coin.IDs(s.Load(ctx)))

	list := sampleList()
	require.NoError(t, s.Save(ctx, list))
	assertSameList(t, list, s.Load(ctx))

	reordered := []coin.WatchedCoin{list[2], list[0]}
	require.NoError(t, s.Save(ctx, reordered))
	assertSameList(t, reordered, s.Load(ctx))
}

func TestOpenFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coins.json")
	s, err := Open(context.Background(), config.StorageConfig{Driver: "file", Path: path}, "dev", defaults(t), zap.NewNop())
	require.NoError(t, err)

	fs, ok := s.(*FileStore)
	require.True(t, ok)
	assert.Equal(t, path, fs.Path())

	_, err = Open(context.Background(), config.StorageConfig{Driver: "redis"}, "dev", nil, zap.NewNop())
	assert.Error(t, err)
}
