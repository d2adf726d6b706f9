package quote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"pricewatch/config"
	"pricewatch/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func providerConfig(name, baseURL string) config.ProviderConfig {
	rest := config.RESTConfig{BaseURL: baseURL, Timeout: 2 * time.Second}
	return config.ProviderConfig{
		Name: name,
		Retry: config.RetryConfig{
			MaxAttempts:       2,
			DefaultRetryAfter: 10 * time.Second,
			MaxRetryAfter:     2 * time.Minute,
		},
		Binance:   config.BinanceConfig{REST: rest, QuoteAsset: "USDT"},
		CoinGecko: config.CoinGeckoConfig{REST: rest, VsCurrency: "usd"},
	}
}

// recordingSleeper returns immediately and remembers every requested wait.
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

// hitCounter counts requests per key.
type hitCounter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (h *hitCounter) inc(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.hits == nil {
		h.hits = map[string]int{}
	}
	h.hits[key]++
	return h.hits[key]
}

func (h *hitCounter) get(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits[key]
}

func newGeckoClient(t *testing.T, handler http.HandlerFunc) (Client, *recordingSleeper) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sleeper := &recordingSleeper{}
	c, err := New(providerConfig(registry.ProviderCoinGecko, srv.URL), zap.NewNop(), WithSleeper(sleeper.sleep))
	require.NoError(t, err)
	return c, sleeper
}

// go test -v --run ^TestSequentialRateLimitRetriesOnce$
func TestSequentialRateLimitRetriesOnce(t *testing.T) {
	var hits hitCounter
	c, sleeper := newGeckoClient(t, func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("ids")
		hits.inc(id)
		if id == "bitcoin" {
			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprintf(w, `{%q:{"usd":3012.45}}`, id)
	})

	result, err := c.GetPrices(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)

	assert.Equal(t, 2, hits.get("bitcoin"))
	assert.Equal(t, 1, hits.get("ethereum"))
	assert.Equal(t, []time.Duration{5 * time.Second}, sleeper.waits)

	_, ok := result["bitcoin"]
	assert.False(t, ok)
	assert.Equal(t, "3012.45", result["ethereum"].String())
}

func TestSequentialRateLimitDefaultAndCap(t *testing.T) {
	var hits hitCounter
	c, sleeper := newGeckoClient(t, func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("ids")
		n := hits.inc(id)
		switch {
		case id == "solana" && n == 1:
			w.Header().Set("Retry-After", "86400")
			w.WriteHeader(http.StatusTooManyRequests)
		case id == "bitcoin" && n == 1:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			fmt.Fprintf(w, `{%q:{"usd":1}}`, id)
		}
	})

	result, err := c.GetPrices(context.Background(), []string{"bitcoin", "solana"})
	require.NoError(t, err)
	assert.Len(t, result, 2)
	assert.Equal(t, []time.Duration{10 * time.Second, 2 * time.Minute}, sleeper.waits)
}

func TestSequentialTransientErrorRetriesWithoutBackoff(t *testing.T) {
	var hits hitCounter
	c, sleeper := newGeckoClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.inc("all") == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"bitcoin":{"usd":64000.123456789}}`)
	})

	result, err := c.GetPrices(context.Background(), []string{"bitcoin"})
	require.NoError(t, err)
	assert.Equal(t, "64000.123456789", result["bitcoin"].String())
	assert.Equal(t, 2, hits.get("all"))
	assert.Empty(t, sleeper.waits)
}

func TestSequentialMissingPriceIsNotRetried(t *testing.T) {
	var hits hitCounter
	c, _ := newGeckoClient(t, func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("ids")
		hits.inc(id)
		if id == "not-a-coin" {
			fmt.Fprint(w, `{}`)
			return
		}
		fmt.Fprintf(w, `{%q:{"usd":2}}`, id)
	})

	result, err := c.GetPrices(context.Background(), []string{"not-a-coin", "bitcoin", "ethereum"})
	require.NoError(t, err)
	assert.Equal(t, 1, hits.get("not-a-coin"))
	assert.Len(t, result, 2)
}

func TestSequentialMalformedBodyRetriedOnce(t *testing.T) {
	var hits hitCounter
	c, _ := newGeckoClient(t, func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("ids")
		hits.inc(id)
		if id == "ethereum" {
			fmt.Fprint(w, `{"ethereum":`)
			return
		}
		fmt.Fprintf(w, `{%q:{"usd":2}}`, id)
	})

	result, err := c.GetPrices(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)
	assert.Equal(t, 2, hits.get("ethereum"))
	assert.Contains(t, result, "bitcoin")
	assert.NotContains(t, result, "ethereum")
}

func TestSequentialTotalFailure(t *testing.T) {
	c, _ := newGeckoClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	result, err := c.GetPrices(context.Background(), []string{"bitcoin", "ethereum", "solana"})
	assert.ErrorIs(t, err, ErrTotalFailure)
	assert.Nil(t, result)
}

func TestGetPricesNothingRequested(t *testing.T) {
	c, _ := newGeckoClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL)
	})

	result, err := c.GetPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestSequentialThrottlesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{%q:{"usd":1}}`, r.URL.Query().Get("ids"))
	}))
	defer srv.Close()

	cfg := providerConfig(registry.ProviderCoinGecko, srv.URL)
	cfg.CoinGecko.RequestDelay = 30 * time.Millisecond
	c, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	start := time.Now()
	result, err := c.GetPrices(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, result, 3)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestGeckoSearch(t *testing.T) {
	c, _ := newGeckoClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/search", r.URL.Path)
		switch r.URL.Query().Get("query") {
		case "pepe":
			fmt.Fprint(w, `{"coins":[{"id":"pepe","symbol":"pepe","name":"Pepe","market_cap_rank":30},{"id":"pepe-2","symbol":"pepe2","name":"Pepe 2.0"}]}`)
		case "boom":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			fmt.Fprint(w, `{"coins":[]}`)
		}
	})
	ctx := context.Background()

	ref, err := c.Search(ctx, "  pepe ")
	require.NoError(t, err)
	assert.Equal(t, CoinRef{ID: "pepe", Symbol: "PEPE", Name: "Pepe"}, ref)

	_, err = c.Search(ctx, "zzzz")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Search(ctx, "boom")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Search(ctx, "   ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchUsesRegistryAliases(t *testing.T) {
	c, _ := newGeckoClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL)
	})

	ref, err := c.Search(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, CoinRef{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin"}, ref)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(providerConfig("kraken", "http://localhost"), zap.NewNop())
	assert.Error(t, err)
}
