package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pricewatch/config"
	"pricewatch/internal/registry"
	"pricewatch/pkg/binance"
	"pricewatch/pkg/coingecko"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned by Search when no coin matches the query.
	ErrNotFound = errors.New("no coin found")

	// ErrTotalFailure is returned by GetPrices when every requested id failed.
	ErrTotalFailure = errors.New("every quote request failed")

	// ErrPriceMissing marks an id the provider answered for but had no price.
	ErrPriceMissing = errors.New("price missing from response")
)

// CoinRef is a resolved coin in the active provider's namespace.
type CoinRef struct {
	ID     string
	Symbol string
	Name   string
}

// Result maps requested ids to their fetched price. Ids absent from the map
// failed for this cycle.
type Result map[string]decimal.Decimal

// Client is the provider-facing contract used by the tracker. Transport and
// parse errors never cross it: Search yields ErrNotFound, GetPrices ErrTotalFailure.
type Client interface {
	Search(ctx context.Context, query string) (CoinRef, error)
	GetPrices(ctx context.Context, ids []string) (Result, error)
}

// PriceSource fetches prices for a set of ids using one strategy.
type PriceSource interface {
	GetPrices(ctx context.Context, ids []string) (Result, error)
}

// Finder resolves free text through a provider endpoint.
type Finder interface {
	Find(ctx context.Context, query string) (CoinRef, error)
}

type client struct {
	provider string
	reg      *registry.Registry
	finder   Finder
	prices   PriceSource
	log      *zap.Logger
}

// NewClient assembles a Client from its parts. Search consults reg before finder.
func NewClient(provider string, reg *registry.Registry, finder Finder, prices PriceSource, log *zap.Logger) Client {
	return &client{
		provider: provider,
		reg:      reg,
		finder:   finder,
		prices:   prices,
		log:      log.With(zap.String("component", "quote"), zap.String("provider", provider)),
	}
}

// New builds the Client for the configured provider.
func New(cfg config.ProviderConfig, log *zap.Logger, opts ...Option) (Client, error) {
	reg, err := registry.For(cfg.Name)
	if err != nil {
		return nil, err
	}

	o := options{sleep: sleepContext}
	for _, opt := range opts {
		opt(&o)
	}

	switch cfg.Name {
	case registry.ProviderCoinGecko:
		gc := cfg.CoinGecko
		api := coingecko.NewRESTClient(gc.REST.BaseURL, gc.APIKey, gc.REST.Timeout)
		r := newRetrier(cfg.Name, gc.RequestDelay, cfg.Retry, o.sleep, log)
		gecko := NewCoinGecko(api, gc.VsCurrency, r)
		return NewClient(cfg.Name, reg, gecko, NewSequential(cfg.Name, gecko, r, log), log), nil

	case registry.ProviderBinance:
		bc := cfg.Binance
		api := binance.NewRESTClient(bc.REST.BaseURL, bc.REST.Timeout)
		r := newRetrier(cfg.Name, bc.RequestDelay, cfg.Retry, o.sleep, log)
		bn := NewBinance(api, bc.QuoteAsset, r, log)
		return NewClient(cfg.Name, reg, bn, NewBatch(cfg.Name, bn, log), log), nil

	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Name)
	}
}

func (c *client) Search(ctx context.Context, query string) (CoinRef, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return CoinRef{}, ErrNotFound
	}

	if ref, ok := c.reg.Lookup(q); ok {
		c.log.Debug("search resolved from registry", zap.String("query", q), zap.String("id", ref.ID))
		return CoinRef{ID: ref.ID, Symbol: ref.Symbol, Name: ref.Name}, nil
	}

	ref, err := c.finder.Find(ctx, q)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.log.Warn("coin search failed", zap.String("query", q), zap.Error(err))
		}
		return CoinRef{}, ErrNotFound
	}
	ref.Symbol = strings.ToUpper(ref.Symbol)
	return ref, nil
}

func (c *client) GetPrices(ctx context.Context, ids []string) (Result, error) {
	return c.prices.GetPrices(ctx, ids)
}
