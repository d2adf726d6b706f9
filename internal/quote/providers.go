package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"pricewatch/internal/registry"
	"pricewatch/pkg/binance"
	"pricewatch/pkg/coingecko"
	"pricewatch/pkg/rest"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// parsePrice reads a wire price through its string form; never via float64.
func parsePrice(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: price %q: %v", rest.ErrMalformed, raw, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative price %q", rest.ErrMalformed, raw)
	}
	return d, nil
}

// CoinGecko adapts the per-id quote and search endpoints.
type CoinGecko struct {
	api   *coingecko.RESTClient
	vs    string
	retry *retrier
}

func NewCoinGecko(api *coingecko.RESTClient, vsCurrency string, r *retrier) *CoinGecko {
	if vsCurrency == "" {
		vsCurrency = "usd"
	}
	return &CoinGecko{api: api, vs: strings.ToLower(vsCurrency), retry: r}
}

func (g *CoinGecko) FetchPrice(ctx context.Context, id string) (decimal.Decimal, error) {
	resp, err := g.api.SimplePrice(ctx, []string{id}, g.vs)
	if err != nil {
		return decimal.Zero, err
	}
	num, ok := resp[id][g.vs]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: %w", id, ErrPriceMissing)
	}
	return parsePrice(num.String())
}

// Find takes the provider's first search candidate as the best match.
func (g *CoinGecko) Find(ctx context.Context, query string) (CoinRef, error) {
	var coins []coingecko.SearchCoin
	err := g.retry.do(ctx, query, func(ctx context.Context) error {
		var err error
		coins, err = g.api.Search(ctx, query)
		return err
	})
	if err != nil {
		return CoinRef{}, err
	}
	if len(coins) == 0 || coins[0].ID == "" {
		return CoinRef{}, ErrNotFound
	}
	first := coins[0]
	return CoinRef{ID: first.ID, Symbol: first.Symbol, Name: first.Name}, nil
}

// Binance adapts the batch ticker and exchange listing endpoints. Ids are base
// assets; requests use base + quote asset pairs such as "BTCUSDT".
type Binance struct {
	api        *binance.RESTClient
	quoteAsset string
	retry      *retrier
	log        *zap.Logger
}

func NewBinance(api *binance.RESTClient, quoteAsset string, r *retrier, log *zap.Logger) *Binance {
	if quoteAsset == "" {
		quoteAsset = "USDT"
	}
	return &Binance{
		api:        api,
		quoteAsset: strings.ToUpper(quoteAsset),
		retry:      r,
		log:        log.With(zap.String("component", "binance")),
	}
}

// FetchPrices asks for every id in one ticker request. The exchange rejects the
// whole request with a 400 when any pair is unlisted, so on that answer the ids
// are checked against the listing and the request is repeated without the
// unlisted ones.
func (b *Binance) FetchPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	tickers, err := b.api.TickerPrices(ctx, b.pairs(ids))
	if isUnknownSymbol(err) {
		var listed []string
		listed, err = b.listedOnly(ctx, ids)
		if err != nil {
			return nil, err
		}
		if len(listed) == 0 {
			return map[string]decimal.Decimal{}, nil
		}
		tickers, err = b.api.TickerPrices(ctx, b.pairs(listed))
	}
	if err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal, len(tickers))
	for _, t := range tickers {
		base, ok := strings.CutSuffix(t.Symbol, b.quoteAsset)
		if !ok || base == "" {
			continue
		}
		price, err := parsePrice(t.Price)
		if err != nil {
			// leave the id out so only it fails this cycle
			continue
		}
		out[base] = price
	}
	return out, nil
}

func (b *Binance) pairs(ids []string) []string {
	pairs := make([]string, len(ids))
	for i, id := range ids {
		pairs[i] = id + b.quoteAsset
	}
	return pairs
}

// listedOnly drops ids with no tradable pair in the quote asset and logs them.
func (b *Binance) listedOnly(ctx context.Context, ids []string) ([]string, error) {
	bases, err := b.api.TradingBaseAssets(ctx, b.quoteAsset)
	if err != nil {
		return nil, err
	}
	tradable := make(map[string]bool, len(bases))
	for _, base := range bases {
		tradable[base] = true
	}

	var listed, unlisted []string
	for _, id := range ids {
		if tradable[id] {
			listed = append(listed, id)
		} else {
			unlisted = append(unlisted, id)
		}
	}
	if len(unlisted) > 0 {
		b.log.Warn("ids not tradable on exchange",
			zap.Strings("ids", unlisted), zap.String("quote_asset", b.quoteAsset))
	}
	return listed, nil
}

// Find checks for an exact tradable ticker first, then falls back to a
// substring match over the listing, preferring the shortest base asset.
func (b *Binance) Find(ctx context.Context, query string) (CoinRef, error) {
	q := strings.ToUpper(query)

	var exact []binance.SymbolInfo
	err := b.retry.do(ctx, q, func(ctx context.Context) error {
		var err error
		exact, err = b.api.ExchangeInfo(ctx, q+b.quoteAsset)
		return err
	})
	if err == nil {
		for _, s := range exact {
			if s.BaseAsset == q && s.IsTrading(b.quoteAsset) {
				return b.ref(s.BaseAsset), nil
			}
		}
	} else if !isUnknownSymbol(err) {
		return CoinRef{}, err
	}

	var bases []string
	err = b.retry.do(ctx, "listing", func(ctx context.Context) error {
		var err error
		bases, err = b.api.TradingBaseAssets(ctx, b.quoteAsset)
		return err
	})
	if err != nil {
		return CoinRef{}, err
	}

	var matches []string
	for _, base := range bases {
		if strings.Contains(base, q) {
			matches = append(matches, base)
		}
	}
	if len(matches) == 0 {
		return CoinRef{}, ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		if len(matches[i]) != len(matches[j]) {
			return len(matches[i]) < len(matches[j])
		}
		return matches[i] < matches[j]
	})
	return b.ref(matches[0]), nil
}

func (b *Binance) ref(base string) CoinRef {
	return CoinRef{ID: base, Symbol: base, Name: registry.DisplayName(base)}
}

// isUnknownSymbol reports the 400 Binance returns for a pair it does not list.
func isUnknownSymbol(err error) bool {
	var se *rest.StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusBadRequest
}
