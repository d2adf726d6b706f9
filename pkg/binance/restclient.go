package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pricewatch/pkg/rest"
)

// DefaultBaseURL is the public spot REST endpoint.
const DefaultBaseURL = "https://api.binance.com"

type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// TickerPrices fetches the latest price for every pair in one request.
// Pairs unknown to the exchange are simply absent from the result.
func (c *RESTClient) TickerPrices(ctx context.Context, pairs []string) ([]TickerPrice, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	// symbols=["BTCUSDT","ETHUSDT"]
	raw, err := json.Marshal(pairs)
	if err != nil {
		return nil, fmt.Errorf("encode symbols: %w", err)
	}
	endpoint := c.baseURL + "/api/v3/ticker/price?" + url.Values{"symbols": {string(raw)}}.Encode()

	var prices []TickerPrice
	if err := rest.GetJSON(ctx, c.httpClient, endpoint, &prices); err != nil {
		return nil, fmt.Errorf("binance ticker price: %w", err)
	}
	return prices, nil
}

// ExchangeInfo returns the symbol directory. When pair is non-empty only that
// pair is requested; the exchange answers 400 for unknown pairs.
func (c *RESTClient) ExchangeInfo(ctx context.Context, pair string) ([]SymbolInfo, error) {
	endpoint := c.baseURL + "/api/v3/exchangeInfo"
	if pair != "" {
		endpoint += "?" + url.Values{"symbol": {pair}}.Encode()
	}

	var info ExchangeInfoResponse
	if err := rest.GetJSON(ctx, c.httpClient, endpoint, &info); err != nil {
		return nil, fmt.Errorf("binance exchange info: %w", err)
	}
	return info.Symbols, nil
}

// TradingBaseAssets lists the base assets of every tradable pair quoted in quoteAsset.
func (c *RESTClient) TradingBaseAssets(ctx context.Context, quoteAsset string) ([]string, error) {
	symbols, err := c.ExchangeInfo(ctx, "")
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var bases []string
	for _, s := range symbols {
		if s.IsTrading(quoteAsset) && !seen[s.BaseAsset] {
			bases = append(bases, s.BaseAsset)
			seen[s.BaseAsset] = true
		}
	}
	return bases, nil
}
