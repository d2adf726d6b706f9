package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pricewatch/pkg/rest"
)

// DefaultBaseURL is the public (keyless) API endpoint.
const DefaultBaseURL = "https://api.coingecko.com"

type RESTClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRESTClient creates a client. apiKey is optional and sent as a demo key.
func NewRESTClient(baseURL, apiKey string, timeout time.Duration) *RESTClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Search resolves free text to candidate coins, best match first.
func (c *RESTClient) Search(ctx context.Context, query string) ([]SearchCoin, error) {
	q := url.Values{"query": {query}}
	var resp SearchResponse
	if err := rest.GetJSON(ctx, c.httpClient, c.endpoint("/api/v3/search", q), &resp); err != nil {
		return nil, fmt.Errorf("coingecko search: %w", err)
	}
	return resp.Coins, nil
}

// SimplePrice fetches the current price of ids in vsCurrency. Unknown ids are
// absent from the returned map.
func (c *RESTClient) SimplePrice(ctx context.Context, ids []string, vsCurrency string) (SimplePriceResponse, error) {
	q := url.Values{
		"ids":           {strings.Join(ids, ",")},
		"vs_currencies": {vsCurrency},
	}
	var resp SimplePriceResponse
	if err := rest.GetJSON(ctx, c.httpClient, c.endpoint("/api/v3/simple/price", q), &resp); err != nil {
		return nil, fmt.Errorf("coingecko simple price: %w", err)
	}
	return resp, nil
}

func (c *RESTClient) endpoint(path string, q url.Values) string {
	if c.apiKey != "" {
		q.Set("x_cg_demo_api_key", c.apiKey)
	}
	return c.baseURL + path + "?" + q.Encode()
}
