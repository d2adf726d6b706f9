package coingecko

import "encoding/json"

// SearchResponse is the subset of /api/v3/search used for coin lookup.
type SearchResponse struct {
	Coins []SearchCoin `json:"coins"`
}

// SearchCoin is one search candidate, best match first.
type SearchCoin struct {
	ID     string `json:"id"`     // e.g., "bitcoin"
	Symbol string `json:"symbol"` // e.g., "BTC"
	Name   string `json:"name"`   // e.g., "Bitcoin"
}

// SimplePriceResponse maps coin id -> vs currency -> price.
// Prices stay json.Number so callers can parse them without float rounding.
type SimplePriceResponse map[string]map[string]json.Number
