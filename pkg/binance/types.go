package binance

// TickerPrice is one element of the /api/v3/ticker/price response.
type TickerPrice struct {
	Symbol string `json:"symbol"` // e.g., "BTCUSDT"
	Price  string `json:"price"`  // decimal string, e.g., "64123.45000000"
}

// ExchangeInfoResponse is the subset of /api/v3/exchangeInfo used for coin lookup.
type ExchangeInfoResponse struct {
	Timezone   string       `json:"timezone"`
	ServerTime int64        `json:"serverTime"`
	Symbols    []SymbolInfo `json:"symbols"`
}

// SymbolInfo describes a single trading pair.
type SymbolInfo struct {
	Symbol     string `json:"symbol"`     // e.g., "BTCUSDT"
	Status     string `json:"status"`     // e.g., "TRADING", "BREAK"
	BaseAsset  string `json:"baseAsset"`  // e.g., "BTC"
	QuoteAsset string `json:"quoteAsset"` // e.g., "USDT"
}

// StatusTrading marks a pair that is currently tradable.
const StatusTrading = "TRADING"

// IsTrading reports whether the pair is quoted in quoteAsset and currently tradable.
func (s SymbolInfo) IsTrading(quoteAsset string) bool {
	return s.QuoteAsset == quoteAsset && s.Status == StatusTrading
}
