package registry

// asset is one row of the static lookup table. The table is the single source
// for migrations, search aliases and display hints; it is never mutated.
type asset struct {
	Symbol  string // Binance base asset, upper-case
	GeckoID string // CoinGecko coin id
	Name    string
	Glyph   string
	Accent  string // hex colour
}

var assets = []asset{
	{Symbol: "BTC", GeckoID: "bitcoin", Name: "Bitcoin", Glyph: "₿", Accent: "#F7931A"},
	{Symbol: "ETH", GeckoID: "ethereum", Name: "Ethereum", Glyph: "Ξ", Accent: "#627EEA"},
	{Symbol: "SOL", GeckoID: "solana", Name: "Solana", Glyph: "◎", Accent: "#9945FF"},
	{Symbol: "ADA", GeckoID: "cardano", Name: "Cardano", Glyph: "₳", Accent: "#0033AD"},
	{Symbol: "XRP", GeckoID: "ripple", Name: "XRP", Glyph: "✕", Accent: "#00AAE4"},
	{Symbol: "DOGE", GeckoID: "dogecoin", Name: "Dogecoin", Glyph: "Ð", Accent: "#C2A633"},
	{Symbol: "LTC", GeckoID: "litecoin", Name: "Litecoin", Glyph: "Ł", Accent: "#BFBBBB"},
	{Symbol: "BNB", GeckoID: "binancecoin", Name: "BNB", Glyph: "BNB", Accent: "#F3BA2F"},
	{Symbol: "DOT", GeckoID: "polkadot", Name: "Polkadot", Glyph: "●", Accent: "#E6007A"},
	{Symbol: "AVAX", GeckoID: "avalanche-2", Name: "Avalanche", Glyph: "Av", Accent: "#E84142"},
	{Symbol: "LINK", GeckoID: "chainlink", Name: "Chainlink", Glyph: "⬡", Accent: "#2A5ADA"},
	{Symbol: "UNI", GeckoID: "uniswap", Name: "Uniswap", Glyph: "🦄", Accent: "#FF007A"},
	{Symbol: "XLM", GeckoID: "stellar", Name: "Stellar", Glyph: "✦", Accent: "#7AC4DE"},
	{Symbol: "XMR", GeckoID: "monero", Name: "Monero", Glyph: "ɱ", Accent: "#FF6600"},
}

// defaultSymbols is the watch-list used when nothing has been saved yet.
var defaultSymbols = []string{"BTC", "ETH", "SOL"}

const defaultAccent = "#AAAAAA"

var bySymbol = func() map[string]asset {
	m := make(map[string]asset, len(assets))
	for _, a := range assets {
		m[a.Symbol] = a
	}
	return m
}()

// DisplayName returns the human name of a ticker, or the ticker itself.
func DisplayName(symbol string) string {
	if a, ok := bySymbol[symbol]; ok {
		return a.Name
	}
	return symbol
}

// Glyph returns a short display glyph for a ticker.
func Glyph(symbol string) string {
	if a, ok := bySymbol[symbol]; ok {
		return a.Glyph
	}
	if len(symbol) > 3 {
		return symbol[:3]
	}
	return symbol
}

// Accent returns the tile colour of a ticker.
func Accent(symbol string) string {
	if a, ok := bySymbol[symbol]; ok {
		return a.Accent
	}
	return defaultAccent
}
