package registry

import (
	"fmt"
	"strings"

	"pricewatch/internal/coin"
)

// Supported quote providers. Each one has its own canonical identifier namespace.
const (
	ProviderBinance   = "binance"
	ProviderCoinGecko = "coingecko"
)

// Entry maps a legacy identifier to its canonical form in the active namespace.
type Entry struct {
	LegacyID  string
	Canonical string
	Symbol    string
}

// Ref is a registry-resolved coin in the active namespace.
type Ref struct {
	ID     string
	Symbol string
	Name   string
}

// Registry holds the immutable tables for one provider namespace.
type Registry struct {
	provider   string
	migrations map[string]Entry
	aliases    map[string]Ref
	defaults   []Ref
}

var registries = map[string]*Registry{
	ProviderBinance:   build(ProviderBinance),
	ProviderCoinGecko: build(ProviderCoinGecko),
}

// For returns the registry of a provider namespace.
func For(provider string) (*Registry, error) {
	r, ok := registries[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
	return r, nil
}

func build(provider string) *Registry {
	r := &Registry{
		provider:   provider,
		migrations: make(map[string]Entry, len(assets)),
		aliases:    make(map[string]Ref, len(assets)*4),
	}

	for _, a := range assets {
		ref := Ref{ID: a.Symbol, Symbol: a.Symbol, Name: a.Name}
		legacy := a.GeckoID
		if provider == ProviderCoinGecko {
			ref.ID = a.GeckoID
			legacy = a.Symbol
		}

		r.migrations[legacy] = Entry{LegacyID: legacy, Canonical: ref.ID, Symbol: ref.Symbol}
		for _, key := range []string{a.Symbol, a.GeckoID, a.Name} {
			r.aliases[strings.ToLower(key)] = ref
		}
	}

	for _, sym := range defaultSymbols {
		r.defaults = append(r.defaults, r.aliases[strings.ToLower(sym)])
	}
	return r
}

// Provider returns the namespace this registry serves.
func (r *Registry) Provider() string { return r.provider }

// Migrate rewrites a coin saved under a legacy identifier. Name is left alone.
// Identifiers missing from the table are treated as already canonical.
func (r *Registry) Migrate(c coin.WatchedCoin) (coin.WatchedCoin, bool) {
	e, ok := r.migrations[c.ID]
	if !ok {
		return c, false
	}
	c.ID = e.Canonical
	c.Symbol = e.Symbol
	return c, true
}

// MigrateAll migrates every coin; dirty reports whether any was rewritten.
func (r *Registry) MigrateAll(coins []coin.WatchedCoin) ([]coin.WatchedCoin, bool) {
	out := make([]coin.WatchedCoin, len(coins))
	dirty := false
	for i, c := range coins {
		m, changed := r.Migrate(c)
		out[i] = m
		dirty = dirty || changed
	}
	return out, dirty
}

// Lookup resolves a ticker, legacy id or display name (case-insensitive).
func (r *Registry) Lookup(query string) (Ref, bool) {
	ref, ok := r.aliases[strings.ToLower(strings.TrimSpace(query))]
	return ref, ok
}

// Defaults returns a fresh copy of the bootstrap watch-list.
func (r *Registry) Defaults() []coin.WatchedCoin {
	out := make([]coin.WatchedCoin, len(r.defaults))
	for i, ref := range r.defaults {
		out[i] = coin.New(ref.ID, ref.Symbol, ref.Name)
	}
	return out
}
