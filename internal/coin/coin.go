package coin

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the display-only sync marker of a watched coin. It is never persisted.
type Status string

const (
	StatusOK    Status = "OK"    // last fetch succeeded
	StatusStale Status = "STALE" // last fetch for this coin failed, or not fetched yet
	StatusError Status = "ERROR" // the whole last cycle failed
)

// WatchedCoin is one entry of the user's watch-list.
type WatchedCoin struct {
	ID     string // provider key used in fetch requests, e.g. "BTC" or "bitcoin"
	Symbol string // short upper-case ticker
	Name   string

	// LastPrice and LastUpdatedAt are both set or both nil.
	LastPrice     *decimal.Decimal
	LastUpdatedAt *time.Time

	Status Status
}

// New returns a coin without a cached price.
func New(id, symbol, name string) WatchedCoin {
	return WatchedCoin{
		ID:     id,
		Symbol: strings.ToUpper(symbol),
		Name:   name,
		Status: StatusStale,
	}
}

// HasPrice reports whether a cached price is present.
func (c WatchedCoin) HasPrice() bool {
	return c.LastPrice != nil && c.LastUpdatedAt != nil
}

// SetPrice records a successful quote.
func (c *WatchedCoin) SetPrice(price decimal.Decimal, at time.Time) {
	c.LastPrice = &price
	c.LastUpdatedAt = &at
	c.Status = StatusOK
}

// MarkFailed flags the coin without touching its last known price.
func (c *WatchedCoin) MarkFailed(status Status) {
	c.Status = status
}

// Clone returns a deep copy so snapshots never alias the owner's pointers.
func (c WatchedCoin) Clone() WatchedCoin {
	out := c
	if c.LastPrice != nil {
		p := *c.LastPrice
		out.LastPrice = &p
	}
	if c.LastUpdatedAt != nil {
		t := *c.LastUpdatedAt
		out.LastUpdatedAt = &t
	}
	return out
}

// CloneAll deep-copies a list.
func CloneAll(coins []WatchedCoin) []WatchedCoin {
	out := make([]WatchedCoin, len(coins))
	for i, c := range coins {
		out[i] = c.Clone()
	}
	return out
}

// IDs returns the ids of coins in list order.
func IDs(coins []WatchedCoin) []string {
	ids := make([]string, len(coins))
	for i, c := range coins {
		ids[i] = c.ID
	}
	return ids
}

// IndexOf returns the position of id in coins, or -1.
func IndexOf(coins []WatchedCoin, id string) int {
	for i, c := range coins {
		if c.ID == id {
			return i
		}
	}
	return -1
}
