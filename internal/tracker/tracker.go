package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pricewatch/internal/coin"
	"pricewatch/internal/metrics"
	"pricewatch/internal/quote"
	"pricewatch/internal/registry"

	"go.uber.org/zap"
)

var (
	ErrNotFound  = errors.New("coin not found")
	ErrDuplicate = errors.New("coin already in the list")
)

// UserError carries a message meant to be shown as is.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string { return e.Message }
func (e *UserError) Unwrap() error { return e.Err }

// Store is the persistence the tracker needs.
type Store interface {
	Load(ctx context.Context) []coin.WatchedCoin
	Save(ctx context.Context, coins []coin.WatchedCoin) error
}

// Tracker owns the watch-list. It applies quote results to it, persists
// every change and notifies subscribers.
//
// Lock order is cycleMu, then persistMu, then mu. Network calls and sleeps
// never run while mu is held.
type Tracker struct {
	client quote.Client
	store  Store
	reg    *registry.Registry
	log    *zap.Logger
	now    func() time.Time

	cycleMu   sync.Mutex // one fetch cycle at a time
	persistMu sync.Mutex // single writer to the store

	mu    sync.RWMutex
	coins []coin.WatchedCoin

	subsMu  sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// New creates an empty tracker; call Load to restore the saved list.
// reg may be nil to skip identifier migration.
func New(client quote.Client, store Store, reg *registry.Registry, log *zap.Logger) *Tracker {
	return &Tracker{
		client: client,
		store:  store,
		reg:    reg,
		log:    log.With(zap.String("component", "tracker")),
		now:    time.Now,
		subs:   make(map[int]chan Event),
	}
}

// Load restores the saved list, migrating legacy identifiers. A migrated list
// is written back once.
func (t *Tracker) Load(ctx context.Context) {
	coins := t.store.Load(ctx)

	dirty := false
	namespace := "unmanaged"
	if t.reg != nil {
		coins, dirty = t.reg.MigrateAll(coins)
		namespace = t.reg.Provider()
	}

	// a legacy id and its canonical form may both have been saved
	seen := make(map[string]struct{}, len(coins))
	unique := coins[:0]
	for _, c := range coins {
		if _, dup := seen[c.ID]; dup {
			t.log.Info("dropping duplicate after migration", zap.String("id", c.ID))
			dirty = true
			continue
		}
		seen[c.ID] = struct{}{}
		c.Status = coin.StatusStale
		unique = append(unique, c)
	}
	coins = unique

	t.mu.Lock()
	t.coins = coins
	t.mu.Unlock()
	metrics.WatchedCoins.Set(float64(len(coins)))

	t.log.Info("watch-list loaded",
		zap.Int("coins", len(coins)), zap.String("namespace", namespace), zap.Bool("migrated", dirty))
	if dirty {
		t.persist(ctx)
	}
	t.publish(EventListChanged)
}

// Coins returns a copy of the current list.
func (t *Tracker) Coins() []coin.WatchedCoin {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return coin.CloneAll(t.coins)
}

// AddCoin resolves query, appends the coin and prices the whole list.
// It returns a *UserError wrapping ErrNotFound or ErrDuplicate.
func (t *Tracker) AddCoin(ctx context.Context, query string) error {
	q := strings.TrimSpace(query)

	ref, err := t.client.Search(ctx, q)
	if err != nil {
		return &UserError{Message: fmt.Sprintf("No coin found for %q.", q), Err: ErrNotFound}
	}

	t.mu.Lock()
	if i := coin.IndexOf(t.coins, ref.ID); i >= 0 {
		name := t.coins[i].Name
		t.mu.Unlock()
		return &UserError{Message: fmt.Sprintf("%s is already in the list.", name), Err: ErrDuplicate}
	}
	t.coins = append(t.coins, coin.New(ref.ID, ref.Symbol, ref.Name))
	n := len(t.coins)
	t.mu.Unlock()

	metrics.WatchedCoins.Set(float64(n))
	t.log.Info("coin added", zap.String("query", q), zap.String("id", ref.ID))
	t.persist(ctx)
	t.publish(EventListChanged)

	if _, err := t.RunCycle(ctx); err != nil {
		t.log.Warn("refresh after add failed", zap.String("id", ref.ID), zap.Error(err))
	}
	return nil
}

// RemoveCoin drops id from the list. It reports whether the list changed.
func (t *Tracker) RemoveCoin(ctx context.Context, id string) bool {
	return t.mutate(ctx, "coin removed", id, func(coins []coin.WatchedCoin, i int) []coin.WatchedCoin {
		return append(coins[:i], coins[i+1:]...)
	})
}

// MoveUp swaps id with its predecessor. No-op for the first item.
func (t *Tracker) MoveUp(ctx context.Context, id string) bool {
	return t.mutate(ctx, "coin moved up", id, func(coins []coin.WatchedCoin, i int) []coin.WatchedCoin {
		if i == 0 {
			return nil
		}
		coins[i-1], coins[i] = coins[i], coins[i-1]
		return coins
	})
}

// MoveDown swaps id with its successor. No-op for the last item.
func (t *Tracker) MoveDown(ctx context.Context, id string) bool {
	return t.mutate(ctx, "coin moved down", id, func(coins []coin.WatchedCoin, i int) []coin.WatchedCoin {
		if i == len(coins)-1 {
			return nil
		}
		coins[i], coins[i+1] = coins[i+1], coins[i]
		return coins
	})
}

// mutate applies fn to the list at the index of id. fn returns nil for a no-op.
// Unknown ids and no-ops neither persist nor notify.
func (t *Tracker) mutate(ctx context.Context, msg, id string, fn func([]coin.WatchedCoin, int) []coin.WatchedCoin) bool {
	t.mu.Lock()
	i := coin.IndexOf(t.coins, id)
	if i < 0 {
		t.mu.Unlock()
		return false
	}
	next := fn(t.coins, i)
	if next == nil {
		t.mu.Unlock()
		return false
	}
	t.coins = next
	n := len(next)
	t.mu.Unlock()

	metrics.WatchedCoins.Set(float64(n))
	t.log.Info(msg, zap.String("id", id))
	t.persist(ctx)
	t.publish(EventListChanged)
	return true
}

// persist saves the current list. The snapshot is taken under persistMu so
// concurrent writers land in the order their snapshots were taken. Failures
// are logged; in-memory state stays authoritative.
func (t *Tracker) persist(ctx context.Context) {
	t.persistMu.Lock()
	defer t.persistMu.Unlock()

	snapshot := t.Coins()
	if err := t.store.Save(context.WithoutCancel(ctx), snapshot); err != nil {
		t.log.Warn("failed to save watch-list", zap.Int("coins", len(snapshot)), zap.Error(err))
	}
}
