package store

import (
	"context"
	"fmt"
	"strings"

	"pricewatch/config"
	"pricewatch/internal/coin"
	"pricewatch/pkg/storage/database"

	"go.uber.org/zap"
)

// Store persists the watch-list snapshot. Load never fails: any problem with
// the backing storage yields the default list. Save reports errors for the
// caller to log; it must not damage a previously good snapshot.
type Store interface {
	Load(ctx context.Context) []coin.WatchedCoin
	Save(ctx context.Context, coins []coin.WatchedCoin) error
	Close() error
}

// Open selects the store implementation from cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, env string, defaults []coin.WatchedCoin, log *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "file":
		path, err := cfg.WatchlistPath()
		if err != nil {
			return nil, err
		}
		return NewFileStore(path, defaults, log), nil

	case database.DriverSQLite, database.DriverPostgres:
		client, err := database.InitializeAndMigrateWatchlist(ctx, cfg, env)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
		}
		return NewDatabaseStore(client, defaults, log), nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// sanitize drops unusable entries from a decoded list: empty or repeated ids
// are skipped, and a price without a timestamp (or the reverse) loses both.
func sanitize(coins []coin.WatchedCoin, log *zap.Logger) []coin.WatchedCoin {
	out := make([]coin.WatchedCoin, 0, len(coins))
	seen := make(map[string]struct{}, len(coins))
	for _, c := range coins {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			log.Warn("skipping stored coin without id", zap.String("name", c.Name))
			continue
		}
		if _, dup := seen[c.ID]; dup {
			log.Warn("skipping duplicate stored coin", zap.String("id", c.ID))
			continue
		}
		seen[c.ID] = struct{}{}

		restored := coin.New(c.ID, c.Symbol, c.Name)
		if c.LastPrice != nil && c.LastUpdatedAt != nil && !c.LastPrice.IsNegative() {
			restored.LastPrice = c.LastPrice
			restored.LastUpdatedAt = c.LastUpdatedAt
		}
		out = append(out, restored)
	}
	return out
}
