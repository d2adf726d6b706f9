package store

import (
	"context"

	"pricewatch/internal/coin"
	"pricewatch/pkg/storage/database"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DatabaseStore keeps the watch-list in a SQL table through GORM.
type DatabaseStore struct {
	client   *database.Client
	defaults []coin.WatchedCoin
	log      *zap.Logger
}

func NewDatabaseStore(client *database.Client, defaults []coin.WatchedCoin, log *zap.Logger) *DatabaseStore {
	return &DatabaseStore{
		client:   client,
		defaults: coin.CloneAll(defaults),
		log:      log.With(zap.String("component", "dbstore")),
	}
}

func (s *DatabaseStore) Load(ctx context.Context) []coin.WatchedCoin {
	records, err := s.client.LoadWatchlist(ctx)
	if err != nil {
		s.log.Warn("failed to load watch-list, using defaults", zap.Error(err))
		return coin.CloneAll(s.defaults)
	}

	coins := make([]coin.WatchedCoin, 0, len(records))
	for _, r := range records {
		c := coin.WatchedCoin{ID: r.CoinID, Symbol: r.Symbol, Name: r.Name}
		if r.LastPrice.Valid {
			p := r.LastPrice.Decimal
			c.LastPrice = &p
		}
		if r.LastUpdatedAt != nil {
			at := r.LastUpdatedAt.UTC()
			c.LastUpdatedAt = &at
		}
		coins = append(coins, c)
	}

	coins = sanitize(coins, s.log)
	if len(coins) == 0 {
		s.log.Info("watch-list table is empty, using defaults")
		return coin.CloneAll(s.defaults)
	}
	return coins
}

func (s *DatabaseStore) Save(ctx context.Context, coins []coin.WatchedCoin) error {
	records := make([]database.WatchlistRecord, len(coins))
	for i, c := range coins {
		r := database.WatchlistRecord{CoinID: c.ID, Symbol: c.Symbol, Name: c.Name}
		if c.HasPrice() {
			r.LastPrice = decimal.NewNullDecimal(*c.LastPrice)
			at := c.LastUpdatedAt.UTC()
			r.LastUpdatedAt = &at
		}
		records[i] = r
	}
	return s.client.ReplaceWatchlist(ctx, records)
}

func (s *DatabaseStore) Close() error {
	return s.client.Close()
}
