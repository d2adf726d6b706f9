package database

import (
	"time"

	"github.com/shopspring/decimal"
)

// WatchlistRecord is one row of the persisted watch-list. Only the current
// snapshot is stored; rows are replaced wholesale on every save.
type WatchlistRecord struct {
	ID       uint `gorm:"primaryKey"`
	Position int  `gorm:"not null;uniqueIndex:idx_watchlist_position"`

	CoinID string `gorm:"type:text;not null;uniqueIndex:idx_watchlist_coin_id"`
	Symbol string `gorm:"type:text;not null"`
	Name   string `gorm:"type:text;not null"`

	// text keeps the exact decimal on sqlite, whose numeric affinity would coerce to REAL
	LastPrice     decimal.NullDecimal `gorm:"type:text"`
	LastUpdatedAt *time.Time

	SavedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the default table name for GORM.
func (WatchlistRecord) TableName() string {
	return "watchlist_record"
}
