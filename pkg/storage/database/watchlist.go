package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// ReplaceWatchlist swaps the stored rows for records inside one transaction.
// Positions are assigned from slice order.
func (c *Client) ReplaceWatchlist(ctx context.Context, records []WatchlistRecord) error {
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&WatchlistRecord{}).Error; err != nil {
			return fmt.Errorf("clear watchlist: %w", err)
		}
		if len(records) == 0 {
			return nil
		}

		rows := make([]WatchlistRecord, len(records))
		for i, r := range records {
			r.ID = 0
			r.Position = i
			rows[i] = r
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert watchlist: %w", err)
		}
		return nil
	})
}

// LoadWatchlist returns the stored rows in list order.
func (c *Client) LoadWatchlist(ctx context.Context) ([]WatchlistRecord, error) {
	var records []WatchlistRecord
	if err := c.DB.WithContext(ctx).Order("position").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	return records, nil
}
