package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"pricewatch/internal/coin"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// fileRecord is the on-disk shape of one watch-list entry.
type fileRecord struct {
	ID            string       `json:"id"`
	Symbol        string       `json:"symbol"`
	Name          string       `json:"name"`
	LastPrice     *json.Number `json:"lastPrice,omitempty"`
	LastUpdatedAt *time.Time   `json:"lastUpdatedAt,omitempty"`
}

// FileStore keeps the watch-list as an indented JSON array, in display order.
type FileStore struct {
	path     string
	defaults []coin.WatchedCoin
	log      *zap.Logger
}

func NewFileStore(path string, defaults []coin.WatchedCoin, log *zap.Logger) *FileStore {
	return &FileStore{
		path:     path,
		defaults: coin.CloneAll(defaults),
		log:      log.With(zap.String("component", "filestore"), zap.String("path", path)),
	}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) []coin.WatchedCoin {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Info("no watch-list file, using defaults")
		} else {
			s.log.Warn("failed to read watch-list, using defaults", zap.Error(err))
		}
		return coin.CloneAll(s.defaults)
	}

	var records []fileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.log.Warn("failed to parse watch-list, using defaults", zap.Error(err))
		return coin.CloneAll(s.defaults)
	}

	coins := make([]coin.WatchedCoin, 0, len(records))
	for _, r := range records {
		c := coin.WatchedCoin{ID: r.ID, Symbol: r.Symbol, Name: r.Name, LastUpdatedAt: r.LastUpdatedAt}
		if r.LastPrice != nil {
			p, err := decimal.NewFromString(r.LastPrice.String())
			if err != nil {
				s.log.Warn("dropping unparsable stored price", zap.String("id", r.ID), zap.Error(err))
			} else {
				c.LastPrice = &p
			}
		}
		coins = append(coins, c)
	}

	coins = sanitize(coins, s.log)
	if len(coins) == 0 {
		s.log.Info("watch-list file is empty, using defaults")
		return coin.CloneAll(s.defaults)
	}
	return coins
}

// Save writes to a temp file in the target directory and renames it into
// place, so a failed write leaves the previous file intact.
func (s *FileStore) Save(ctx context.Context, coins []coin.WatchedCoin) error {
	records := make([]fileRecord, len(coins))
	for i, c := range coins {
		r := fileRecord{ID: c.ID, Symbol: c.Symbol, Name: c.Name}
		if c.HasPrice() {
			n := json.Number(c.LastPrice.String())
			at := c.LastUpdatedAt.UTC()
			r.LastPrice = &n
			r.LastUpdatedAt = &at
		}
		records[i] = r
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode watch-list: %w", err)
	}
	if err := writeFileAtomically(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write watch-list %s: %w", s.path, err)
	}
	s.log.Debug("watch-list saved", zap.Int("coins", len(coins)))
	return nil
}

func (s *FileStore) Close() error { return nil }

func writeFileAtomically(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
