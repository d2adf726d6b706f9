package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"pricewatch/config"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Client struct {
	DB *gorm.DB
}

// NewClient opens a GORM connection for driver ("sqlite" or "postgres").
func NewClient(driver, dsn string) (*Client, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	return &Client{DB: db}, nil
}

// InitializeAndMigrateWatchlist connects to the configured database, optionally
// creates it, and runs AutoMigrate for the watch-list table.
func InitializeAndMigrateWatchlist(ctx context.Context, cfg config.StorageConfig, env string) (*Client, error) {
	var (
		client *Client
		err    error
	)

	switch cfg.Driver {
	case DriverSQLite:
		path, perr := cfg.WatchlistPath()
		if perr != nil {
			return nil, perr
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		client, err = NewClient(DriverSQLite, path)

	case DriverPostgres:
		if cfg.CreateDB {
			if err := CreateDatabase(ctx, cfg.Postgres, env); err != nil {
				return nil, fmt.Errorf("failed to create database: %w", err)
			}
		}
		dsn, derr := cfg.Postgres.DSN(ctx, env)
		if derr != nil {
			return nil, derr
		}
		client, err = NewClient(DriverPostgres, dsn)
		if err == nil {
			err = client.configurePool(cfg.Postgres)
		}

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := client.AutoMigrateWatchlist(); err != nil {
		client.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (c *Client) configurePool(cfg config.PostgresConfig) error {
	db, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return nil
}

func (c *Client) AutoMigrateWatchlist() error {
	if err := c.DB.AutoMigrate(&WatchlistRecord{}); err != nil {
		return fmt.Errorf("auto-migrate watchlist table: %w", err)
	}
	return nil
}

func (c *Client) IsHealthy(ctx context.Context) bool {
	db, err := c.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (c *Client) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}
