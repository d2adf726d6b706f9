package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// AppName names the per-user data and config directories.
const AppName = "pricewatch"

type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ProviderConfig selects the single active quote provider.
type ProviderConfig struct {
	Name      string          `mapstructure:"name"` // "binance" or "coingecko"
	Retry     RetryConfig     `mapstructure:"retry"`
	Binance   BinanceConfig   `mapstructure:"binance"`
	CoinGecko CoinGeckoConfig `mapstructure:"coingecko"`
}

type RESTConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type BinanceConfig struct {
	REST         RESTConfig    `mapstructure:"rest"`
	QuoteAsset   string        `mapstructure:"quote_asset"`
	RequestDelay time.Duration `mapstructure:"request_delay"`
}

type CoinGeckoConfig struct {
	REST         RESTConfig    `mapstructure:"rest"`
	APIKey       string        `mapstructure:"api_key"`
	VsCurrency   string        `mapstructure:"vs_currency"`
	RequestDelay time.Duration `mapstructure:"request_delay"` // free tier: ~1.5s between calls
}

// RetryConfig bounds per-request retries.
type RetryConfig struct {
	MaxAttempts       int           `mapstructure:"max_attempts"`
	DefaultRetryAfter time.Duration `mapstructure:"default_retry_after"` // used when a 429 has no Retry-After
	MaxRetryAfter     time.Duration `mapstructure:"max_retry_after"`
}

type RefreshConfig struct {
	// Interval is a Go duration ("5m") or a standard cron expression ("*/2 * * * *").
	Interval string `mapstructure:"interval"`
}

type StorageConfig struct {
	Driver   string         `mapstructure:"driver"` // "file", "sqlite" or "postgres"
	Path     string         `mapstructure:"path"`   // watch-list file, or sqlite database file
	CreateDB bool           `mapstructure:"create_db"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

type MetricsConfig struct {
	// Textfile, when set, receives a node-exporter textfile dump after each cycle.
	Textfile string `mapstructure:"textfile"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.name", "binance")
	v.SetDefault("provider.retry.max_attempts", 2)
	v.SetDefault("provider.retry.default_retry_after", 10*time.Second)
	v.SetDefault("provider.retry.max_retry_after", 2*time.Minute)

	v.SetDefault("provider.binance.rest.base_url", "https://api.binance.com")
	v.SetDefault("provider.binance.rest.timeout", 10*time.Second)
	v.SetDefault("provider.binance.quote_asset", "USDT")
	v.SetDefault("provider.binance.request_delay", 0)

	v.SetDefault("provider.coingecko.rest.base_url", "https://api.coingecko.com")
	v.SetDefault("provider.coingecko.rest.timeout", 10*time.Second)
	v.SetDefault("provider.coingecko.vs_currency", "usd")
	v.SetDefault("provider.coingecko.request_delay", 1500*time.Millisecond)
	v.SetDefault("provider.coingecko.api_key", "")

	v.SetDefault("refresh.interval", "5m")

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.create_db", false)
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.dbname", AppName)
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.postgres.user", "postgres")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.password_parameter", "")
	v.SetDefault("storage.postgres.timezone", "UTC")
	v.SetDefault("storage.postgres.max_open_conns", 4)
	v.SetDefault("storage.postgres.max_idle_conns", 2)
	v.SetDefault("storage.postgres.conn_max_lifetime", time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.environment", "dev")
	v.SetDefault("log.output_file", "")

	v.SetDefault("metrics.textfile", "")
}

// Load loads application configuration using Viper.
// It reads config.yaml when present and overrides with PRICEWATCH_* environment
// variables (e.g., PRICEWATCH_PROVIDER_NAME). An optional .env file is loaded first.
// An explicit path must exist; the default search locations may be empty.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")
		v.AddConfigPath("config")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, AppName))
		}
	}

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "binance", "coingecko":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}

	if c.Provider.Retry.MaxAttempts < 1 {
		return fmt.Errorf("provider.retry.max_attempts must be at least 1")
	}

	if _, err := c.Refresh.Schedule(); err != nil {
		return err
	}

	switch c.Storage.Driver {
	case "file", "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	return nil
}

// Schedule parses Interval as a duration, falling back to a cron expression.
func (r RefreshConfig) Schedule() (cron.Schedule, error) {
	s := strings.TrimSpace(r.Interval)
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("refresh interval must be positive, got %s", d)
		}
		return every(d), nil
	}
	sched, err := cron.ParseStandard(s)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh interval %q: %w", r.Interval, err)
	}
	return sched, nil
}

// every fires a fixed delay after the previous run. cron.ConstantDelaySchedule
// rounds to whole seconds, which is too coarse for sub-second test intervals.
type every time.Duration

func (e every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

// DataDir returns the per-user application data directory.
func DataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// WatchlistPath returns the configured storage path or the default for the driver.
func (s StorageConfig) WatchlistPath() (string, error) {
	if s.Path != "" {
		return s.Path, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if s.Driver == "sqlite" {
		return filepath.Join(dir, "coins.db"), nil
	}
	return filepath.Join(dir, "coins.json"), nil
}
