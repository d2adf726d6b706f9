package config

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// PostgresConfig defines the configuration for connecting to a PostgreSQL watch-list database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	// PasswordParameter names an SSM parameter holding the password in prod.
	PasswordParameter string `mapstructure:"password_parameter"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN builds the connection string for the configured database. In prod the
// password is read from SSM Parameter Store when PasswordParameter is set.
func (cfg *PostgresConfig) DSN(ctx context.Context, env string) (string, error) {
	password, err := cfg.password(ctx, env)
	if err != nil {
		return "", err
	}
	return cfg.dsn(cfg.DBName, password), nil
}

// AdminDSN targets the server's maintenance database, used to create DBName.
func (cfg *PostgresConfig) AdminDSN(ctx context.Context, env string) (string, error) {
	password, err := cfg.password(ctx, env)
	if err != nil {
		return "", err
	}
	return cfg.dsn("postgres", password), nil
}

func (cfg *PostgresConfig) dsn(dbName, password string) string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, password, dbName, cfg.SSLMode,
	)
	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}
	return dsn
}

func (cfg *PostgresConfig) password(ctx context.Context, env string) (string, error) {
	if env != "prod" || cfg.PasswordParameter == "" {
		return cfg.Password, nil
	}
	value, err := getParameterStoreValue(ctx, cfg.PasswordParameter, true)
	if err != nil {
		return "", fmt.Errorf("read db password from parameter store: %w", err)
	}
	return value, nil
}

func getParameterStoreValue(ctx context.Context, parameterName string, decrypt bool) (string, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return "", fmt.Errorf("load aws config: %w", err)
	}

	client := ssm.NewFromConfig(cfg)

	result, err := client.GetParameter(ctxWithTimeout, &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", parameterName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", parameterName)
	}
	return *result.Parameter.Value, nil
}
