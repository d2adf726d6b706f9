package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pricewatch/config"
	"pricewatch/internal/metrics"
	"pricewatch/internal/quote"
	"pricewatch/internal/registry"
	"pricewatch/internal/store"
	"pricewatch/internal/tracker"
	"pricewatch/logger"

	"go.uber.org/zap"
)

// app is the wired engine shared by every command.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	store   store.Store
	tracker *tracker.Tracker
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	// viper config
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	reg, err := registry.For(cfg.Provider.Name)
	if err != nil {
		return nil, err
	}

	client, err := quote.New(cfg.Provider, log)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Storage, cfg.Log.Environment, reg.Defaults(), log)
	if err != nil {
		return nil, err
	}

	tr := tracker.New(client, st, reg, log)
	tr.Load(ctx)

	log.Info("engine ready",
		zap.String("provider", cfg.Provider.Name),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("interval", cfg.Refresh.Interval))

	return &app{cfg: cfg, log: log, store: st, tracker: tr}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("failed to close store", zap.Error(err))
	}
	_ = a.log.Sync()
}

// writeMetrics dumps the metrics textfile when one is configured.
func (a *app) writeMetrics() {
	path := a.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		a.log.Warn("failed to write metrics textfile", zap.String("path", path), zap.Error(err))
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, cleanup := newRootCmd()
	err := root.ExecuteContext(ctx)
	cleanup()
	if err != nil {
		var ue *tracker.UserError
		if errors.As(err, &ue) {
			fmt.Fprintln(os.Stderr, ue.Message)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
