package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taxpadi/taxpadi/internal/cache"
	"github.com/taxpadi/taxpadi/internal/config"
	"github.com/taxpadi/taxpadi/internal/engine"
	"github.com/taxpadi/taxpadi/internal/feedback"
	"github.com/taxpadi/taxpadi/internal/llm"
	"github.com/taxpadi/taxpadi/internal/pattern"
	"github.com/taxpadi/taxpadi/internal/rules"
	"github.com/taxpadi/taxpadi/internal/service"
	"github.com/taxpadi/taxpadi/internal/signal"
	"github.com/taxpadi/taxpadi/internal/storage"
)

// getStorage opens the configured database. The returned cleanup closes the
// store.
func getStorage(cfg *config.Config) (service.Storage, func(), error) {
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	cleanup := func() { _ = store.Close() }
	return store, cleanup, nil
}

// appComponents bundles everything a command needs to classify and record
// feedback.
type appComponents struct {
	Storage  service.Storage
	Engine   *engine.Engine
	Recorder *feedback.Recorder
	Detector *signal.Detector
	cleanups []func()
}

// Close releases resources in reverse acquisition order.
func (a *appComponents) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
}

// buildComponents wires the full classification stack from configuration.
// Redis and AI providers are optional; their tiers degrade gracefully when
// unconfigured.
func buildComponents(cfg *config.Config) (*appComponents, error) {
	app := &appComponents{}

	store, storeCleanup, err := getStorage(cfg)
	if err != nil {
		return nil, err
	}
	app.Storage = store
	app.cleanups = append(app.cleanups, storeCleanup)

	if err := store.Migrate(context.Background()); err != nil {
		app.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	gateway, err := llm.NewGateway(cfg.Providers, slog.Default())
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create AI gateway: %w", err)
	}
	app.cleanups = append(app.cleanups, func() { _ = gateway.Close() })

	var resultCache *cache.ResultCache
	if cfg.RedisAddr != "" {
		redis, redisErr := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if redisErr != nil {
			slog.Warn("redis unavailable, classification cache disabled", "error", redisErr)
		} else {
			resultCache = cache.NewResultCache(redis, cfg.CacheTTL)
			app.cleanups = append(app.cleanups, func() { _ = redis.Close() })
		}
	}

	detector := signal.NewDetector()
	matcher := pattern.NewMatcher(store, slog.Default())

	app.Detector = detector
	app.Engine = engine.New(detector, rules.NewClassifier(), matcher, gateway, resultCache, slog.Default())
	app.Recorder = feedback.NewRecorder(store, store, slog.Default())

	return app, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
