package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/catalog"
	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/config"
	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/logging"
)

// backend is the catalog and store a command works against.
type backend struct {
	cfg     *config.Config
	catalog core.CatalogSchemaProvider
	store   core.Store
	close   func()
}

// openBackend loads configuration and connects. With --seed no database is
// needed and configuration is loaded offline.
func openBackend(ctx context.Context, opts *globalOptions) (*backend, error) {
	load := config.Load
	if opts.seed != "" {
		load = config.LoadOffline
	}
	cfg, err := load()
	if err != nil {
		return nil, withCode(exitUsage, err)
	}

	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logging.Setup(os.Stderr, level, cfg.Logging.Format)

	if opts.seed != "" {
		seed, err := catalog.LoadSeed(opts.seed)
		if err != nil {
			return nil, withCode(exitUsage, err)
		}
		mem := catalog.NewMemory(seed)
		slog.Debug("using seed catalog", "path", opts.seed)
		return &backend{cfg: cfg, catalog: mem, store: mem, close: func() {}}, nil
	}

	pool, err := catalog.OpenPool(ctx, catalog.PoolConfig{
		URL:             cfg.Database.URL,
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		return nil, withCode(exitDB, fmt.Errorf("database: %w", err))
	}
	pg := catalog.NewPostgres(pool)
	b := &backend{cfg: cfg, catalog: pg, store: pg, close: pool.Close}

	if cfg.Cache.Enabled() {
		rdb, err := catalog.NewRedisClient(cfg.Cache.RedisURL)
		if err != nil {
			pool.Close()
			return nil, withCode(exitUsage, err)
		}
		b.catalog = catalog.NewCachedProvider(pg, rdb, cfg.Cache.Prefix, cfg.Cache.TTL)
		b.close = func() {
			_ = rdb.Close()
			pool.Close()
		}
	}
	return b, nil
}
