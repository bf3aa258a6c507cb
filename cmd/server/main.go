package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/catalog"
	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/config"
	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
	_ "github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core/imports" // Register all import types
	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/logging"
	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	pool, err := catalog.OpenPool(ctx, catalog.PoolConfig{
		URL:             cfg.Database.URL,
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	store := catalog.NewPostgres(pool)
	if cfg.Database.EnsureSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("failed to create schema", "error", err)
			os.Exit(1)
		}
	}

	// The schema provider is cached in Redis when configured; the store
	// always talks to Postgres directly.
	var provider core.CatalogSchemaProvider = store
	if cfg.Cache.Enabled() {
		rdb, err := catalog.NewRedisClient(cfg.Cache.RedisURL)
		if err != nil {
			slog.Error("invalid redis url", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, schema reads fall back to postgres", "error", err)
		}
		provider = catalog.NewCachedProvider(store, rdb, cfg.Cache.Prefix, cfg.Cache.TTL)
		slog.Info("catalog schema cache enabled", "ttl", cfg.Cache.TTL)
	}

	for _, def := range core.ImportTypes() {
		slog.Debug("import type registered", "type", def.Type, "label", def.Label)
	}

	server := web.NewServer(cfg, web.Deps{
		Catalog: provider,
		Store:   store,
		Pinger:  store,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		limiter := server.Limiter()
		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
