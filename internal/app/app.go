// Package app wires configuration, infrastructure and services into the
// components shared by the HTTP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/showads/data-connector/internal/api"
	"github.com/showads/data-connector/internal/api/handler"
	"github.com/showads/data-connector/internal/core/ports"
	"github.com/showads/data-connector/internal/core/service"
	mongojournal "github.com/showads/data-connector/internal/infrastructure/db/mongo"
	redistoken "github.com/showads/data-connector/internal/infrastructure/db/redis"
	"github.com/showads/data-connector/internal/infrastructure/fallback"
	"github.com/showads/data-connector/internal/infrastructure/showads"
	"github.com/showads/data-connector/internal/pkg/clock"
	"github.com/showads/data-connector/internal/pkg/config"
)

// App holds the wired services. Close releases the optional stores.
type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Ingest   ports.IngestService
	Delivery ports.DeliveryService

	checks  []handler.DependencyCheck
	closers []func(context.Context) error
}

// New connects the configured stores and builds the services. Redis and
// MongoDB are only dialled when their address is set.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	var cache ports.TokenCache
	if cfg.Redis.Addr != "" {
		rdb, err := redistoken.Connect(ctx, redistoken.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return nil, fmt.Errorf("token cache: %w", err)
		}
		cache = redistoken.NewTokenCache(rdb)
		a.checks = append(a.checks, handler.DependencyCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		log.Info().Str("addr", cfg.Redis.Addr).Msg("token cache enabled")
	}

	var journal ports.DeliveryJournal
	if cfg.Mongo.URI != "" {
		client, db, err := mongojournal.Connect(ctx, mongojournal.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("delivery journal: %w", err)
		}
		journal = mongojournal.NewDeliveryJournal(db)
		a.checks = append(a.checks, handler.DependencyCheck{
			Name: "mongodb",
			Ping: func(ctx context.Context) error { return client.Ping(ctx, nil) },
		})
		a.closers = append(a.closers, client.Disconnect)
		log.Info().Str("database", cfg.Mongo.Database).Msg("delivery journal enabled")
	}

	clk := clock.Real{}
	client := showads.NewClient(showads.Config{
		BaseURL: cfg.ShowAds.BaseURL,
		Timeout: cfg.ShowAds.HTTPTimeout,
	})
	creds := service.NewCredentialStore(client, cache, cfg.ShowAds.ProjectKey, log)
	store := fallback.NewCSVStore(cfg.Fallback.Dir, clk)

	a.Ingest = service.NewIngestService(cfg.Filter.AgeLimits(), log)
	a.Delivery = service.NewDeliveryService(creds, client, store, journal, clk, log)
	return a, nil
}

// Router builds the HTTP surface on top of the wired services.
func (a *App) Router() *echo.Echo {
	return api.NewRouter(api.RouterDeps{
		Records:   handler.NewRecordHandler(a.Ingest, a.Delivery, a.Log),
		Readiness: handler.NewReadinessHandler(a.checks...),
		Log:       a.Log,
		JWTSecret: a.Config.Ingest.JWTSecret,
	})
}

// Close disconnects the optional stores in reverse order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
