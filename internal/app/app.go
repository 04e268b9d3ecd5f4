// Package app assembles the service from configuration. Both the HTTP server and the one-shot CLI
// commands build the same App so they share stores, renderers and publishers.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/countrycache/countrycache/backend/handlers"
	"github.com/countrycache/countrycache/countrycache"
	"github.com/countrycache/countrycache/countrycache/config"
	"github.com/countrycache/countrycache/countrycache/database"
	"github.com/countrycache/countrycache/countrycache/database/repositories"
	"github.com/countrycache/countrycache/countrycache/logger"
	"github.com/countrycache/countrycache/countrycache/services"
	"github.com/countrycache/countrycache/internal/domain/countries"
	"github.com/countrycache/countrycache/internal/domain/refresh"
	"github.com/countrycache/countrycache/internal/gateways/external"
	"github.com/countrycache/countrycache/internal/gateways/memory"
)

type App struct {
	Cfg      countrycache.Config
	Version  string
	DB       *database.DB
	Store    countries.Repository
	Service  countries.Service
	Summary  *services.SummaryImageService
	Pipeline *refresh.Pipeline
	Notifier *services.DiscordNotifier
}

// New connects the configured store and wires the refresh pipeline around it.
// With the postgres driver the schema is created when missing.
func New(ctx context.Context, cfg countrycache.Config, version string) (*App, error) {
	a := &App{Cfg: cfg, Version: version}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.Service = countries.NewService(store)

	renderer, err := newRenderer(cfg.Summary.Renderer)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Summary = services.NewSummaryImageService(store, renderer, cfg.Summary.Path, cfg.Summary.TopN)
	logger.LogSystem("Summary image configured",
		slog.String("path", a.Summary.Path()),
		slog.String("renderer", cfg.Summary.Renderer))

	if cfg.Spaces.Enabled() {
		spaces, err := services.NewSpacesService(ctx, cfg.Spaces)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.Summary.WithPublisher(spaces)
		logger.LogSystem("Summary publishing enabled", slog.String("bucket", cfg.Spaces.Bucket))
	}

	opts := []refresh.Option{refresh.WithPruneMissing(*cfg.Refresh.PruneMissing)}
	if cfg.Notify.DiscordWebhookURL != "" {
		notifier, err := services.NewDiscordNotifier(cfg.Notify.DiscordWebhookURL)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.Notifier = notifier
		opts = append(opts, refresh.WithNotifier(notifier))
		logger.LogSystem("Refresh notifications enabled")
	}

	client := external.NewClient(cfg.Sources.CountriesURL, cfg.Sources.RatesURL, cfg.Sources.Timeout())
	estimator := refresh.NewEstimator(refresh.UniformFactor(cfg.GDP.FactorMin, cfg.GDP.FactorMax))
	a.Pipeline = refresh.NewPipeline(client, client, store, estimator, a.Summary, opts...)

	return a, nil
}

func (a *App) openStore(ctx context.Context) (countries.Repository, error) {
	if a.Cfg.DB.Driver == config.DriverMemory {
		logger.LogSystem("Using in-memory country store")
		return memory.NewStore(), nil
	}

	start := time.Now()
	db, err := database.New(ctx, a.Cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err = db.InitializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	a.DB = db

	logger.LogSystem("Database connected",
		slog.String("database", a.Cfg.DB.Database),
		slog.Duration("took", time.Since(start)))

	return repositories.NewCachedCountryRepository(
		repositories.NewCountryRepository(db.BunDB()), a.Cfg.Cache.Size), nil
}

func newRenderer(name string) (services.SummaryRenderer, error) {
	if name == config.RendererChromedp {
		return services.NewChromeRenderer()
	}
	return services.NewRasterRenderer(), nil
}

// WebApp exposes the wired components to the HTTP handlers.
func (a *App) WebApp() *handlers.WebApp {
	return &handlers.WebApp{
		Countries: a.Service,
		Refresher: a.Pipeline,
		Summary:   a.Summary,
		Store:     a.pinger(),
		Version:   a.Version,
	}
}

// pinger checks both database connections when postgres is in use.
func (a *App) pinger() handlers.Pinger {
	if a.DB != nil {
		return a.DB
	}
	return a.Store
}

func (a *App) Close(ctx context.Context) {
	if a.Notifier != nil {
		a.Notifier.Close(ctx)
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
