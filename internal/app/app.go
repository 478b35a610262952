// Package app wires configuration, storage and services into one object
// shared by the HTTP server and the command line tool.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tropicaldog17/folio/internal/cache"
	"github.com/tropicaldog17/folio/internal/config"
	"github.com/tropicaldog17/folio/internal/db"
	"github.com/tropicaldog17/folio/internal/engine"
	"github.com/tropicaldog17/folio/internal/repositories"
	"github.com/tropicaldog17/folio/internal/services"
)

const taskQueueCapacity = 32

// App holds every long-lived component.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *db.DB
	Cache  cache.Cache

	Transactions services.TransactionService
	Rebuild      services.RebuildService
	Refresh      services.RefreshService
	Reporting    services.ReportingService
	Tasks        *services.TaskQueue

	closers []func() error
}

// New connects to storage and builds the services described by cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	database, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a := &App{Config: cfg, Logger: logger, DB: database}
	a.closers = append(a.closers, database.Close)

	c, err := newCache(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Cache = c
	if r, ok := c.(*cache.Redis); ok {
		a.closers = append(a.closers, r.Close)
	}
	keys := cache.Keys{Prefix: "folio"}

	var provider services.MarketDataProvider
	switch cfg.MarketDataProvider {
	case config.ProviderMock:
		provider = services.NewMockProvider()
	default:
		provider = services.NewYahooProvider(cfg.MarketDataRPS, cfg.FetchTimeout, logger.Named("yahoo"))
	}

	txRepo := repositories.NewTransactionRepository(database)
	tickerRepo := repositories.NewTickerRepository(database)
	priceRepo := repositories.NewPriceRepository(database)
	positionRepo := repositories.NewPositionRepository(database)
	historyRepo := repositories.NewHistoryRepository(database)

	opts := engine.Options{
		BaseCurrency: cfg.BaseCurrency,
		Policy:       cfg.FXPolicy,
		MaxLagDays:   cfg.FXMaxLagDays,
	}
	fx := services.NewFXService(provider, priceRepo, tickerRepo, cfg.FetchTimeout, cfg.MarketDataLookbackDays, logger.Named("fx"))

	a.Transactions = services.NewTransactionService(txRepo)
	a.Rebuild = services.NewRebuildService(services.RebuildDeps{
		Transactions: txRepo,
		Tickers:      tickerRepo,
		Prices:       priceRepo,
		Positions:    positionRepo,
		History:      historyRepo,
		FX:           fx,
		Cache:        c,
		Keys:         keys,
		CacheTTL:     cfg.CacheTTL,
	}, opts, logger.Named("rebuild"))
	a.Refresh = services.NewRefreshService(provider, txRepo, tickerRepo, priceRepo, c, keys, cfg.MarketDataLookbackDays, logger.Named("refresh"))
	a.Reporting = services.NewReportingService(services.ReportingDeps{
		Positions: positionRepo,
		History:   historyRepo,
		Prices:    priceRepo,
		Cache:     c,
		Keys:      keys,
	}, opts, logger.Named("reporting"))
	a.Tasks = services.NewTaskQueue(taskQueueCapacity, 0, logger.Named("tasks"))
	return a, nil
}

// Migrate brings the schema up to date: embedded SQL migrations on postgres,
// model auto-migration on sqlite.
func Migrate(cfg *config.Config, database *db.DB, logger *zap.Logger) error {
	if cfg.DB.Driver == db.DriverSQLite {
		if err := database.AutoMigrate(); err != nil {
			return fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
		return nil
	}
	if _, err := db.RunMigrations(cfg.DB, logger); err != nil {
		return err
	}
	return nil
}

// Close stops the task queue, letting queued work finish, then releases
// connections.
func (a *App) Close() {
	if a.Tasks != nil {
		a.Tasks.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("Close failed", zap.Error(err))
		}
	}
}

func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.CacheBackend == config.CacheRedis {
		r, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return r, nil
	}
	return cache.NewMemory(cfg.CacheTTL), nil
}
