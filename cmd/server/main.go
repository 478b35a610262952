package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/tropicaldog17/folio/docs"
	"github.com/tropicaldog17/folio/internal/app"
	"github.com/tropicaldog17/folio/internal/config"
	"github.com/tropicaldog17/folio/internal/handlers"
	"github.com/tropicaldog17/folio/internal/logger"
)

func main() {
	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	if err := a.DB.Health(); err != nil {
		log.Fatal("Database health check failed", zap.Error(err))
	}
	if err := app.Migrate(cfg, a.DB, log); err != nil {
		log.Fatal("Database migration failed", zap.Error(err))
	}
	log.Info("Database connection established", zap.String("driver", cfg.DB.Driver))

	router := handlers.NewRouter(handlers.Handlers{
		Transactions: handlers.NewTransactionHandler(a.Transactions),
		Market:       handlers.NewMarketHandler(a.Refresh, a.Tasks),
		Portfolio:    handlers.NewPortfolioHandler(a.Reporting, a.Rebuild, a.Tasks),
		Tasks:        handlers.NewTaskHandler(a.Tasks),
		Health:       a.DB.Health,
		Logger:       log,
	})

	if cfg.RefreshInterval > 0 {
		go scheduleRefresh(ctx, a, log)
	}

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handlers.CORS(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("Server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Server starting", zap.String("port", cfg.ServerPort), zap.String("base_currency", cfg.BaseCurrency))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Server failed", zap.Error(err))
	}
	log.Info("Server stopped")
}

// scheduleRefresh queues a market data refresh followed by a full rebuild
// every REFRESH_INTERVAL until ctx is cancelled.
func scheduleRefresh(ctx context.Context, a *app.App, log *zap.Logger) {
	ticker := time.NewTicker(a.Config.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh := a.Tasks.Submit("scheduled_refresh", func(ctx context.Context) (interface{}, error) {
				return a.Refresh.RefreshAll(ctx)
			})
			rebuild := a.Tasks.Submit("scheduled_rebuild", func(ctx context.Context) (interface{}, error) {
				return a.Rebuild.RebuildAll(ctx, "")
			})
			log.Info("Scheduled refresh queued", zap.String("refresh_task", refresh.ID), zap.String("rebuild_task", rebuild.ID))
		}
	}
}
