package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/DavidFlautero/felxeasy/internal/config"
	"github.com/DavidFlautero/felxeasy/internal/observability"
	"github.com/DavidFlautero/felxeasy/internal/service"
)

// App is the assembled relay: the HTTP server plus the background
// pieces that have a lifecycle of their own.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Server     *http.Server
	Reconciler *service.StaleSessionReconciler

	db      *gorm.DB
	redis   redis.UniversalClient
	runtime *observability.Runtime
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	reconciler *service.StaleSessionReconciler,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	runtime *observability.Runtime,
) *App {
	return &App{
		Config:     cfg,
		Logger:     logger,
		Server:     server,
		Reconciler: reconciler,
		db:         db,
		redis:      redisClient,
		runtime:    runtime,
	}
}

// Close releases the app's long-lived resources. Safe to call after a
// partial startup; every close is attempted.
func (a *App) Close(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("closing redis client", "error", err)
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.Warn("closing database", "error", err)
			}
		}
	}
	if a.runtime != nil {
		if err := a.runtime.Shutdown(ctx); err != nil {
			a.Logger.Warn("shutting down telemetry", "error", err)
		}
	}
}
