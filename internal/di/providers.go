package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/DavidFlautero/felxeasy/internal/app"
	"github.com/DavidFlautero/felxeasy/internal/config"
	"github.com/DavidFlautero/felxeasy/internal/database"
	"github.com/DavidFlautero/felxeasy/internal/http/handler"
	"github.com/DavidFlautero/felxeasy/internal/http/middleware"
	"github.com/DavidFlautero/felxeasy/internal/http/router"
	"github.com/DavidFlautero/felxeasy/internal/observability"
	"github.com/DavidFlautero/felxeasy/internal/repository"
	"github.com/DavidFlautero/felxeasy/internal/security"
	"github.com/DavidFlautero/felxeasy/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	observability.NewLogger,
	provideRuntime,
)

var RuntimeInfraSet = wire.NewSet(
	provideDB,
	provideRedis,
)

var RepositorySet = wire.NewSet(
	repository.NewSessionRepository,
	repository.NewCaptureRepository,
	repository.NewCredentialRepository,
)

var SecuritySet = wire.NewSet(
	provideSealer,
	provideTokenManager,
)

var ServiceSet = wire.NewSet(
	providePresenceTracker,
	provideRelayService,
	service.NewCaptureService,
	provideCredentialVault,
	provideExportService,
	provideReconciler,
)

var HTTPSet = wire.NewSet(
	handler.NewRobotHandler,
	handler.NewCaptureHandler,
	handler.NewCredentialHandler,
	provideHealthHandler,
	provideWorkerAuth,
	provideRouterDependencies,
	router.New,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

func provideRuntime(cfg *config.Config, logger *slog.Logger) (*observability.Runtime, error) {
	return observability.InitRuntime(context.Background(), cfg, logger)
}

func provideDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRedis(cfg *config.Config) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	client.AddHook(observability.NewRedisMetricsHook())
	return client, nil
}

func provideSealer(cfg *config.Config) (*security.CredentialSealer, error) {
	if cfg.CredentialSealKey == "" {
		return nil, nil
	}
	return security.NewCredentialSealer(cfg.CredentialSealKey)
}

func provideTokenManager(cfg *config.Config) *security.WorkerTokenManager {
	return security.NewWorkerTokenManager(cfg.WorkerTokenIssuer, cfg.WorkerTokenSecret)
}

func providePresenceTracker(client redis.UniversalClient, cfg *config.Config) service.PresenceTracker {
	return service.NewRedisPresenceTracker(client, "presence", cfg.WorkerOfflineAfter)
}

func provideRelayService(
	sessions repository.SessionRepository,
	captures repository.CaptureRepository,
	presence service.PresenceTracker,
	logger *slog.Logger,
) service.RelayService {
	return service.NewRelayService(sessions, captures, presence, logger)
}

func provideCredentialVault(
	creds repository.CredentialRepository,
	sealer *security.CredentialSealer,
	logger *slog.Logger,
) service.CredentialVault {
	return service.NewCredentialVault(creds, sealer, logger)
}

func provideExportService(cfg *config.Config, captures repository.CaptureRepository) (service.ExportService, error) {
	if !cfg.ExportEnabled {
		return service.NewDisabledExportService(), nil
	}
	return service.NewMinIOExportService(
		cfg.ExportEndpoint,
		cfg.ExportAccessKey,
		cfg.ExportSecretKey,
		cfg.ExportBucket,
		cfg.ExportUseSSL,
		cfg.ExportURLTTL,
		captures,
	)
}

func provideReconciler(
	sessions repository.SessionRepository,
	presence service.PresenceTracker,
	cfg *config.Config,
	logger *slog.Logger,
) *service.StaleSessionReconciler {
	return service.NewStaleSessionReconciler(sessions, presence, cfg.WorkerOfflineAfter, cfg.ReconcileInterval, logger)
}

func provideHealthHandler(db *gorm.DB, client redis.UniversalClient) *handler.HealthHandler {
	return handler.NewHealthHandler(db, client)
}

func provideWorkerAuth(cfg *config.Config, tokens *security.WorkerTokenManager) *middleware.WorkerAuth {
	return middleware.NewWorkerAuth(tokens, cfg.WorkerAuthEnabled)
}

func provideRouterDependencies(
	robots *handler.RobotHandler,
	captures *handler.CaptureHandler,
	credentials *handler.CredentialHandler,
	health *handler.HealthHandler,
	workerAuth *middleware.WorkerAuth,
	client redis.UniversalClient,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		RobotHandler:      robots,
		CaptureHandler:    captures,
		CredentialHandler: credentials,
		HealthHandler:     health,
		WorkerAuth:        workerAuth,
		RobotLimiter:      middleware.NewRedisFixedWindowLimiter(client, "rl:robots"),
		APILimiter:        middleware.NewRedisFixedWindowLimiter(client, "rl:api"),
		RobotRateLimitRPM: cfg.RobotRateLimitPerMin,
		APIRateLimitRPM:   cfg.APIRateLimitPerMin,
		RateLimitFailOpen: cfg.RateLimitFailOpen,
	}
}

func provideHTTPServer(cfg *config.Config, h chi.Router) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// MigrationRunner opens the database and applies the schema, nothing
// else. Used by the migrate subcommand.
type MigrationRunner struct {
	db *gorm.DB
}

func NewMigrationRunner(db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{db: db}
}

func (m *MigrationRunner) Run() error {
	return database.Migrate(m.db)
}
