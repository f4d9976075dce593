package bootstrap

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-authgate/appgrant/internal/config"
	"github.com/go-authgate/appgrant/internal/core"
	"github.com/go-authgate/appgrant/internal/models"
	"github.com/go-authgate/appgrant/internal/services"
	"github.com/go-authgate/appgrant/internal/store"
	"github.com/go-authgate/appgrant/internal/token"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB                   *store.Store
	MetricsRecorder      core.Recorder
	AppCache             core.Cache[models.App]
	AppCacheCloser       func() error
	ObjectStore          core.ObjectStore
	RateLimitRedisClient *redis.Client
	SecretLimiter        services.SecretLimiter
	Codec                *token.Codec

	// Services
	AuditService     *services.AuditService
	ScopeCatalog     *services.ScopeCatalog
	AppService       *services.AppService
	FrequencyService *services.FrequencyService
	BindingService   *services.BindingService

	// Ops HTTP
	Router *gin.Engine
	Server *http.Server
}

// New validates cfg and builds every component short of the ops server.
// Callers that do not go through Run must call Close.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}

	// Phase 1: Validate configuration
	if err := validateAllConfiguration(cfg); err != nil {
		return nil, err
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(ctx); err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}

	// Phase 3: Initialize business layer
	if err := app.initializeBusinessLayer(ctx); err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}

	return app, nil
}

// Run initializes the application and serves until a shutdown signal arrives
func Run(ctx context.Context, cfg *config.Config) error {
	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}

	// Phase 4: Initialize ops HTTP layer
	app.initializeOpsLayer()

	// Phase 5: Start jobs with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up database, metrics, caches, object store and Redis
func (app *Application) initializeInfrastructure(ctx context.Context) error {
	var err error

	// Database
	app.DB, err = initializeDatabase(ctx, app.Config)
	if err != nil {
		return err
	}

	// Metrics
	app.MetricsRecorder = initializeMetrics(app.Config)

	// App cache
	app.AppCache, app.AppCacheCloser, err = initializeAppCache(ctx, app.Config)
	if err != nil {
		return err
	}

	// Logo object store
	app.ObjectStore, err = initializeObjectStore(app.Config, app.MetricsRecorder)
	if err != nil {
		return err
	}

	// Redis (for rate limiting)
	app.RateLimitRedisClient, err = initializeRateLimitRedisClient(ctx, app.Config)
	if err != nil {
		return err
	}
	app.SecretLimiter, err = initializeSecretLimiter(app.Config, app.RateLimitRedisClient)
	if err != nil {
		return err
	}

	app.Codec = token.NewCodec(app.Config.TokenSecret)
	return nil
}

// initializeBusinessLayer sets up services and loads the scope catalog
func (app *Application) initializeBusinessLayer(ctx context.Context) error {
	// Audit service (required by other services)
	app.AuditService = services.NewAuditService(
		app.DB,
		app.Config.EnableAuditLogging,
		app.Config.AuditLogBufferSize,
	)

	var err error
	app.ScopeCatalog,
		app.AppService,
		app.FrequencyService,
		app.BindingService, err = initializeServices(
		ctx,
		app.Config,
		app.DB,
		app.ObjectStore,
		app.AppCache,
		app.Codec,
		app.SecretLimiter,
		app.AuditService,
		app.MetricsRecorder,
	)
	return err
}

// initializeOpsLayer sets up the metrics and health server
func (app *Application) initializeOpsLayer() {
	app.Router = setupOpsRouter(app.Config, app.DB, app.AppCache, app.MetricsRecorder)
	app.Server = createOpsServer(app.Config, app.Router)
}

// startWithGracefulShutdown starts the jobs and blocks until shutdown completes
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	// Add jobs
	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Config, app.Server)
	addFrequencyRefreshJob(m, app.Config, app.FrequencyService)
	addAuditLogCleanupJob(m, app.Config, app.AuditService)
	addStoreShutdownJob(m, app.Config, app.AuditService, app.DB)
	addRedisClientShutdownJob(m, app.RateLimitRedisClient)
	addCacheCleanupJob(m, app.AppCacheCloser)

	// Wait for graceful shutdown
	<-m.Done()
}

// Close releases everything New acquired. Used by one-shot commands.
func (app *Application) Close(ctx context.Context) error {
	var errs []error

	if app.AuditService != nil {
		auditCtx, cancel := context.WithTimeout(
			ctx,
			timeoutOrDefault(app.Config.AuditShutdownTimeout, defaultAuditShutdownTimeout),
		)
		errs = append(errs, app.AuditService.Shutdown(auditCtx))
		cancel()
	}
	if app.AppCacheCloser != nil {
		errs = append(errs, app.AppCacheCloser())
	}
	if app.RateLimitRedisClient != nil {
		errs = append(errs, app.RateLimitRedisClient.Close())
	}
	if app.DB != nil {
		dbCtx, cancel := context.WithTimeout(
			ctx,
			timeoutOrDefault(app.Config.DBCloseTimeout, defaultDBCloseTimeout),
		)
		errs = append(errs, app.DB.Close(dbCtx))
		cancel()
	}

	if err := errors.Join(errs...); err != nil {
		log.Printf("Error releasing resources: %v", err)
		return err
	}
	return nil
}
