package bootstrap

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-authgate/appgrant/internal/config"
	"github.com/go-authgate/appgrant/internal/services"
	"github.com/go-authgate/appgrant/internal/store"

	"github.com/appleboy/graceful"
	"github.com/redis/go-redis/v9"
)

const (
	defaultServerShutdownTimeout = 5 * time.Second
	defaultAuditShutdownTimeout  = 10 * time.Second
	defaultDBCloseTimeout        = 5 * time.Second
	defaultRedisConnTimeout      = 5 * time.Second
	auditCleanupInterval         = 24 * time.Hour
)

// timeoutOrDefault returns d, or def when d is unset
func timeoutOrDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// createOpsServer creates the ops HTTP server instance.
// Returns nil when OPS_ADDR is empty.
func createOpsServer(cfg *config.Config, handler http.Handler) *http.Server {
	if cfg.OpsAddr == "" {
		log.Println("Ops server disabled (OPS_ADDR is empty)")
		return nil
	}
	return &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the ops HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	if srv == nil {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			log.Printf("Ops server listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("Failed to start ops server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds ops HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, cfg *config.Config, srv *http.Server) {
	if srv == nil {
		return
	}

	m.AddShutdownJob(func() error {
		log.Println("Shutting down ops server...")
		ctx, cancel := context.WithTimeout(
			context.Background(),
			timeoutOrDefault(cfg.ServerShutdownTimeout, defaultServerShutdownTimeout),
		)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Ops server forced to shutdown: %v", err)
			return err
		}

		log.Println("Ops server exited")
		return nil
	})
}

// addFrequencyRefreshJob adds the periodic frequency score refresh job
func addFrequencyRefreshJob(
	m *graceful.Manager,
	cfg *config.Config,
	frequencyService *services.FrequencyService,
) {
	if cfg.FrequencyRefreshInterval <= 0 {
		log.Println("Frequency refresh job disabled")
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.FrequencyRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runFrequencyRefresh(ctx, frequencyService)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// runFrequencyRefresh decays every relation's score once
func runFrequencyRefresh(ctx context.Context, frequencyService *services.FrequencyService) {
	if _, err := frequencyService.RefreshAll(ctx); err != nil && ctx.Err() == nil {
		log.Printf("Failed to refresh frequency scores: %v", err)
	}
}

// addAuditLogCleanupJob adds periodic audit log cleanup job
func addAuditLogCleanupJob(
	m *graceful.Manager,
	cfg *config.Config,
	auditService *services.AuditService,
) {
	if !cfg.EnableAuditLogging || cfg.AuditLogRetention <= 0 {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(auditCleanupInterval)
		defer ticker.Stop()

		// Run cleanup immediately on startup
		cleanupAuditLogs(ctx, auditService, cfg.AuditLogRetention)

		for {
			select {
			case <-ticker.C:
				cleanupAuditLogs(ctx, auditService, cfg.AuditLogRetention)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

func cleanupAuditLogs(
	ctx context.Context,
	auditService *services.AuditService,
	retention time.Duration,
) {
	if deleted, err := auditService.CleanupOldLogs(ctx, retention); err != nil {
		log.Printf("Failed to cleanup old audit logs: %v", err)
	} else if deleted > 0 {
		log.Printf("Cleaned up %d old audit logs", deleted)
	}
}

// addStoreShutdownJob flushes the audit service, then closes the database.
// Both live in one job so the final audit batch is written before the pool closes.
func addStoreShutdownJob(
	m *graceful.Manager,
	cfg *config.Config,
	auditService *services.AuditService,
	db *store.Store,
) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down audit service...")
		auditCtx, cancel := context.WithTimeout(
			context.Background(),
			timeoutOrDefault(cfg.AuditShutdownTimeout, defaultAuditShutdownTimeout),
		)
		defer cancel()

		auditErr := auditService.Shutdown(auditCtx)
		if auditErr != nil {
			log.Printf("Error shutting down audit service: %v", auditErr)
		}

		log.Println("Closing database connection...")
		dbCtx, dbCancel := context.WithTimeout(
			context.Background(),
			timeoutOrDefault(cfg.DBCloseTimeout, defaultDBCloseTimeout),
		)
		defer dbCancel()

		dbErr := db.Close(dbCtx)
		if dbErr != nil {
			log.Printf("Error closing database: %v", dbErr)
		} else {
			log.Println("Database connection closed")
		}
		return errors.Join(auditErr, dbErr)
	})
}

// addRedisClientShutdownJob adds Redis client shutdown handler
func addRedisClientShutdownJob(m *graceful.Manager, redisClient *redis.Client) {
	if redisClient == nil {
		return
	}

	m.AddShutdownJob(func() error {
		log.Println("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
			return err
		}
		log.Println("Redis connection closed")
		return nil
	})
}

// addCacheCleanupJob adds cache cleanup on shutdown
func addCacheCleanupJob(m *graceful.Manager, cacheCloser func() error) {
	if cacheCloser == nil {
		return
	}

	m.AddShutdownJob(func() error {
		if err := cacheCloser(); err != nil {
			log.Printf("Error closing app cache: %v", err)
		} else {
			log.Println("App cache closed")
		}
		return nil
	})
}
