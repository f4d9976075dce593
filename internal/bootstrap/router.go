package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-authgate/appgrant/internal/config"
	"github.com/go-authgate/appgrant/internal/core"
	"github.com/go-authgate/appgrant/internal/metrics"
	"github.com/go-authgate/appgrant/internal/middleware"
	"github.com/go-authgate/appgrant/internal/models"
	"github.com/go-authgate/appgrant/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthCheckTimeout = 2 * time.Second

// setupOpsRouter builds the router for the ops listener. It only carries health
// and metrics; the subsystem has no public HTTP surface.
func setupOpsRouter(
	cfg *config.Config,
	db *store.Store,
	appCache core.Cache[models.App],
	prometheusMetrics core.Recorder,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Setup metrics middleware (must be first to capture all requests)
	r.Use(metrics.HTTPMetricsMiddleware(prometheusMetrics))
	r.Use(gin.Recovery())

	// Health check endpoint
	r.GET("/healthz", createHealthCheckHandler(db, appCache))

	// Setup metrics endpoint
	setupMetricsEndpoint(r, cfg)

	return r
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.BearerTokenMiddleware(cfg.MetricsToken, "Metrics"),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// createHealthCheckHandler reports database and app cache reachability
func createHealthCheckHandler(db *store.Store, appCache core.Cache[models.App]) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		body := gin.H{
			"status":   "healthy",
			"database": "connected",
			"cache":    "connected",
		}

		if err := db.Health(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["database"] = "disconnected"
		}
		if appCache != nil {
			if err := appCache.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "unhealthy"
				body["cache"] = "disconnected"
			}
		}

		c.JSON(status, body)
	}
}
