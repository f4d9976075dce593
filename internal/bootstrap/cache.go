package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/go-authgate/appgrant/internal/cache"
	"github.com/go-authgate/appgrant/internal/config"
	"github.com/go-authgate/appgrant/internal/core"
	"github.com/go-authgate/appgrant/internal/metrics"
	"github.com/go-authgate/appgrant/internal/models"
)

const appCacheKeyPrefix = "appgrant:apps:"

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config) core.Recorder {
	prometheusMetrics := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}
	return prometheusMetrics
}

// initializeAppCache initializes the app cache (always enabled, defaults to memory)
func initializeAppCache(
	ctx context.Context,
	cfg *config.Config,
) (core.Cache[models.App], func() error, error) {
	ctx, cancel := context.WithTimeout(
		ctx,
		timeoutOrDefault(cfg.RedisConnTimeout, defaultRedisConnTimeout),
	)
	defer cancel()

	switch cfg.AppCacheType {
	case config.AppCacheTypeRedisAside:
		c, err := cache.NewRueidisAsideCache[models.App](
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			appCacheKeyPrefix,
			cfg.AppCacheClientTTL,
			cfg.AppCacheSizeMB,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis-aside app cache: %w", err)
		}
		if err := c.Health(ctx); err != nil {
			_ = c.Close()
			return nil, nil, fmt.Errorf("failed to reach redis-aside app cache: %w", err)
		}
		log.Printf(
			"App cache: redis-aside (addr=%s, db=%d, client_ttl=%s, cache_size_per_conn=%dMB)",
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.AppCacheClientTTL,
			cfg.AppCacheSizeMB,
		)
		return c, c.Close, nil

	case config.AppCacheTypeRedis:
		c, err := cache.NewRueidisCache[models.App](
			ctx,
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			appCacheKeyPrefix,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis app cache: %w", err)
		}
		log.Printf("App cache: redis (addr=%s, db=%d)", cfg.RedisAddr, cfg.RedisDB)
		return c, c.Close, nil

	default: // memory
		c := cache.NewMemoryCache[models.App]()
		log.Println("App cache: memory (single instance only)")
		return c, c.Close, nil
	}
}
