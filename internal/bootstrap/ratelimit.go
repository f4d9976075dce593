package bootstrap

import (
	"fmt"
	"log"
	"time"

	"github.com/go-authgate/appgrant/internal/config"
	"github.com/go-authgate/appgrant/internal/ratelimit"
	"github.com/go-authgate/appgrant/internal/services"

	"github.com/redis/go-redis/v9"
)

const secretLimiterPrefix = "appgrant:secret"

// initializeSecretLimiter builds the per-handle limiter for app secret attempts.
// Accepts an optional go-redis client
func initializeSecretLimiter(
	cfg *config.Config,
	redisClient *redis.Client,
) (services.SecretLimiter, error) {
	if !cfg.EnableRateLimit {
		log.Println("Secret rate limiting disabled")
		return ratelimit.Unlimited{}, nil
	}

	storeType := ratelimit.StoreType(cfg.RateLimitStore)
	if storeType == ratelimit.StoreRedis {
		log.Printf("Using shared Redis client for secret rate limiting")
	} else {
		log.Printf("In-memory secret rate limiting configured (single instance only)")
	}

	limiter, err := ratelimit.New(ratelimit.Config{
		Limit:       cfg.SecretRateLimit,
		Period:      time.Minute,
		Prefix:      secretLimiterPrefix,
		StoreType:   storeType,
		RedisClient: redisClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create secret rate limiter: %w", err)
	}

	log.Printf("Secret rate limiting enabled (%d attempts/min per relation, store: %s)",
		cfg.SecretRateLimit, cfg.RateLimitStore)
	return limiter, nil
}
