package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// StoreType defines the type of rate limit store
type StoreType string

const (
	// StoreMemory uses in-memory storage (single instance only)
	StoreMemory StoreType = "memory"
	// StoreRedis uses Redis storage (distributed, multi-pod support)
	StoreRedis StoreType = "redis"
)

// Config holds the configuration for a keyed rate limiter
type Config struct {
	Limit           int           // Attempts allowed per Period for one key
	Period          time.Duration // Window length (default: 1 minute)
	Prefix          string        // Key prefix inside the store
	CleanupInterval time.Duration // How often to cleanup (only for memory store)

	StoreType StoreType // "memory" or "redis"

	// RedisClient is required when StoreType = "redis"
	RedisClient *redis.Client
}

// Limiter counts attempts per key within a fixed window.
type Limiter struct {
	instance *limiter.Limiter
}

// New creates a limiter with the configured store backend.
func New(cfg Config) (*Limiter, error) {
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", cfg.Limit)
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "ratelimit"
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	rate := limiter.Rate{
		Period: cfg.Period,
		Limit:  int64(cfg.Limit),
	}

	var store limiter.Store
	var err error

	switch cfg.StoreType {
	case StoreRedis:
		if cfg.RedisClient == nil {
			return nil, errors.New("redis client is required for redis rate limit store")
		}
		store, err = limiterRedis.NewStoreWithOptions(cfg.RedisClient, limiter.StoreOptions{
			Prefix:          cfg.Prefix,
			CleanUpInterval: cfg.CleanupInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}

	case StoreMemory, "":
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          cfg.Prefix,
			CleanUpInterval: cfg.CleanupInterval,
		})

	default:
		return nil, fmt.Errorf("unknown rate limit store: %q", cfg.StoreType)
	}

	return &Limiter{instance: limiter.New(store, rate)}, nil
}

// Allow consumes one attempt for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	lc, err := l.instance.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return !lc.Reached, nil
}

// Unlimited allows every attempt. Used when rate limiting is disabled.
type Unlimited struct{}

// Allow always reports true.
func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }
