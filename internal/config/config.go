package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database driver constants
const (
	DatabaseDriverSQLite   = "sqlite"
	DatabaseDriverPostgres = "postgres"
	DatabaseDriverMySQL    = "mysql"
)

// Rate limit store constants
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// App cache type constants
const (
	AppCacheTypeMemory     = "memory"
	AppCacheTypeRedis      = "redis"
	AppCacheTypeRedisAside = "redis-aside"
)

// Object store mode constants
const (
	ObjectStoreModeMemory = "memory"
	ObjectStoreModeHTTP   = "http"
)

// DefaultRequiredScopes are the scopes every deployment must carry.
var DefaultRequiredScopes = []string{
	"readBaseInfo",
	"writeBaseInfo",
	"sendEmail",
	"sendMobile",
	"readMyAppList",
}

type Config struct {
	// Database
	DatabaseDriver string // "sqlite", "postgres" or "mysql"
	DatabaseDSN    string // Database connection string (DSN or path)
	DBInitTimeout  time.Duration
	DBCloseTimeout time.Duration

	// Token settings
	TokenSecret          string
	AuthCodeExpiration   time.Duration // AUTH_CODE lifetime (default: 5m)
	LoginTokenExpiration time.Duration // LOGIN_TOKEN lifetime (default: 720h = 30 days)

	// App registry
	AppIDMaxAttempts int // Insert attempts before giving up on a fresh app id

	// Scope catalog
	RequiredScopes []string
	SeedScopes     bool // Create missing required scopes at startup

	// Object store (app logos)
	ObjectStoreMode               string // "memory" or "http"
	ObjectStoreAPIURL             string
	ObjectStorePublicURL          string
	ObjectStoreTimeout            time.Duration
	ObjectStoreInsecureSkipVerify bool
	ObjectStoreAuthMode           string // Authentication mode: "none", "simple", or "hmac"
	ObjectStoreAuthSecret         string
	ObjectStoreAuthHeader         string // Custom header name for simple mode (default: "X-API-Secret")
	ObjectStoreMaxRetries         int
	ObjectStoreRetryDelay         time.Duration
	ObjectStoreMaxRetryDelay      time.Duration

	// App cache
	AppCacheType      string // "memory", "redis" or "redis-aside"
	AppCacheTTL       time.Duration
	AppCacheClientTTL time.Duration // redis-aside client-side TTL
	AppCacheSizeMB    int           // redis-aside client-side cache size per connection

	// Redis
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisConnTimeout  time.Duration
	RedisCloseTimeout time.Duration

	// Secret authentication rate limiting
	EnableRateLimit bool
	SecretRateLimit int    // attempts per minute per user-app handle
	RateLimitStore  string // "memory" or "redis"

	// Frequency ranking
	FrequencyIncrement       float64
	FrequencyHalfLife        time.Duration
	FrequencyMinScore        float64
	FrequencyRefreshInterval time.Duration // 0 disables the background refresh job
	FrequencyBatchSize       int

	// Ops server
	MetricsEnabled        bool
	MetricsToken          string // Bearer token for /metrics (empty = open)
	OpsAddr               string
	ServerShutdownTimeout time.Duration

	// Audit logging
	EnableAuditLogging   bool
	AuditLogBufferSize   int
	AuditLogRetention    time.Duration
	AuditShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", DatabaseDriverSQLite)
	var dsn string
	if driver == DatabaseDriverSQLite {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "appgrant.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		DatabaseDriver: driver,
		DatabaseDSN:    dsn,
		DBInitTimeout:  getEnvDuration("DB_INIT_TIMEOUT", 30*time.Second),
		DBCloseTimeout: getEnvDuration("DB_CLOSE_TIMEOUT", 5*time.Second),

		TokenSecret:          getEnv("TOKEN_SECRET", "your-256-bit-secret-change-in-production"),
		AuthCodeExpiration:   getEnvDuration("AUTH_CODE_EXPIRATION", 5*time.Minute),
		LoginTokenExpiration: getEnvDuration("LOGIN_TOKEN_EXPIRATION", 720*time.Hour),

		AppIDMaxAttempts: getEnvInt("APP_ID_MAX_ATTEMPTS", 32),

		RequiredScopes: getEnvSlice("REQUIRED_SCOPES", DefaultRequiredScopes),
		SeedScopes:     getEnvBool("SEED_SCOPES", true),

		ObjectStoreMode:               getEnv("OBJECT_STORE_MODE", ObjectStoreModeMemory),
		ObjectStoreAPIURL:             getEnv("OBJECT_STORE_API_URL", ""),
		ObjectStorePublicURL:          getEnv("OBJECT_STORE_PUBLIC_URL", ""),
		ObjectStoreTimeout:            getEnvDuration("OBJECT_STORE_TIMEOUT", 10*time.Second),
		ObjectStoreInsecureSkipVerify: getEnvBool("OBJECT_STORE_INSECURE_SKIP_VERIFY", false),
		ObjectStoreAuthMode:           getEnv("OBJECT_STORE_AUTH_MODE", "none"),
		ObjectStoreAuthSecret:         getEnv("OBJECT_STORE_AUTH_SECRET", ""),
		ObjectStoreAuthHeader:         getEnv("OBJECT_STORE_AUTH_HEADER", "X-API-Secret"),
		ObjectStoreMaxRetries:         getEnvInt("OBJECT_STORE_MAX_RETRIES", 3),
		ObjectStoreRetryDelay:         getEnvDuration("OBJECT_STORE_RETRY_DELAY", 1*time.Second),
		ObjectStoreMaxRetryDelay: getEnvDuration(
			"OBJECT_STORE_MAX_RETRY_DELAY",
			10*time.Second,
		),

		AppCacheType:      getEnv("APP_CACHE_TYPE", AppCacheTypeMemory),
		AppCacheTTL:       getEnvDuration("APP_CACHE_TTL", 5*time.Minute),
		AppCacheClientTTL: getEnvDuration("APP_CACHE_CLIENT_TTL", 30*time.Second),
		AppCacheSizeMB:    getEnvInt("APP_CACHE_SIZE_PER_CONN", 32),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RedisConnTimeout:  getEnvDuration("REDIS_CONN_TIMEOUT", 5*time.Second),
		RedisCloseTimeout: getEnvDuration("REDIS_CLOSE_TIMEOUT", 5*time.Second),

		EnableRateLimit: getEnvBool("ENABLE_RATE_LIMIT", true),
		SecretRateLimit: getEnvInt("SECRET_RATE_LIMIT", 10),
		RateLimitStore:  getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),

		FrequencyIncrement:       getEnvFloat("FREQUENCY_INCREMENT", 1.0),
		FrequencyHalfLife:        getEnvDuration("FREQUENCY_HALF_LIFE", 168*time.Hour),
		FrequencyMinScore:        getEnvFloat("FREQUENCY_MIN_SCORE", 0.01),
		FrequencyRefreshInterval: getEnvDuration("FREQUENCY_REFRESH_INTERVAL", 24*time.Hour),
		FrequencyBatchSize:       getEnvInt("FREQUENCY_BATCH_SIZE", 500),

		MetricsEnabled:        getEnvBool("METRICS_ENABLED", false),
		MetricsToken:          getEnv("METRICS_TOKEN", ""),
		OpsAddr:               getEnv("OPS_ADDR", ":9100"),
		ServerShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),

		EnableAuditLogging:   getEnvBool("ENABLE_AUDIT_LOGGING", true),
		AuditLogBufferSize:   getEnvInt("AUDIT_LOG_BUFFER_SIZE", 1000),
		AuditLogRetention:    getEnvDuration("AUDIT_LOG_RETENTION", 90*24*time.Hour),
		AuditShutdownTimeout: getEnvDuration("AUDIT_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Validate checks the configuration for settings the process cannot run with.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DatabaseDriverSQLite, DatabaseDriverPostgres, DatabaseDriverMySQL:
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER value: %q", c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN must not be empty")
	}

	if c.TokenSecret == "" {
		return errors.New("TOKEN_SECRET must not be empty")
	}
	if c.AuthCodeExpiration <= 0 {
		return fmt.Errorf("invalid AUTH_CODE_EXPIRATION value: %s", c.AuthCodeExpiration)
	}
	if c.LoginTokenExpiration <= 0 {
		return fmt.Errorf("invalid LOGIN_TOKEN_EXPIRATION value: %s", c.LoginTokenExpiration)
	}
	if c.AppIDMaxAttempts < 1 {
		return fmt.Errorf("invalid APP_ID_MAX_ATTEMPTS value: %d", c.AppIDMaxAttempts)
	}

	switch c.ObjectStoreMode {
	case ObjectStoreModeMemory:
	case ObjectStoreModeHTTP:
		if c.ObjectStoreAPIURL == "" {
			return errors.New("OBJECT_STORE_API_URL is required when OBJECT_STORE_MODE=http")
		}
	default:
		return fmt.Errorf("invalid OBJECT_STORE_MODE value: %q", c.ObjectStoreMode)
	}

	switch c.RateLimitStore {
	case RateLimitStoreMemory:
	case RateLimitStoreRedis:
		if c.EnableRateLimit && c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required when RATE_LIMIT_STORE=redis")
		}
	default:
		return fmt.Errorf("invalid RATE_LIMIT_STORE value: %q", c.RateLimitStore)
	}
	if c.EnableRateLimit && c.SecretRateLimit < 1 {
		return fmt.Errorf("invalid SECRET_RATE_LIMIT value: %d", c.SecretRateLimit)
	}

	switch c.AppCacheType {
	case AppCacheTypeMemory:
	case AppCacheTypeRedis, AppCacheTypeRedisAside:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when APP_CACHE_TYPE=%s", c.AppCacheType)
		}
	default:
		return fmt.Errorf("invalid APP_CACHE_TYPE value: %q", c.AppCacheType)
	}
	if c.AppCacheTTL <= 0 {
		return fmt.Errorf("invalid APP_CACHE_TTL value: %s", c.AppCacheTTL)
	}

	if c.FrequencyIncrement <= 0 {
		return fmt.Errorf("invalid FREQUENCY_INCREMENT value: %v", c.FrequencyIncrement)
	}
	if c.FrequencyHalfLife <= 0 {
		return fmt.Errorf("invalid FREQUENCY_HALF_LIFE value: %s", c.FrequencyHalfLife)
	}
	if c.FrequencyMinScore < 0 {
		return fmt.Errorf("invalid FREQUENCY_MIN_SCORE value: %v", c.FrequencyMinScore)
	}
	if c.FrequencyRefreshInterval < 0 {
		return fmt.Errorf(
			"invalid FREQUENCY_REFRESH_INTERVAL value: %s",
			c.FrequencyRefreshInterval,
		)
	}

	if c.EnableAuditLogging && c.AuditLogBufferSize < 1 {
		return fmt.Errorf("invalid AUDIT_LOG_BUFFER_SIZE value: %d", c.AuditLogBufferSize)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		if parts := splitAndTrim(value, ","); len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
