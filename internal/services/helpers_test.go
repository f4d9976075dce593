package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-authgate/appgrant/internal/cache"
	"github.com/go-authgate/appgrant/internal/config"
	"github.com/go-authgate/appgrant/internal/core"
	"github.com/go-authgate/appgrant/internal/metrics"
	"github.com/go-authgate/appgrant/internal/models"
	"github.com/go-authgate/appgrant/internal/objectstore"
	"github.com/go-authgate/appgrant/internal/ratelimit"
	"github.com/go-authgate/appgrant/internal/store"
	"github.com/go-authgate/appgrant/internal/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testTokenSecret = "services-test-secret-0123456789abcdef"

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	// Use in-memory SQLite database for testing
	s, err := store.New(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func testConfig() *config.Config {
	return &config.Config{
		AuthCodeExpiration:   5 * time.Minute,
		LoginTokenExpiration: 720 * time.Hour,
		AppIDMaxAttempts:     32,
		AppCacheTTL:          5 * time.Minute,
		FrequencyIncrement:   1.0,
		FrequencyHalfLife:    168 * time.Hour,
		FrequencyMinScore:    0.01,
		FrequencyBatchSize:   2,
	}
}

// testClock is a settable clock shared by the services and the codec.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testEnv wires every service over one in-memory store.
type testEnv struct {
	store     *store.Store
	cfg       *config.Config
	clock     *testClock
	objects   *objectstore.MemoryStore
	catalog   *ScopeCatalog
	apps      *AppService
	frequency *FrequencyService
	binding   *BindingService
	codec     *token.Codec
}

type envOption func(*envSetup)

type envSetup struct {
	objects  core.ObjectStore
	appCache core.Cache[models.App]
	limiter  SecretLimiter
	metrics  core.Recorder
}

func withObjectStore(o core.ObjectStore) envOption {
	return func(e *envSetup) { e.objects = o }
}

func withAppCache(c core.Cache[models.App]) envOption {
	return func(e *envSetup) { e.appCache = c }
}

func withLimiter(l SecretLimiter) envOption {
	return func(e *envSetup) { e.limiter = l }
}

func withMetrics(m core.Recorder) envOption {
	return func(e *envSetup) { e.metrics = m }
}

// queryErrorRecorder counts database query errors by operation.
type queryErrorRecorder struct {
	*metrics.NoopMetrics

	mu     sync.Mutex
	failed map[string]int
}

func newQueryErrorRecorder() *queryErrorRecorder {
	return &queryErrorRecorder{
		NoopMetrics: &metrics.NoopMetrics{},
		failed:      make(map[string]int),
	}
}

func (r *queryErrorRecorder) RecordDatabaseQueryError(operation string) {
	r.mu.Lock()
	r.failed[operation]++
	r.mu.Unlock()
}

func (r *queryErrorRecorder) count(operation string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed[operation]
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	memObjects := objectstore.NewMemoryStore("https://cdn.example.com")
	setup := &envSetup{
		objects:  memObjects,
		appCache: cache.NewMemoryCache[models.App](),
		limiter:  ratelimit.Unlimited{},
		metrics:  metrics.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(setup)
	}

	s := setupTestStore(t)
	cfg := testConfig()
	clock := newTestClock()
	m := setup.metrics
	audit := NewAuditService(s, false, 0)

	codec := token.NewCodec(testTokenSecret, token.WithClock(clock.Now))
	catalog := NewScopeCatalog(s)
	apps := NewAppService(s, cfg, catalog, setup.objects, setup.appCache, audit, m)
	apps.now = clock.Now
	frequency := NewFrequencyService(s, cfg, audit, m)
	frequency.now = clock.Now
	binding := NewBindingService(s, cfg, apps, frequency, codec, setup.limiter, audit, m)
	binding.now = clock.Now

	return &testEnv{
		store:     s,
		cfg:       cfg,
		clock:     clock,
		objects:   memObjects,
		catalog:   catalog,
		apps:      apps,
		frequency: frequency,
		binding:   binding,
		codec:     codec,
	}
}

func makeTestUser(t *testing.T, s *store.Store) *models.User {
	t.Helper()
	u := &models.User{
		ID:       uuid.New().String(),
		Username: "testuser-" + uuid.New().String()[:8],
		Nickname: "Tester",
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func makeTestScope(t *testing.T, env *testEnv, name string) *models.Scope {
	t.Helper()
	scope, err := env.catalog.Create(context.Background(), name, name+" desc", nil)
	require.NoError(t, err)
	return scope
}

func makeTestApp(t *testing.T, env *testEnv, ownerID, name string, scopeIDs ...uint) *models.App {
	t.Helper()
	app, err := env.apps.Create(context.Background(), CreateAppRequest{
		Name:        name,
		Description: "test app",
		RedirectURI: "https://example.com/callback",
		ScopeIDs:    scopeIDs,
		OwnerID:     ownerID,
	})
	require.NoError(t, err)
	return app
}

// callFetchFn is a DoAndReturn helper that invokes the cache fetch function,
// simulating a cache miss where the real DB fetch is executed.
func callFetchFn[T any](
	ctx context.Context,
	key string,
	_ time.Duration,
	fn func(context.Context, string) (T, error),
) (T, error) {
	return fn(ctx, key)
}

// failWritesTo makes every create or update statement against table fail.
func failWritesTo(t *testing.T, env *testEnv, table string) {
	t.Helper()
	fail := func(tx *gorm.DB) {
		target := tx.Statement.Table
		if tx.Statement.Schema != nil && target == "" {
			target = tx.Statement.Schema.Table
		}
		if target == table {
			_ = tx.AddError(fmt.Errorf("write to %s rejected", table))
		}
	}

	callbacks := env.store.DB().Callback()
	require.NoError(t, callbacks.Create().Before("gorm:create").Register("test:fail_create_"+table, fail))
	require.NoError(t, callbacks.Update().Before("gorm:update").Register("test:fail_update_"+table, fail))
}
