package metrics

import (
	"sync"

	"github.com/go-authgate/appgrant/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is an alias for core.Recorder.
type Recorder = core.Recorder

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// App registry metrics
	AppsCreatedTotal  *prometheus.CounterVec
	AppsDeletedTotal  *prometheus.CounterVec
	IDCollisionsTotal *prometheus.CounterVec

	// Binding metrics
	BindsTotal         *prometheus.CounterVec
	BindDuration       prometheus.Histogram
	SecretAuthTotal    *prometheus.CounterVec
	TokensIssuedTotal  *prometheus.CounterVec
	TokenVerifiedTotal *prometheus.CounterVec

	// Frequency ranking metrics
	ScoreRefreshRowsTotal prometheus.Counter
	ScoreRefreshDuration  prometheus.Histogram

	// Object store metrics
	ObjectStoreCallsTotal   *prometheus.CounterVec
	ObjectStoreCallDuration *prometheus.HistogramVec

	// HTTP Request Metrics (ops server)
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	m := &Metrics{
		AppsCreatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appgrant_apps_created_total",
				Help: "Total number of app registrations",
			},
			[]string{"result"}, // success, error
		),
		AppsDeletedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appgrant_apps_deleted_total",
				Help: "Total number of app deletions",
			},
			[]string{"result"}, // success, error
		),
		IDCollisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appgrant_id_collisions_total",
				Help: "Random identifiers that collided with an existing row and were redrawn",
			},
			[]string{"entity"}, // app, user_app
		),

		BindsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appgrant_binds_total",
				Help: "Total number of user-app bind requests",
			},
			[]string{"result"}, // created, rebound, error
		),
		BindDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "appgrant_bind_duration_seconds",
				Help:    "Time taken to bind a user to an app and issue the auth code",
				Buckets: prometheus.DefBuckets,
			},
		),
		SecretAuthTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appgrant_secret_auth_total",
				Help: "Total number of app secret authorization attempts",
			},
			[]string{"result"}, // success, bad_secret, unbound, rate_limited, error
		),
		TokensIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appgrant_tokens_issued_total",
				Help: "Total number of signed tokens issued",
			},
			[]string{"kind"}, // AUTH_CODE, LOGIN_TOKEN
		),
		TokenVerifiedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appgrant_tokens_verified_total",
				Help: "Total number of token verifications",
			},
			[]string{"kind", "result"}, // valid, expired, invalid, stale
		),

		ScoreRefreshRowsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "appgrant_score_refresh_rows_total",
				Help: "Relation rows brought current by the frequency refresh job",
			},
		),
		ScoreRefreshDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "appgrant_score_refresh_duration_seconds",
				Help:    "Duration of a full frequency refresh run",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
		),

		ObjectStoreCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appgrant_object_store_calls_total",
				Help: "Total number of object store calls",
			},
			[]string{"operation", "result"},
		),
		ObjectStoreCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "appgrant_object_store_call_duration_seconds",
				Help:    "Object store call latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),

		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors",
			},
			[]string{"operation"},
		),
	}

	return m
}
