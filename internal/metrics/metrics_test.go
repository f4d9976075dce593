package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	m := Init(true)
	assert.NotNil(t, m)

	// Type assert to concrete Metrics to access fields
	metrics, ok := m.(*Metrics)
	assert.True(t, ok, "Init(true) should return *Metrics")
	assert.NotNil(t, metrics.AppsCreatedTotal)
	assert.NotNil(t, metrics.BindsTotal)
	assert.NotNil(t, metrics.SecretAuthTotal)
	assert.NotNil(t, metrics.HTTPRequestsTotal)

	// Registered once
	assert.Same(t, metrics, Init(true))
}

func TestInitNoop(t *testing.T) {
	m := Init(false)
	assert.NotNil(t, m)

	_, ok := m.(*NoopMetrics)
	assert.True(t, ok, "Init(false) should return *NoopMetrics")

	// All calls are safe no-ops
	m.RecordAppCreated(true)
	m.RecordBind("created", time.Millisecond)
	m.RecordScoreRefresh(3, time.Second)
	m.RecordObjectStoreCall("delete", false, time.Millisecond)
}

func TestRecordAppEvents(t *testing.T) {
	m := Init(true).(*Metrics)

	before := testutil.ToFloat64(m.AppsCreatedTotal.WithLabelValues("success"))
	m.RecordAppCreated(true)
	assert.InDelta(t, before+1, testutil.ToFloat64(m.AppsCreatedTotal.WithLabelValues("success")), 1e-9)

	before = testutil.ToFloat64(m.AppsDeletedTotal.WithLabelValues("error"))
	m.RecordAppDeleted(false)
	assert.InDelta(t, before+1, testutil.ToFloat64(m.AppsDeletedTotal.WithLabelValues("error")), 1e-9)

	before = testutil.ToFloat64(m.IDCollisionsTotal.WithLabelValues("app"))
	m.RecordIDCollision("app")
	assert.InDelta(t, before+1, testutil.ToFloat64(m.IDCollisionsTotal.WithLabelValues("app")), 1e-9)
}

func TestRecordBindingEvents(t *testing.T) {
	m := Init(true).(*Metrics)

	before := testutil.ToFloat64(m.BindsTotal.WithLabelValues("created"))
	m.RecordBind("created", 20*time.Millisecond)
	assert.InDelta(t, before+1, testutil.ToFloat64(m.BindsTotal.WithLabelValues("created")), 1e-9)

	before = testutil.ToFloat64(m.SecretAuthTotal.WithLabelValues("bad_secret"))
	m.RecordSecretAuth("bad_secret")
	assert.InDelta(t, before+1, testutil.ToFloat64(m.SecretAuthTotal.WithLabelValues("bad_secret")), 1e-9)

	before = testutil.ToFloat64(m.TokenVerifiedTotal.WithLabelValues("AUTH_CODE", "expired"))
	m.RecordTokenVerified("AUTH_CODE", "expired")
	assert.InDelta(t, before+1,
		testutil.ToFloat64(m.TokenVerifiedTotal.WithLabelValues("AUTH_CODE", "expired")), 1e-9)

	m.RecordTokenIssued("AUTH_CODE")
}

func TestRecordScoreRefresh(t *testing.T) {
	m := Init(true).(*Metrics)

	before := testutil.ToFloat64(m.ScoreRefreshRowsTotal)
	m.RecordScoreRefresh(5, 200*time.Millisecond)
	assert.InDelta(t, before+5, testutil.ToFloat64(m.ScoreRefreshRowsTotal), 1e-9)
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := Init(true).(*Metrics)

	r := gin.New()
	r.Use(HTTPMetricsMiddleware(m))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200"))

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/healthz", nil)
	require.NoError(t, err)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, before+1,
		testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200")), 1e-9)
}

func TestHTTPMetricsMiddlewareNoop(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(HTTPMetricsMiddleware(NewNoopMetrics()))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/healthz", nil)
	require.NoError(t, err)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
