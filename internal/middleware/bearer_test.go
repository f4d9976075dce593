package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const testToken = "test-secret-token-123"

func newTestRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", BearerTokenMiddleware(token, "Metrics"), func(c *gin.Context) {
		c.String(http.StatusOK, "metrics")
	})
	return r
}

func TestBearerTokenMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "no token configured", token: "", wantStatus: http.StatusOK, wantBody: "metrics"},
		{
			name:       "valid token",
			token:      testToken,
			header:     "Bearer " + testToken,
			wantStatus: http.StatusOK,
			wantBody:   "metrics",
		},
		{
			name:       "missing header",
			token:      testToken,
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Bearer token required",
		},
		{
			name:       "wrong scheme",
			token:      testToken,
			header:     "Basic " + testToken,
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Bearer token required",
		},
		{
			name:       "empty bearer",
			token:      testToken,
			header:     "Bearer ",
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Bearer token required",
		},
		{
			name:       "invalid token",
			token:      testToken,
			header:     "Bearer wrong-token",
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Invalid token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(tt.token)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, `Bearer realm="Metrics"`, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
