package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pcq_backend/internal/config"
	"pcq_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret-with-32-chars!"

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{S2S: config.S2SConfig{Secret: testSecret}}

	r := gin.New()
	r.GET("/submit", ServiceAuthMiddleware(cfg), AllowServices("pcq_frontend"), func(c *gin.Context) {
		c.String(http.StatusOK, util.GetServiceFromContext(c))
	})
	r.GET("/nobody", ServiceAuthMiddleware(cfg), AllowServices(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func serve(r *gin.Engine, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set(util.ServiceAuthorizationHeader, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestServiceAuth(t *testing.T) {
	r := newAuthRouter()

	frontend, err := util.GenerateServiceToken("pcq_frontend", testSecret, time.Minute)
	require.NoError(t, err)
	stranger, err := util.GenerateServiceToken("ccd_data", testSecret, time.Minute)
	require.NoError(t, err)
	forged, err := util.GenerateServiceToken("pcq_frontend", "some-other-secret-of-32-characters", time.Minute)
	require.NoError(t, err)
	expired, err := util.GenerateServiceToken("pcq_frontend", testSecret, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"no header", "/submit", "", http.StatusUnauthorized},
		{"garbage token", "/submit", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "/submit", "Bearer " + forged, http.StatusUnauthorized},
		{"expired", "/submit", "Bearer " + expired, http.StatusUnauthorized},
		{"service not allowed", "/submit", "Bearer " + stranger, http.StatusForbidden},
		{"allowed with bearer prefix", "/submit", "Bearer " + frontend, http.StatusOK},
		{"allowed without prefix", "/submit", frontend, http.StatusOK},
		{"empty allow list", "/nobody", "Bearer " + frontend, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, tt.path, tt.header)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestServiceAuth_ExposesCallerName(t *testing.T) {
	r := newAuthRouter()
	token, err := util.GenerateServiceToken("pcq_frontend", testSecret, time.Minute)
	require.NoError(t, err)

	w := serve(r, "/submit", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pcq_frontend", w.Body.String())
}
