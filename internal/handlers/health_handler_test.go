package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_HealthAndReady(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, "healthy", health.Services["database"].Status)
	assert.Contains(t, health.Services, "automation")
	assert.Contains(t, health.Services, "activity")

	w = app.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthHandler_WithoutDependencies(t *testing.T) {
	h := NewHealthHandler("dev", nil, nil, nil, nil)
	r := gin.New()
	RegisterHealthRoutes(r, h)
	app := &testApp{router: r}

	w := app.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "disabled", decode[HealthResponse](t, w).Services["database"].Status)

	w = app.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
