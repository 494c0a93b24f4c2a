package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/finadmin/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func tenantRouter(cfg TenantConfig) *gin.Engine {
	router := gin.New()
	router.Use(TenantWithConfig(cfg))
	handler := func(c *gin.Context) {
		id, ok := GetTenantID(c)
		c.JSON(http.StatusOK, gin.H{
			"tenant":  id.String(),
			"ok":      ok,
			"context": logger.GetTenantID(c.Request.Context()),
		})
	}
	router.GET("/api/v1/finance/payables", handler)
	router.GET("/health", handler)
	return router
}

func TestTenant(t *testing.T) {
	tenantID := uuid.New()

	tests := []struct {
		name     string
		path     string
		header   string
		status   int
		contains string
	}{
		{"valid header", "/api/v1/finance/payables", tenantID.String(), http.StatusOK, tenantID.String()},
		{"missing header", "/api/v1/finance/payables", "", http.StatusBadRequest, "ERR_INVALID_TENANT"},
		{"malformed header", "/api/v1/finance/payables", "acme", http.StatusBadRequest, "ERR_INVALID_TENANT"},
		{"nil uuid", "/api/v1/finance/payables", uuid.Nil.String(), http.StatusBadRequest, "ERR_INVALID_TENANT"},
		{"skipped path", "/health", "", http.StatusOK, `"ok":false`},
	}

	router := tenantRouter(DefaultTenantConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(TenantHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}

func TestTenant_PropagatesToRequestContext(t *testing.T) {
	tenantID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/finance/payables", nil)
	req.Header.Set(TenantHeaderKey, tenantID.String())
	w := httptest.NewRecorder()
	tenantRouter(DefaultTenantConfig()).ServeHTTP(w, req)

	assert.Contains(t, w.Body.String(), `"context":"`+tenantID.String()+`"`)
}

func TestTenant_Optional(t *testing.T) {
	cfg := DefaultTenantConfig()
	cfg.Required = false

	w := httptest.NewRecorder()
	tenantRouter(cfg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/finance/payables", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":false`)
}
