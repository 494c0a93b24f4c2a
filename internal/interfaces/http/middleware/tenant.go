package middleware

import (
	"net/http"
	"strings"

	"github.com/finadmin/backend/internal/infrastructure/logger"
	"github.com/finadmin/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	TenantIDKey     = "tenant_id"
	TenantHeaderKey = "X-Tenant-ID"
)

// TenantConfig holds configuration for tenant middleware
type TenantConfig struct {
	// SkipPaths are paths served without a tenant, such as health checks
	SkipPaths []string
	// Required rejects requests without X-Tenant-ID
	Required bool
}

// DefaultTenantConfig returns default tenant middleware configuration
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{
		SkipPaths: []string{"/health", "/api/v1/ping"},
		Required:  true,
	}
}

// Tenant reads the tenant from X-Tenant-ID with the default configuration
func Tenant() gin.HandlerFunc {
	return TenantWithConfig(DefaultTenantConfig())
}

// TenantWithConfig parses X-Tenant-ID as a UUID and stores it in the gin
// context and the request's logging context
func TenantWithConfig(cfg TenantConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip || strings.HasPrefix(path, skip+"/") {
				c.Next()
				return
			}
		}

		raw := strings.TrimSpace(c.GetHeader(TenantHeaderKey))
		if raw == "" {
			if cfg.Required {
				abortTenant(c, "X-Tenant-ID header is required")
				return
			}
			c.Next()
			return
		}

		tenantID, err := uuid.Parse(raw)
		if err != nil || tenantID == uuid.Nil {
			abortTenant(c, "X-Tenant-ID must be a non-nil UUID")
			return
		}

		c.Set(TenantIDKey, tenantID)
		c.Request = c.Request.WithContext(logger.WithTenantID(c.Request.Context(), tenantID.String()))
		c.Next()
	}
}

func abortTenant(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidTenant, message, GetRequestID(c)))
}

// GetTenantID returns the tenant set by the tenant middleware
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(TenantIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
