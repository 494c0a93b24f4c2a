// Package middleware provides HTTP middleware for the AP/AR API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "finadmin-backend",
		Enabled:     true,
	}
}

// Tracing returns OpenTelemetry tracing middleware with default configuration.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig returns the otelgin server middleware. Span attributes
// specific to this API are added by TracingAttributeInjector.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return otelgin.Middleware(cfg.ServiceName)
}

// TracingAttributeInjector enriches the active span. It must run after
// Tracing, RequestID and Tenant so both ids are resolved.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpanWithAttributes(c, span)
		}
		c.Next()
	}
}

func enrichSpanWithAttributes(c *gin.Context, span trace.Span) {
	if requestID := GetRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if tenantID := spanTenantID(c); tenantID != "" {
		span.SetAttributes(attribute.String("tenant_id", tenantID))
	}
}

// spanTenantID prefers the id resolved by Tenant and falls back to a
// header value only when it parses as a UUID.
func spanTenantID(c *gin.Context) string {
	if id, ok := GetTenantID(c); ok {
		return id.String()
	}
	raw := c.GetHeader(TenantHeaderKey)
	if raw == "" || len(raw) > 36 {
		return ""
	}
	if id, err := uuid.Parse(raw); err == nil {
		return id.String()
	}
	return ""
}

// SpanErrorMarker marks the span as failed for 4xx and 5xx responses.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		var message string
		switch {
		case status >= http.StatusInternalServerError:
			message = "Internal Server Error"
		case status == http.StatusNotFound:
			message = "Not Found"
		case status == http.StatusConflict:
			message = "Conflict"
		case status == http.StatusUnprocessableEntity:
			message = "Unprocessable Entity"
		case status == http.StatusTooManyRequests:
			message = "Too Many Requests"
		default:
			message = "Client Error"
		}
		span.SetStatus(codes.Error, message)
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}
