package middleware

import (
	"time"

	"github.com/finadmin/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// HTTPMetricsConfig holds configuration for HTTP metrics middleware.
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Logger        *zap.Logger
	Enabled       bool
}

type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	requestSize     *telemetry.Histogram
	responseSize    *telemetry.Histogram
	activeRequests  metric.Int64UpDownCounter
}

var sizeBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requestTotal, err := telemetry.NewCounter(meter,
		"http_server_request_total", "Total number of HTTP requests", "{request}")
	if err != nil {
		return nil, err
	}
	requestDuration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	requestSize, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_size_bytes",
		Description: "HTTP request body size distribution in bytes",
		Unit:        "By",
		Boundaries:  sizeBuckets,
	})
	if err != nil {
		return nil, err
	}
	responseSize, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "HTTP response body size distribution in bytes",
		Unit:        "By",
		Boundaries:  sizeBuckets,
	})
	if err != nil {
		return nil, err
	}
	activeRequests, err := meter.Int64UpDownCounter(
		"http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestSize:     requestSize,
		responseSize:    responseSize,
		activeRequests:  activeRequests,
	}, nil
}

func passThrough(c *gin.Context) {
	c.Next()
}

// HTTPMetrics returns a Gin middleware that records request count, latency,
// body sizes and in-flight requests. Routes are recorded by pattern.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return passThrough
	}
	metrics, err := newHTTPMetrics(cfg.MeterProvider.Meter("http.server"))
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return passThrough
	}
	return metrics.middleware
}

// HTTPMetricsWithMeter returns HTTP metrics middleware recording to meter.
func HTTPMetricsWithMeter(meter metric.Meter) gin.HandlerFunc {
	metrics, err := newHTTPMetrics(meter)
	if err != nil {
		return passThrough
	}
	return metrics.middleware
}

func (m *httpMetrics) middleware(c *gin.Context) {
	ctx := c.Request.Context()
	start := time.Now()
	requestSize := c.Request.ContentLength

	m.activeRequests.Add(ctx, 1)
	c.Next()
	m.activeRequests.Add(ctx, -1)

	route := c.FullPath()
	if route == "" {
		route = "unknown"
	}
	base := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(c.Request.Method),
		telemetry.AttrHTTPRoute.String(route),
	}

	countAttrs := append([]attribute.KeyValue{telemetry.AttrHTTPStatusCode.Int(c.Writer.Status())}, base...)
	if tenantID, ok := GetTenantID(c); ok {
		countAttrs = append(countAttrs, telemetry.AttrTenantID.String(tenantID.String()))
	}
	m.requestTotal.Inc(ctx, countAttrs...)
	m.requestDuration.RecordDuration(ctx, time.Since(start), base...)

	if requestSize > 0 {
		m.requestSize.Record(ctx, float64(requestSize), base...)
	}
	if size := c.Writer.Size(); size > 0 {
		m.responseSize.Record(ctx, float64(size), base...)
	}
}
