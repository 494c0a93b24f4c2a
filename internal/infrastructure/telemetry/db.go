package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig controls database instrumentation
type DBConfig struct {
	TracingEnabled     bool
	MetricsEnabled     bool
	LogFullSQL         bool // include bound variables in span statements
	SlowQueryThreshold time.Duration
	DBName             string
}

// DefaultDBConfig returns tracing off, metrics on, 200ms slow threshold
func DefaultDBConfig() DBConfig {
	return DBConfig{
		MetricsEnabled:     true,
		SlowQueryThreshold: 200 * time.Millisecond,
		DBName:             "postgresql",
	}
}

type dbContextKey string

const queryStartKey dbContextKey = "telemetry_query_start"

// InstrumentDB installs otelgorm spans, slow-query span annotations and query metrics on db
func InstrumentDB(db *gorm.DB, cfg DBConfig, mp *MeterProvider, logger *zap.Logger) error {
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}

	var dm *DBMetrics
	if cfg.MetricsEnabled && mp != nil && mp.IsEnabled() {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		dm, err = NewDBMetrics(mp.Meter("db.client"), cfg.SlowQueryThreshold, sqlDB.Stats)
		if err != nil {
			return err
		}
	}

	if cfg.TracingEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
		if !cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	if !cfg.TracingEnabled && dm == nil {
		return nil
	}

	h := &queryHooks{metrics: dm, slow: cfg.SlowQueryThreshold}
	if err := h.register(db); err != nil {
		return err
	}
	logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", cfg.TracingEnabled),
		zap.Bool("metrics", dm != nil),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
	)
	return nil
}

type queryHooks struct {
	metrics *DBMetrics
	slow    time.Duration
}

func (h *queryHooks) register(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("telemetry:before_create", h.before),
		cb.Query().Before("gorm:query").Register("telemetry:before_query", h.before),
		cb.Update().Before("gorm:update").Register("telemetry:before_update", h.before),
		cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", h.before),
		cb.Row().Before("gorm:row").Register("telemetry:before_row", h.before),
		cb.Raw().Before("gorm:raw").Register("telemetry:before_raw", h.before),
		cb.Create().After("gorm:create").Register("telemetry:after_create", h.after("INSERT")),
		cb.Query().After("gorm:query").Register("telemetry:after_query", h.after("SELECT")),
		cb.Update().After("gorm:update").Register("telemetry:after_update", h.after("UPDATE")),
		cb.Delete().After("gorm:delete").Register("telemetry:after_delete", h.after("DELETE")),
		cb.Row().After("gorm:row").Register("telemetry:after_row", h.after("")),
		cb.Raw().After("gorm:raw").Register("telemetry:after_raw", h.after("")),
	)
}

func (h *queryHooks) before(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, queryStartKey, time.Now())
}

func (h *queryHooks) after(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		start, ok := ctx.Value(queryStartKey).(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)
		op := operation
		if op == "" {
			op = detectOperation(db.Statement.SQL.String())
		}

		if h.metrics != nil {
			h.metrics.RecordQuery(ctx, op, db.Statement.Table, elapsed)
		}

		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() || elapsed <= h.slow {
			return
		}
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("threshold_ms", h.slow.Milliseconds()),
		))
	}
}

func detectOperation(stmt string) string {
	stmt = strings.ToUpper(strings.TrimSpace(stmt))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(stmt, op) {
			return op
		}
	}
	return "OTHER"
}

// DBMetrics records query counts, latency and connection pool usage
type DBMetrics struct {
	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	slow           time.Duration
}

// NewDBMetrics creates the query instruments. When stats is non-nil the pool
// state is observed on every collection cycle.
func NewDBMetrics(meter metric.Meter, slow time.Duration, stats func() sql.DBStats) (*DBMetrics, error) {
	var err error
	m := &DBMetrics{slow: slow}

	if m.queryTotal, err = NewCounter(meter, "db_query_total", "Database queries by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total", "Queries slower than the configured threshold", "{query}"); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}

	if stats != nil {
		pool, err := meter.Int64ObservableGauge("db_pool_connections",
			metric.WithDescription("Connections in the pool by state"),
			metric.WithUnit("{connection}"))
		if err != nil {
			return nil, err
		}
		_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			s := stats()
			o.ObserveInt64(pool, int64(s.Idle), metric.WithAttributes(AttrDBState.String("idle")))
			o.ObserveInt64(pool, int64(s.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
			o.ObserveInt64(pool, int64(s.MaxOpenConnections), metric.WithAttributes(AttrDBState.String("max")))
			return nil
		}, pool)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordQuery records one statement
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, d time.Duration) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "OTHER"
	}
	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	m.queryDuration.RecordDuration(ctx, d, AttrDBOperation.String(operation))
	if d > m.slow {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}
