package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestMeterProvider(t *testing.T) (*MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := &MeterProvider{
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		logger:   zap.NewNop(),
		config:   MetricsConfig{Enabled: true},
	}
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

// sumCounter adds every data point of an int64 sum whose attributes include match
func sumCounter(rm metricdata.ResourceMetrics, name string, match map[string]string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				if attrsMatch(dp.Attributes.ToSlice(), match) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func findGauge(rm metricdata.ResourceMetrics, name string, match map[string]string) (float64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			g, ok := m.Data.(metricdata.Gauge[float64])
			if m.Name != name || !ok {
				continue
			}
			for _, dp := range g.DataPoints {
				if attrsMatch(dp.Attributes.ToSlice(), match) {
					return dp.Value, true
				}
			}
		}
	}
	return 0, false
}

func attrsMatch(attrs []attribute.KeyValue, match map[string]string) bool {
	got := make(map[string]string, len(attrs))
	for _, a := range attrs {
		got[string(a.Key)] = a.Value.Emit()
	}
	for k, v := range match {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestNewBusinessMetrics_NilMeter(t *testing.T) {
	_, err := NewBusinessMetrics(BusinessMetricsConfig{})
	assert.ErrorIs(t, err, ErrMeterNil)

	bm, err := NewBusinessMetrics(BusinessMetricsConfig{Meter: noop.NewMeterProvider().Meter("test")})
	require.NoError(t, err)
	bm.RecordCacheLookup(context.Background(), true)
	bm.Stop()
	bm.Stop()
}

func TestBusinessMetrics_Counters(t *testing.T) {
	mp, reader := newTestMeterProvider(t)
	bm, err := NewBusinessMetrics(BusinessMetricsConfig{Meter: mp.Meter("finance")})
	require.NoError(t, err)

	ctx := context.Background()
	tenantID := uuid.New()

	bm.RecordCacheLookup(ctx, true)
	bm.RecordCacheLookup(ctx, true)
	bm.RecordCacheLookup(ctx, false)
	bm.RecordFallback(ctx)
	bm.RecordAPIFetch(ctx, 120*time.Millisecond, nil)
	bm.RecordAPIFetch(ctx, 2*time.Second, errors.New("timeout"))
	bm.RecordSettlement(ctx, tenantID, "PAYABLE")
	bm.RecordStatusTransition(ctx, tenantID, "PAYABLE", "OPEN", "PARTIAL")
	bm.RecordStatusTransition(ctx, tenantID, "PAYABLE", "PARTIAL", "PAID")

	rm := collect(t, reader)
	assert.Equal(t, int64(2), sumCounter(rm, "fin_fx_cache_lookups_total", map[string]string{"cache_result": "hit"}))
	assert.Equal(t, int64(1), sumCounter(rm, "fin_fx_cache_lookups_total", map[string]string{"cache_result": "miss"}))
	assert.Equal(t, int64(1), sumCounter(rm, "fin_fx_fallback_total", nil))
	assert.Equal(t, int64(1), sumCounter(rm, "fin_fx_api_fetch_total", map[string]string{"outcome": "error"}))
	assert.Equal(t, int64(1), sumCounter(rm, "fin_settlement_recorded_total", map[string]string{"entry_kind": "PAYABLE"}))
	assert.Equal(t, int64(2), sumCounter(rm, "fin_entry_status_transition_total", map[string]string{"tenant_id": tenantID.String()}))
	assert.Equal(t, int64(1), sumCounter(rm, "fin_entry_status_transition_total", map[string]string{"to_status": "PAID"}))
}

type stubLedgerProvider struct {
	tenantID uuid.UUID
}

func (s stubLedgerProvider) ActiveTenantIDs(context.Context) ([]uuid.UUID, error) {
	return []uuid.UUID{s.tenantID}, nil
}

func (s stubLedgerProvider) OutstandingByKind(context.Context, uuid.UUID, time.Time) ([]OutstandingBalance, error) {
	return []OutstandingBalance{
		{Kind: "RECEIVABLE", USD: decimal.RequireFromString("1250.50"), OverdueCount: 3},
	}, nil
}

func TestBusinessMetrics_Collect(t *testing.T) {
	mp, reader := newTestMeterProvider(t)
	tenantID := uuid.New()
	bm, err := NewBusinessMetrics(BusinessMetricsConfig{
		Meter:    mp.Meter("finance"),
		Provider: stubLedgerProvider{tenantID: tenantID},
	})
	require.NoError(t, err)

	bm.collect(context.Background())

	rm := collect(t, reader)
	v, ok := findGauge(rm, "fin_outstanding_usd", map[string]string{"entry_kind": "RECEIVABLE"})
	require.True(t, ok)
	assert.InDelta(t, 1250.50, v, 0.001)
	v, ok = findGauge(rm, "fin_overdue_entries", map[string]string{"tenant_id": tenantID.String()})
	require.True(t, ok)
	assert.Equal(t, float64(3), v)
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestInstrumentDB_RecordsQueries(t *testing.T) {
	db := openSQLite(t)
	mp, reader := newTestMeterProvider(t)

	cfg := DefaultDBConfig()
	cfg.SlowQueryThreshold = time.Hour
	require.NoError(t, InstrumentDB(db, cfg, mp, zap.NewNop()))

	require.NoError(t, db.Exec("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)").Error)
	require.NoError(t, db.Exec("INSERT INTO notes (body) VALUES (?)", "a").Error)
	var count int64
	require.NoError(t, db.Table("notes").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	rm := collect(t, reader)
	assert.GreaterOrEqual(t, sumCounter(rm, "db_query_total", map[string]string{"db.operation": "INSERT"}), int64(1))
	assert.GreaterOrEqual(t, sumCounter(rm, "db_query_total", map[string]string{"db.operation": "SELECT"}), int64(1))
	assert.Equal(t, int64(0), sumCounter(rm, "db_slow_query_total", nil))
}

func TestInstrumentDB_DisabledIsNoop(t *testing.T) {
	db := openSQLite(t)
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, InstrumentDB(db, DefaultDBConfig(), mp, zap.NewNop()))
	assert.Nil(t, db.Callback().Query().Get("telemetry:before_query"))
}

func TestDetectOperation(t *testing.T) {
	assert.Equal(t, "SELECT", detectOperation("  select 1"))
	assert.Equal(t, "UPDATE", detectOperation("UPDATE ledger_entries SET status = 'PAID'"))
	assert.Equal(t, "OTHER", detectOperation("CREATE TABLE x (id int)"))
}

func TestGormLedgerMetricsProvider(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.Exec(`CREATE TABLE ledger_entries (
		id TEXT PRIMARY KEY, tenant_id TEXT, kind TEXT, status TEXT,
		usd_equiv_amount NUMERIC, settled_usd_amount NUMERIC, due_date DATETIME)`).Error)

	tenantID := uuid.New()
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	past := asOf.AddDate(0, 0, -10)
	future := asOf.AddDate(0, 0, 10)
	insert := func(kind, status, total, settled string, due *time.Time) {
		require.NoError(t, db.Exec(
			"INSERT INTO ledger_entries VALUES (?, ?, ?, ?, ?, ?, ?)",
			uuid.NewString(), tenantID, kind, status, total, settled, due,
		).Error)
	}
	insert("RECEIVABLE", "OPEN", "100", "0", &past)
	insert("RECEIVABLE", "PARTIAL", "50", "20", &future)
	insert("RECEIVABLE", "PAID", "70", "70", &past)
	insert("PAYABLE", "OPEN", "10", "0", nil)

	p := NewGormLedgerMetricsProvider(db)

	ids, err := p.ActiveTenantIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{tenantID}, ids)

	balances, err := p.OutstandingByKind(context.Background(), tenantID, asOf)
	require.NoError(t, err)
	byKind := map[string]OutstandingBalance{}
	for _, b := range balances {
		byKind[b.Kind] = b
	}
	require.Len(t, byKind, 2)
	assert.True(t, byKind["RECEIVABLE"].USD.Equal(decimal.NewFromInt(130)))
	assert.Equal(t, int64(1), byKind["RECEIVABLE"].OverdueCount)
	assert.Equal(t, int64(0), byKind["PAYABLE"].OverdueCount)
}
