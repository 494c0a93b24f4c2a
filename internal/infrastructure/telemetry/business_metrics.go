package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("business metrics: meter cannot be nil")

// BusinessMetrics tracks rate resolution, settlements and outstanding balances
type BusinessMetrics struct {
	logger *zap.Logger

	fxCacheLookups   *Counter
	fxFallbackTotal  *Counter
	fxAPIFetches     *Counter
	fxAPIDuration    *Histogram
	settlementTotal  *Counter
	statusTransition *Counter

	outstandingUSD *FloatGauge
	overdueEntries *FloatGauge

	provider LedgerMetricsProvider
	stopChan chan struct{}
	stopOnce sync.Once
	runOnce  sync.Once
}

// OutstandingBalance is the open exposure of one entry kind
type OutstandingBalance struct {
	Kind         string
	USD          decimal.Decimal
	OverdueCount int64
}

// LedgerMetricsProvider supplies ledger gauges without importing the finance domain
type LedgerMetricsProvider interface {
	ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
	OutstandingByKind(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]OutstandingBalance, error)
}

// BusinessMetricsConfig configures NewBusinessMetrics
type BusinessMetricsConfig struct {
	Meter    metric.Meter
	Logger   *zap.Logger
	Provider LedgerMetricsProvider
}

// NewBusinessMetrics creates every instrument up front
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bm := &BusinessMetrics{
		logger:   logger,
		provider: cfg.Provider,
		stopChan: make(chan struct{}),
	}

	var err error
	counters := []struct {
		dst              **Counter
		name, desc, unit string
	}{
		{&bm.fxCacheLookups, "fin_fx_cache_lookups_total", "Rate cache lookups by result", "{lookup}"},
		{&bm.fxFallbackTotal, "fin_fx_fallback_total", "Quotes served from the static fallback table", "{quote}"},
		{&bm.fxAPIFetches, "fin_fx_api_fetch_total", "Rate API calls by outcome", "{request}"},
		{&bm.settlementTotal, "fin_settlement_recorded_total", "Payments and receipts recorded", "{settlement}"},
		{&bm.statusTransition, "fin_entry_status_transition_total", "Ledger entry status changes", "{transition}"},
	}
	for _, c := range counters {
		if *c.dst, err = NewCounter(cfg.Meter, c.name, c.desc, c.unit); err != nil {
			return nil, err
		}
	}

	if bm.fxAPIDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "fin_fx_api_fetch_duration_seconds",
		Description: "Rate API latency",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if bm.outstandingUSD, err = NewFloatGauge(cfg.Meter, "fin_outstanding_usd", "Unsettled USD exposure by kind", "{USD}"); err != nil {
		return nil, err
	}
	if bm.overdueEntries, err = NewFloatGauge(cfg.Meter, "fin_overdue_entries", "Open entries past their due date", "{entry}"); err != nil {
		return nil, err
	}
	return bm, nil
}

// RecordCacheLookup counts a rate cache hit or miss
func (bm *BusinessMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	bm.fxCacheLookups.Inc(ctx, AttrCacheResult.String(result))
}

// RecordFallback counts a quote served from the static table
func (bm *BusinessMetrics) RecordFallback(ctx context.Context) {
	bm.fxFallbackTotal.Inc(ctx)
}

// RecordAPIFetch records one rate API call
func (bm *BusinessMetrics) RecordAPIFetch(ctx context.Context, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	bm.fxAPIFetches.Inc(ctx, AttrOutcome.String(outcome))
	bm.fxAPIDuration.RecordDuration(ctx, d, AttrOutcome.String(outcome))
}

// RecordSettlement counts a recorded payment or receipt
func (bm *BusinessMetrics) RecordSettlement(ctx context.Context, tenantID uuid.UUID, kind string) {
	bm.settlementTotal.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrEntryKind.String(kind))
}

// RecordStatusTransition counts an entry status change
func (bm *BusinessMetrics) RecordStatusTransition(ctx context.Context, tenantID uuid.UUID, kind, from, to string) {
	bm.statusTransition.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrEntryKind.String(kind),
		AttrFromStatus.String(from),
		AttrToStatus.String(to),
	)
}

// StartPeriodicCollection samples outstanding balances every interval (default 5m) until Stop
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if bm.provider == nil {
		return
	}
	bm.runOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.collect(ctx)
	for {
		select {
		case <-bm.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			bm.collect(ctx)
		}
	}
}

func (bm *BusinessMetrics) collect(ctx context.Context) {
	tenantIDs, err := bm.provider.ActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to list tenants for ledger metrics", zap.Error(err))
		return
	}
	now := time.Now()
	for _, tenantID := range tenantIDs {
		balances, err := bm.provider.OutstandingByKind(ctx, tenantID, now)
		if err != nil {
			bm.logger.Warn("Failed to collect outstanding balances",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		for _, b := range balances {
			tenant, kind := AttrTenantID.String(tenantID.String()), AttrEntryKind.String(b.Kind)
			bm.outstandingUSD.Record(ctx, b.USD.InexactFloat64(), tenant, kind)
			bm.overdueEntries.Record(ctx, float64(b.OverdueCount), tenant, kind)
		}
	}
}

// Stop ends periodic collection
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}
