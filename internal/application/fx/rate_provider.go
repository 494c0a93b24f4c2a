package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finadmin/backend/internal/domain/fx"
	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/finadmin/backend/internal/infrastructure/logger"
	"github.com/finadmin/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Metrics receives rate resolution counters
type Metrics interface {
	RecordCacheLookup(ctx context.Context, hit bool)
	RecordFallback(ctx context.Context)
	RecordAPIFetch(ctx context.Context, d time.Duration, err error)
}

type noopMetrics struct{}

func (noopMetrics) RecordCacheLookup(context.Context, bool)              {}
func (noopMetrics) RecordFallback(context.Context)                       {}
func (noopMetrics) RecordAPIFetch(context.Context, time.Duration, error) {}

// ExchangeRates is a full rate table relative to Base
type ExchangeRates struct {
	Base     valueobject.Currency                     `json:"base"`
	Date     time.Time                                `json:"date"`
	Source   fx.Source                                `json:"source"`
	Provider string                                   `json:"provider"`
	Rates    map[valueobject.Currency]decimal.Decimal `json:"rates"`
}

// RateProvider resolves exchange rates: cache, then the daily table, then the
// rate API, then the static fallback table. Cross rates always pivot through USD.
type RateProvider struct {
	rates    fx.RateRepository
	feed     fx.RateFeed
	cache    fx.RateCache
	archiver fx.SnapshotArchiver
	metrics  Metrics
	fallback func() fx.Table
	now      func() time.Time
	logger   *zap.Logger
}

// RateProviderOption configures a RateProvider
type RateProviderOption func(*RateProvider)

// WithArchiver keeps raw API payloads
func WithArchiver(a fx.SnapshotArchiver) RateProviderOption {
	return func(p *RateProvider) {
		p.archiver = a
	}
}

// WithMetrics records cache and fallback counters
func WithMetrics(m Metrics) RateProviderOption {
	return func(p *RateProvider) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) RateProviderOption {
	return func(p *RateProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) RateProviderOption {
	return func(p *RateProvider) {
		p.now = now
	}
}

// WithFallbackTable overrides the static table used when the API fails
func WithFallbackTable(fn func() fx.Table) RateProviderOption {
	return func(p *RateProvider) {
		p.fallback = fn
	}
}

// NewRateProvider creates a RateProvider. The cache is owned by the caller.
func NewRateProvider(rates fx.RateRepository, feed fx.RateFeed, cache fx.RateCache, opts ...RateProviderOption) *RateProvider {
	p := &RateProvider{
		rates:    rates,
		feed:     feed,
		cache:    cache,
		metrics:  noopMetrics{},
		fallback: fx.FallbackTable,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("rate_provider")
	return p
}

// GetRate returns how many units of quote equal one unit of base on asOf's date.
// A zero asOf means now. The result is always positive.
//
// Only today's quotes go through the cache, the rate API and the fallback table.
// Any other day is answered from the stored table alone, or fx.ErrRateUnavailable.
func (p *RateProvider) GetRate(ctx context.Context, base, quote valueobject.Currency, asOf time.Time) (fx.Quote, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fx", "get_rate")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBaseCurrency, base.String(),
		telemetry.SpanAttrQuoteCurrency, quote.String(),
	)

	if base == "" || quote == "" {
		return fx.Quote{}, shared.ErrInvalidCurrency
	}
	if base == quote {
		return fx.IdentityQuote(base), nil
	}
	if asOf.IsZero() {
		asOf = p.now()
	}
	if !fx.DateOf(asOf).Equal(fx.DateOf(p.now())) {
		q, err := p.fromTable(ctx, base, quote, asOf)
		if err != nil {
			telemetry.RecordError(span, err)
			return fx.Quote{}, err
		}
		telemetry.SetAttributes(span, telemetry.SpanAttrRateSource, string(q.Source))
		return q, nil
	}

	if q, ok := p.cache.Get(ctx, base, quote); ok {
		p.metrics.RecordCacheLookup(ctx, true)
		telemetry.SetAttributes(span, telemetry.SpanAttrRateSource, "CACHE")
		return q, nil
	}
	p.metrics.RecordCacheLookup(ctx, false)

	q, err := p.fromTable(ctx, base, quote, asOf)
	if err != nil && !errors.Is(err, fx.ErrRateUnavailable) {
		telemetry.RecordError(span, err)
		return fx.Quote{}, err
	}
	if err != nil {
		q, err = p.fromAPI(ctx, base, quote)
	}
	if err != nil {
		logger.WithLogger(ctx, p.logger).Warn("rate API unavailable, using fallback table",
			zap.String("base", base.String()),
			zap.String("quote", quote.String()),
			zap.Error(err),
		)
		p.metrics.RecordFallback(ctx)
		q, err = p.fromFallback(base, quote)
		if err != nil {
			telemetry.RecordError(span, err)
			return fx.Quote{}, err
		}
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrRateSource, string(q.Source))
	if err := p.cache.Set(ctx, q); err != nil {
		logger.WithLogger(ctx, p.logger).Warn("failed to cache rate", zap.Error(err))
	}
	return q, nil
}

// fromTable looks for a direct row, then an inverse row, then a cross through the USD rows
func (p *RateProvider) fromTable(ctx context.Context, base, quote valueobject.Currency, asOf time.Time) (fx.Quote, error) {
	day := fx.DateOf(asOf)

	direct, err := p.rates.FindForDay(ctx, day, base, quote)
	if err == nil {
		return tableQuote(base, quote, direct.Rate, direct), nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return fx.Quote{}, fmt.Errorf("failed to read rate %s/%s: %w", base, quote, err)
	}

	inverse, err := p.rates.FindForDay(ctx, day, quote, base)
	if err == nil {
		return tableQuote(base, quote, inverse.Inverse(), inverse), nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return fx.Quote{}, fmt.Errorf("failed to read rate %s/%s: %w", quote, base, err)
	}

	if base == valueobject.USD || quote == valueobject.USD {
		return fx.Quote{}, fx.ErrRateUnavailable
	}
	rows, err := p.rates.FindAllForDay(ctx, day, valueobject.USD)
	if err != nil {
		return fx.Quote{}, fmt.Errorf("failed to read USD rates: %w", err)
	}
	table := tableFromRows(day, rows)
	rate, err := table.Cross(base, quote)
	if err != nil {
		return fx.Quote{}, err
	}
	return tableQuote(base, quote, rate, &rows[0]), nil
}

func tableQuote(base, quote valueobject.Currency, rate decimal.Decimal, row *fx.Rate) fx.Quote {
	return fx.Quote{
		Base:      base,
		Quote:     quote,
		Rate:      rate,
		Source:    fx.SourceTable,
		Provider:  row.Provider,
		Timestamp: row.FetchedAt,
	}
}

func tableFromRows(day time.Time, rows []fx.Rate) fx.Table {
	t := fx.Table{
		Base:  valueobject.USD,
		Date:  day,
		Rates: make(map[valueobject.Currency]decimal.Decimal, len(rows)),
	}
	for _, r := range rows {
		t.Rates[r.QuoteCurrency] = r.Rate
	}
	return t
}

// fetchUSDTable calls the rate API and dates the result today. The API only
// serves latest rates, so its rows are never written under another day.
func (p *RateProvider) fetchUSDTable(ctx context.Context) (*fx.Snapshot, fx.Table, error) {
	start := p.now()
	snap, err := p.feed.FetchLatest(ctx, valueobject.USD)
	p.metrics.RecordAPIFetch(ctx, p.now().Sub(start), err)
	if err != nil {
		return nil, fx.Table{}, err
	}

	table := snap.Table
	if table.Base != valueobject.USD {
		if table, err = table.Rebase(valueobject.USD); err != nil {
			return nil, fx.Table{}, err
		}
	}
	table.Date = fx.DateOf(start)

	if p.archiver != nil {
		if err := p.archiver.Archive(ctx, snap); err != nil {
			logger.WithLogger(ctx, p.logger).Warn("failed to archive rate snapshot", zap.Error(err))
		}
	}
	return snap, table, nil
}

func (p *RateProvider) fromAPI(ctx context.Context, base, quote valueobject.Currency) (fx.Quote, error) {
	snap, table, err := p.fetchUSDTable(ctx)
	if err != nil {
		return fx.Quote{}, err
	}
	rate, err := table.Cross(base, quote)
	if err != nil {
		return fx.Quote{}, err
	}

	rows := table.RateRows(snap.Provider)
	if base != valueobject.USD && quote != valueobject.USD {
		if pair, err := fx.NewRate(table.Date, base, quote, rate, snap.Provider); err == nil {
			rows = append(rows, pair)
		}
	}
	if err := p.rates.Upsert(ctx, rows...); err != nil {
		// the quote is still good; the next miss will fetch again
		logger.WithLogger(ctx, p.logger).Error("failed to store fetched rates",
			zap.Time("rate_date", table.Date),
			zap.Error(err),
		)
	}

	return fx.Quote{
		Base:      base,
		Quote:     quote,
		Rate:      rate,
		Source:    fx.SourceAPI,
		Provider:  snap.Provider,
		Timestamp: snap.FetchedAt,
	}, nil
}

func (p *RateProvider) fromFallback(base, quote valueobject.Currency) (fx.Quote, error) {
	rate, err := p.fallback().Cross(base, quote)
	if err != nil {
		return fx.Quote{}, err
	}
	return fx.Quote{
		Base:      base,
		Quote:     quote,
		Rate:      rate,
		Source:    fx.SourceFallback,
		Provider:  fx.FallbackProvider,
		Timestamp: p.now(),
	}, nil
}

// GetExchangeRates returns today's full table relative to base. It reads the
// stored table, else fetches and stores it, else serves the fallback table.
func (p *RateProvider) GetExchangeRates(ctx context.Context, base valueobject.Currency) (*ExchangeRates, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fx", "get_exchange_rates")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrBaseCurrency, base.String())

	if base == "" {
		base = valueobject.USD
	}
	day := fx.DateOf(p.now())

	rows, err := p.rates.FindAllForDay(ctx, day, valueobject.USD)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to read USD rates: %w", err)
	}
	if len(rows) > 0 {
		return rebased(tableFromRows(day, rows), base, fx.SourceTable, rows[0].Provider)
	}

	snap, table, err := p.fetchUSDTable(ctx)
	if err == nil {
		if err := p.rates.Upsert(ctx, table.RateRows(snap.Provider)...); err != nil {
			logger.WithLogger(ctx, p.logger).Error("failed to store fetched rates", zap.Error(err))
		}
		return rebased(table, base, fx.SourceAPI, snap.Provider)
	}

	logger.WithLogger(ctx, p.logger).Warn("rate API unavailable, serving fallback table",
		zap.String("base", base.String()),
		zap.Error(err),
	)
	p.metrics.RecordFallback(ctx)
	return rebased(p.fallback(), base, fx.SourceFallback, fx.FallbackProvider)
}

func rebased(t fx.Table, base valueobject.Currency, source fx.Source, provider string) (*ExchangeRates, error) {
	out, err := t.Rebase(base)
	if err != nil {
		return nil, err
	}
	out.Rates[base] = decimal.NewFromInt(1)
	return &ExchangeRates{
		Base:     out.Base,
		Date:     out.Date,
		Source:   source,
		Provider: provider,
		Rates:    out.Rates,
	}, nil
}
