package fx

import (
	"context"
	"fmt"
	"time"

	"github.com/finadmin/backend/internal/domain/fx"
	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/finadmin/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// RefreshResult reports what a daily refresh did
type RefreshResult struct {
	Date     time.Time `json:"date"`
	Provider string    `json:"provider,omitempty"`
	Count    int       `json:"count"`
	Skipped  bool      `json:"skipped"`
}

// RefreshService stores today's USD rate table once per day
type RefreshService struct {
	rates     fx.RateRepository
	feed      fx.RateFeed
	cache     fx.RateCache
	archiver  fx.SnapshotArchiver
	publisher shared.EventPublisher
	now       func() time.Time
	logger    *zap.Logger
}

// RefreshServiceOption configures a RefreshService
type RefreshServiceOption func(*RefreshService)

// WithRefreshArchiver keeps raw API payloads
func WithRefreshArchiver(a fx.SnapshotArchiver) RefreshServiceOption {
	return func(s *RefreshService) {
		s.archiver = a
	}
}

// WithRefreshPublisher publishes RatesRefreshed events
func WithRefreshPublisher(p shared.EventPublisher) RefreshServiceOption {
	return func(s *RefreshService) {
		s.publisher = p
	}
}

// WithRefreshLogger sets the logger
func WithRefreshLogger(l *zap.Logger) RefreshServiceOption {
	return func(s *RefreshService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRefreshClock overrides time.Now
func WithRefreshClock(now func() time.Time) RefreshServiceOption {
	return func(s *RefreshService) {
		s.now = now
	}
}

// NewRefreshService creates a RefreshService
func NewRefreshService(rates fx.RateRepository, feed fx.RateFeed, cache fx.RateCache, opts ...RefreshServiceOption) *RefreshService {
	s := &RefreshService{
		rates:  rates,
		feed:   feed,
		cache:  cache,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh fetches the USD table and upserts it under today's date. Unless force
// is set, a day that already has rows is left alone.
func (s *RefreshService) Refresh(ctx context.Context, force bool) (*RefreshResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fx", "refresh")
	defer span.End()

	day := fx.DateOf(s.now())
	telemetry.SetAttributes(span, telemetry.SpanAttrRateDate, day.Format(time.DateOnly))

	if !force {
		exists, err := s.rates.ExistsForDay(ctx, day)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to check rates for %s: %w", day.Format(time.DateOnly), err)
		}
		if exists {
			s.logger.Debug("rates already stored for today", zap.Time("rate_date", day))
			return &RefreshResult{Date: day, Skipped: true}, nil
		}
	}

	snap, err := s.feed.FetchLatest(ctx, valueobject.USD)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to fetch rates: %w", err)
	}
	table := snap.Table
	if table.Base != valueobject.USD {
		if table, err = table.Rebase(valueobject.USD); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	table.Date = day

	rows := table.RateRows(snap.Provider)
	if err := s.rates.Upsert(ctx, rows...); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to store rates: %w", err)
	}
	telemetry.AddEvent(span, "rates_stored", "count", len(rows))

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, snap); err != nil {
			s.logger.Warn("failed to archive rate snapshot", zap.Error(err))
		}
	}
	if err := s.cache.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear rate cache", zap.Error(err))
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, fx.NewRatesRefreshedEvent(day, snap.Provider, len(rows))); err != nil {
			s.logger.Warn("failed to publish rates refreshed event", zap.Error(err))
		}
	}

	s.logger.Info("exchange rates refreshed",
		zap.Time("rate_date", day),
		zap.String("provider", snap.Provider),
		zap.Int("count", len(rows)),
	)
	telemetry.SetOK(span)
	return &RefreshResult{Date: day, Provider: snap.Provider, Count: len(rows)}, nil
}
