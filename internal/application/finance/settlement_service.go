package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/finadmin/backend/internal/domain/finance"
	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/finadmin/backend/internal/infrastructure/logger"
	"github.com/finadmin/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Metrics receives settlement counters
type Metrics interface {
	RecordSettlement(ctx context.Context, tenantID uuid.UUID, kind string)
	RecordStatusTransition(ctx context.Context, tenantID uuid.UUID, kind, from, to string)
}

type noopMetrics struct{}

func (noopMetrics) RecordSettlement(context.Context, uuid.UUID, string)                       {}
func (noopMetrics) RecordStatusTransition(context.Context, uuid.UUID, string, string, string) {}

// SettlementService records payments and receipts and keeps entry status in
// step with the settlement log
type SettlementService struct {
	entries     finance.LedgerEntryRepository
	settlements finance.SettlementRecordRepository
	txScope     TransactionScope
	converter   USDConverter
	aggregator  *finance.SettlementAggregator
	publisher   shared.EventPublisher
	metrics     Metrics
	logger      *zap.Logger
}

// SettlementServiceOption configures a SettlementService
type SettlementServiceOption func(*SettlementService)

// WithSettlementPublisher publishes events after commit
func WithSettlementPublisher(p shared.EventPublisher) SettlementServiceOption {
	return func(s *SettlementService) {
		s.publisher = p
	}
}

// WithSettlementMetrics records settlement and transition counters
func WithSettlementMetrics(m Metrics) SettlementServiceOption {
	return func(s *SettlementService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithSettlementLogger sets the logger
func WithSettlementLogger(l *zap.Logger) SettlementServiceOption {
	return func(s *SettlementService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(
	entries finance.LedgerEntryRepository,
	settlements finance.SettlementRecordRepository,
	txScope TransactionScope,
	converter USDConverter,
	opts ...SettlementServiceOption,
) *SettlementService {
	s := &SettlementService{
		entries:     entries,
		settlements: settlements,
		txScope:     txScope,
		converter:   converter,
		aggregator:  finance.NewSettlementAggregator(),
		metrics:     noopMetrics{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordSettlement stores a payment (payable) or receipt (receivable) and
// recomputes the entry status in the same transaction
func (s *SettlementService) RecordSettlement(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, entryID uuid.UUID, req RecordSettlementRequest) (*SettlementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "record",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
		telemetry.WithAttribute(telemetry.SpanAttrEntryID, entryID),
	)
	defer span.End()

	current, err := load(ctx, s.entries, tenantID, kind, entryID)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanSettle() {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot record a %s against an entry in %s status", kind.SettlementName(), current.Status))
	}

	currency := current.OriginalCurrency
	if req.Currency != "" {
		if currency, err = valueobject.ParseCurrency(req.Currency); err != nil {
			return nil, shared.ErrInvalidCurrency
		}
	}
	amount, err := valueobject.NewMoney(req.Amount, currency)
	if err != nil {
		return nil, err
	}
	conv, err := s.converter.ConvertToUSD(ctx, amount.Amount(), currency)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	paymentDate := time.Now()
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}

	var (
		record     *finance.SettlementRecord
		entry      *finance.LedgerEntry
		transition *statusTransition
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		entry, err = loadForUpdate(ctx, repos.LedgerEntries(), tenantID, kind, entryID)
		if err != nil {
			return err
		}
		record, err = finance.NewSettlementRecord(entry, amount, conv.Stamp(), paymentDate, req.Reference)
		if err != nil {
			return err
		}
		if err := repos.Settlements().Create(ctx, record); err != nil {
			return fmt.Errorf("failed to store %s: %w", kind.SettlementName(), err)
		}
		transition, err = s.recompute(ctx, repos, entry, finance.RecomputeMonotonic)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.afterCommit(ctx, record, entry, transition)
	logger.WithLogger(ctx, s.logger).Info(kind.SettlementName()+" recorded",
		zap.String("entry_number", entry.EntryNumber),
		zap.String("amount", amount.String()),
		zap.String("usd_equiv", record.UsdEquivAmount.String()),
		zap.String("status", entry.Status.String()),
	)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSettlementID, record.ID,
		telemetry.SpanAttrEntryStatus, entry.Status.String(),
	)
	return settlementResponse(record, entry), nil
}

// ReverseSettlement inserts a compensating record for settlementID. Unlike
// automatic recomputation, a reversal may move the entry back to PARTIAL or OPEN.
func (s *SettlementService) ReverseSettlement(ctx context.Context, tenantID, settlementID uuid.UUID, req ReverseSettlementRequest) (*SettlementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "reverse",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
		telemetry.WithAttribute(telemetry.SpanAttrSettlementID, settlementID),
	)
	defer span.End()

	var (
		reversal   *finance.SettlementRecord
		entry      *finance.LedgerEntry
		transition *statusTransition
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		original, err := repos.Settlements().FindByIDForTenant(ctx, tenantID, settlementID)
		if err != nil {
			return err
		}
		reversed, err := repos.Settlements().ExistsReversalOf(ctx, tenantID, settlementID)
		if err != nil {
			return err
		}
		if reversed {
			return shared.NewDomainError("INVALID_STATE", "Settlement has already been reversed")
		}
		if reversal, err = original.Reverse(req.Reference); err != nil {
			return err
		}

		entry, err = loadForUpdate(ctx, repos.LedgerEntries(), tenantID, "", original.EntryID)
		if err != nil {
			return err
		}
		if entry.Status == finance.EntryStatusCancelled {
			return shared.NewDomainError("INVALID_STATE", "Cannot reverse a settlement of a cancelled entry")
		}
		if err := repos.Settlements().Create(ctx, reversal); err != nil {
			return fmt.Errorf("failed to store reversal: %w", err)
		}
		transition, err = s.recompute(ctx, repos, entry, finance.RecomputeReversal)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.afterCommit(ctx, reversal, entry, transition)
	logger.WithLogger(ctx, s.logger).Info("settlement reversed",
		zap.String("entry_number", entry.EntryNumber),
		zap.String("reverses_id", settlementID.String()),
		zap.String("status", entry.Status.String()),
	)
	return settlementResponse(reversal, entry), nil
}

// ListSettlements returns the settlement log of one entry, reversals included
func (s *SettlementService) ListSettlements(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, entryID uuid.UUID) ([]SettlementResponse, error) {
	if _, err := load(ctx, s.entries, tenantID, kind, entryID); err != nil {
		return nil, err
	}
	records, err := s.settlements.FindByEntry(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	out := make([]SettlementResponse, len(records))
	for i := range records {
		out[i] = ToSettlementResponse(&records[i])
	}
	return out, nil
}

// Reconcile recomputes every non-cancelled entry of the tenant from its
// settlement log. Running it twice changes nothing the second time.
// An entry that fails is counted in Failed and left for the next run.
func (s *SettlementService) Reconcile(ctx context.Context, tenantID uuid.UUID) (*ReconcileResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "reconcile",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
	)
	defer span.End()

	entries, err := s.entries.FindForReconcile(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load entries for reconcile: %w", err)
	}

	result := &ReconcileResult{Tenants: 1}
	for i := range entries {
		id := entries[i].ID
		result.Checked++

		var (
			entry      *finance.LedgerEntry
			transition *statusTransition
		)
		err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			if entry, err = loadForUpdate(ctx, repos.LedgerEntries(), tenantID, "", id); err != nil {
				return err
			}
			if entry.Status == finance.EntryStatusCancelled {
				return nil
			}
			transition, err = s.recompute(ctx, repos, entry, finance.RecomputeReversal)
			return err
		})
		if isConflict(err) {
			// a concurrent settlement already recomputed this entry
			result.Skipped++
			continue
		}
		if err != nil {
			result.Failed++
			telemetry.RecordError(span, err)
			logger.WithLogger(ctx, s.logger).Warn("failed to reconcile entry",
				zap.String("entry_id", id.String()),
				zap.Error(err),
			)
			continue
		}
		if transition != nil {
			result.Changed++
			s.afterCommit(ctx, nil, entry, transition)
		}
	}

	telemetry.SetAttributes(span,
		"reconcile.checked", result.Checked,
		"reconcile.changed", result.Changed,
		"reconcile.failed", result.Failed,
	)
	if result.Changed > 0 || result.Failed > 0 {
		logger.WithLogger(ctx, s.logger).Info("ledger reconciled",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("checked", result.Checked),
			zap.Int("changed", result.Changed),
			zap.Int("failed", result.Failed),
		)
	}
	return result, nil
}

type statusTransition struct {
	from, to finance.EntryStatus
}

// recompute folds the entry's settlement log into its status and persists the result.
// The caller must hold the entry's row lock (loadForUpdate) so the log it reads is complete.
// A status change bumps the version and goes through the optimistic lock; a
// settled-total change alone is written without touching the version.
func (s *SettlementService) recompute(ctx context.Context, repos TransactionalRepositories, entry *finance.LedgerEntry, mode finance.RecomputeMode) (*statusTransition, error) {
	records, err := repos.Settlements().FindByEntry(ctx, entry.TenantID, entry.ID)
	if err != nil {
		return nil, err
	}

	previousStatus := entry.Status
	previousSettled := entry.SettledUsdAmount
	if !s.aggregator.Apply(entry, records, mode) {
		if !previousSettled.Equal(entry.SettledUsdAmount) {
			if err := repos.LedgerEntries().UpdateSettledUSD(ctx, entry.TenantID, entry.ID, entry.SettledUsdAmount); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	if err := repos.LedgerEntries().SaveWithLock(ctx, entry); err != nil {
		return nil, err
	}
	return &statusTransition{from: previousStatus, to: entry.Status}, nil
}

func (s *SettlementService) afterCommit(ctx context.Context, record *finance.SettlementRecord, entry *finance.LedgerEntry, t *statusTransition) {
	events := make([]shared.DomainEvent, 0, 2)
	if record != nil {
		events = append(events, finance.NewSettlementRecordedEvent(record))
		s.metrics.RecordSettlement(ctx, entry.TenantID, entry.Kind.String())
	}
	events = append(events, entry.GetDomainEvents()...)
	entry.ClearDomainEvents()
	if t != nil {
		s.metrics.RecordStatusTransition(ctx, entry.TenantID, entry.Kind.String(), t.from.String(), t.to.String())
	}
	publishAfterCommit(ctx, s.publisher, s.logger, events...)
}

func settlementResponse(r *finance.SettlementRecord, entry *finance.LedgerEntry) *SettlementResponse {
	resp := ToSettlementResponse(r)
	settled := entry.SettledUsdAmount
	resp.EntryStatus = entry.Status.String()
	resp.EntrySettledUSD = &settled
	return &resp
}
