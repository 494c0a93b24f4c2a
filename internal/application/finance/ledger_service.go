package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	appfx "github.com/finadmin/backend/internal/application/fx"
	"github.com/finadmin/backend/internal/domain/finance"
	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/finadmin/backend/internal/infrastructure/logger"
	"github.com/finadmin/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// USDConverter stamps amounts with their USD equivalent
type USDConverter interface {
	ConvertToUSD(ctx context.Context, amount decimal.Decimal, currency valueobject.Currency) (*appfx.Conversion, error)
}

// LedgerService manages accounts payable and receivable entries
type LedgerService struct {
	entries     finance.LedgerEntryRepository
	settlements finance.SettlementRecordRepository
	txScope     TransactionScope
	converter   USDConverter
	publisher   shared.EventPublisher
	now         func() time.Time
	logger      *zap.Logger
}

// LedgerServiceOption configures a LedgerService
type LedgerServiceOption func(*LedgerService)

// WithLedgerPublisher publishes entry events after commit
func WithLedgerPublisher(p shared.EventPublisher) LedgerServiceOption {
	return func(s *LedgerService) {
		s.publisher = p
	}
}

// WithLedgerLogger sets the logger
func WithLedgerLogger(l *zap.Logger) LedgerServiceOption {
	return func(s *LedgerService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLedgerClock overrides time.Now for overdue checks
func WithLedgerClock(now func() time.Time) LedgerServiceOption {
	return func(s *LedgerService) {
		s.now = now
	}
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	entries finance.LedgerEntryRepository,
	settlements finance.SettlementRecordRepository,
	txScope TransactionScope,
	converter USDConverter,
	opts ...LedgerServiceOption,
) *LedgerService {
	s := &LedgerService{
		entries:     entries,
		settlements: settlements,
		txScope:     txScope,
		converter:   converter,
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stamps the amount with today's USD rate and stores an OPEN entry
func (s *LedgerService) Create(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, req CreateLedgerEntryRequest) (*LedgerEntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "create",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
		telemetry.WithAttribute(telemetry.SpanAttrEntryKind, kind.String()),
	)
	defer span.End()

	currency, err := valueobject.ParseCurrency(req.Currency)
	if err != nil {
		return nil, shared.ErrInvalidCurrency
	}
	amount, err := valueobject.NewMoney(req.Amount, currency)
	if err != nil {
		return nil, err
	}

	number := req.EntryNumber
	if number == "" {
		number, err = s.entries.GenerateEntryNumber(ctx, tenantID, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to generate entry number: %w", err)
		}
	} else {
		exists, err := s.entries.ExistsByNumber(ctx, tenantID, kind, number)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Entry with this number already exists")
		}
	}

	conv, err := s.converter.ConvertToUSD(ctx, amount.Amount(), currency)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	entry, err := finance.NewLedgerEntry(tenantID, kind, number, req.CounterpartyID, req.CounterpartyName, amount, conv.Stamp(), req.DueDate)
	if err != nil {
		return nil, err
	}
	entry.SourceRef = req.SourceRef
	entry.Remark = req.Remark

	if err := s.entries.Save(ctx, entry); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save ledger entry: %w", err)
	}
	s.publish(ctx, entry.GetDomainEvents()...)
	entry.ClearDomainEvents()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryID, entry.ID,
		telemetry.SpanAttrEntryNumber, entry.EntryNumber,
		telemetry.SpanAttrRateSource, entry.FxRateSource,
	)
	logger.WithLogger(ctx, s.logger).Info("ledger entry created",
		zap.String("entry_number", entry.EntryNumber),
		zap.String("kind", kind.String()),
		zap.String("amount", amount.String()),
		zap.String("usd_equiv", entry.UsdEquivAmount.String()),
		zap.String("fx_source", entry.FxRateSource),
	)

	resp := ToLedgerEntryResponse(entry)
	return &resp, nil
}

// load returns the entry only when it belongs to tenantID and has the requested kind
func load(ctx context.Context, repo finance.LedgerEntryRepository, tenantID uuid.UUID, kind finance.EntryKind, id uuid.UUID) (*finance.LedgerEntry, error) {
	entry, err := repo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if kind != "" && entry.Kind != kind {
		return nil, shared.ErrNotFound
	}
	return entry, nil
}

// loadForUpdate is load with a row lock, so writers of the same entry queue
// behind each other and each sees the settlements the previous one committed
func loadForUpdate(ctx context.Context, repo finance.LedgerEntryRepository, tenantID uuid.UUID, kind finance.EntryKind, id uuid.UUID) (*finance.LedgerEntry, error) {
	entry, err := repo.FindByIDForUpdate(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if kind != "" && entry.Kind != kind {
		return nil, shared.ErrNotFound
	}
	return entry, nil
}

// GetByID returns one entry
func (s *LedgerService) GetByID(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, id uuid.UUID) (*LedgerEntryResponse, error) {
	entry, err := load(ctx, s.entries, tenantID, kind, id)
	if err != nil {
		return nil, err
	}
	resp := ToLedgerEntryResponse(entry)
	return &resp, nil
}

// List returns a page of entries of one kind
func (s *LedgerService) List(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, filter LedgerEntryListFilter) ([]LedgerEntryResponse, int64, error) {
	f := finance.LedgerEntryFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		},
		Kind:           kind,
		CounterpartyID: filter.CounterpartyID,
		DueBefore:      filter.DueBefore,
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	if filter.Status != "" {
		status := finance.EntryStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown entry status")
		}
		f.Status = &status
	}

	entries, total, err := s.entries.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	return ToLedgerEntryResponses(entries), total, nil
}

// Update changes an entry. A new amount or currency is re-stamped at today's
// rate and is rejected once any settlement exists.
func (s *LedgerService) Update(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, id uuid.UUID, req UpdateLedgerEntryRequest) (*LedgerEntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "update",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
		telemetry.WithAttribute(telemetry.SpanAttrEntryID, id),
	)
	defer span.End()

	current, err := load(ctx, s.entries, tenantID, kind, id)
	if err != nil {
		return nil, err
	}

	var (
		newAmount valueobject.Money
		restamp   bool
		stamp     finance.FxStamp
	)
	if req.changesAmount() {
		amount := current.OriginalAmount
		currency := current.OriginalCurrency
		if req.Amount != nil {
			amount = *req.Amount
		}
		if req.Currency != nil {
			if currency, err = valueobject.ParseCurrency(*req.Currency); err != nil {
				return nil, shared.ErrInvalidCurrency
			}
		}
		if newAmount, err = valueobject.NewMoney(amount, currency); err != nil {
			return nil, err
		}
		restamp = current.NeedsRestamp(newAmount)
	}
	if restamp {
		count, err := s.settlements.CountByEntry(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, finance.ErrHasSettlements
		}
		conv, err := s.converter.ConvertToUSD(ctx, newAmount.Amount(), newAmount.Currency())
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		stamp = conv.Stamp()
	}

	var saved *finance.LedgerEntry
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		entry, err := loadForUpdate(ctx, repos.LedgerEntries(), tenantID, kind, id)
		if err != nil {
			return err
		}
		if entry.Version != current.Version {
			return shared.ErrConcurrencyConflict
		}

		if restamp {
			count, err := repos.Settlements().CountByEntry(ctx, tenantID, id)
			if err != nil {
				return err
			}
			if err := entry.ChangeAmount(newAmount, stamp, count > 0); err != nil {
				return err
			}
			if err := repos.LedgerEntries().SaveWithLock(ctx, entry); err != nil {
				return err
			}
		}

		if req.changesDetails() {
			name := entry.CounterpartyName
			due := entry.DueDate
			remark := entry.Remark
			if req.CounterpartyName != nil {
				name = *req.CounterpartyName
			}
			if req.DueDate != nil {
				due = req.DueDate
			}
			if req.Remark != nil {
				remark = *req.Remark
			}
			if err := entry.UpdateDetails(name, due, remark); err != nil {
				return err
			}
			if err := repos.LedgerEntries().SaveWithLock(ctx, entry); err != nil {
				return err
			}
		}
		saved = entry
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, saved.GetDomainEvents()...)
	saved.ClearDomainEvents()
	resp := ToLedgerEntryResponse(saved)
	return &resp, nil
}

// Cancel voids an entry that has no settlements
func (s *LedgerService) Cancel(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, id uuid.UUID, req CancelLedgerEntryRequest) (*LedgerEntryResponse, error) {
	var cancelled *finance.LedgerEntry
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		entry, err := loadForUpdate(ctx, repos.LedgerEntries(), tenantID, kind, id)
		if err != nil {
			return err
		}
		count, err := repos.Settlements().CountByEntry(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if err := entry.Cancel(req.Reason, count > 0); err != nil {
			return err
		}
		if err := repos.LedgerEntries().SaveWithLock(ctx, entry); err != nil {
			return err
		}
		cancelled = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, cancelled.GetDomainEvents()...)
	cancelled.ClearDomainEvents()
	logger.WithLogger(ctx, s.logger).Info("ledger entry cancelled",
		zap.String("entry_number", cancelled.EntryNumber),
		zap.String("reason", req.Reason),
	)
	resp := ToLedgerEntryResponse(cancelled)
	return &resp, nil
}

// Summary returns USD totals for one kind
func (s *LedgerService) Summary(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind) (*LedgerSummaryResponse, error) {
	sum, err := s.entries.Summarize(ctx, tenantID, kind)
	if err != nil {
		return nil, err
	}
	return &LedgerSummaryResponse{
		Kind:           kind.String(),
		OpenCount:      sum.OpenCount,
		PartialCount:   sum.PartialCount,
		PaidCount:      sum.PaidCount,
		TotalUSD:       sum.TotalUSD,
		SettledUSD:     sum.SettledUSD,
		OutstandingUSD: sum.OutstandingUSD,
	}, nil
}

// ListOverdue returns unsettled entries past due as of asOf (now when zero)
func (s *LedgerService) ListOverdue(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, asOf time.Time) ([]OverdueEntryResponse, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	entries, err := s.entries.FindUnsettled(ctx, tenantID, kind, &asOf)
	if err != nil {
		return nil, err
	}

	out := make([]OverdueEntryResponse, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if !e.IsOverdue(asOf) {
			continue
		}
		out = append(out, OverdueEntryResponse{
			LedgerEntryResponse: ToLedgerEntryResponse(e),
			DaysOverdue:         e.DaysOverdue(asOf),
		})
	}
	return out, nil
}

func (s *LedgerService) publish(ctx context.Context, events ...shared.DomainEvent) {
	publishAfterCommit(ctx, s.publisher, s.logger, events...)
}

// publishAfterCommit sends events once the transaction is durable; failures are logged only
func publishAfterCommit(ctx context.Context, publisher shared.EventPublisher, l *zap.Logger, events ...shared.DomainEvent) {
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.WithLogger(ctx, l).Warn("failed to publish domain events", zap.Error(err))
	}
}

// isConflict reports an optimistic lock failure
func isConflict(err error) bool {
	return errors.Is(err, shared.ErrConcurrencyConflict)
}
