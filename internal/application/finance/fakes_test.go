package finance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	appfx "github.com/finadmin/backend/internal/application/fx"
	"github.com/finadmin/backend/internal/domain/finance"
	"github.com/finadmin/backend/internal/domain/fx"
	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memLedgerRepo is an in-memory LedgerEntryRepository with version checks
type memLedgerRepo struct {
	mu          sync.Mutex
	entries     map[uuid.UUID]finance.LedgerEntry
	seq         int
	lockedReads int
	lockErr     map[uuid.UUID]error
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{entries: map[uuid.UUID]finance.LedgerEntry{}}
}

func (r *memLedgerRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*finance.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &e, nil
}

func (r *memLedgerRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.LedgerEntry, error) {
	r.mu.Lock()
	r.lockedReads++
	err := r.lockErr[id]
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.FindByIDForTenant(ctx, tenantID, id)
}

func (r *memLedgerRepo) FindByNumber(_ context.Context, tenantID uuid.UUID, kind finance.EntryKind, number string) (*finance.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.Kind == kind && e.EntryNumber == number {
			return &e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memLedgerRepo) all(match func(e finance.LedgerEntry) bool) []finance.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]finance.LedgerEntry, 0)
	for _, e := range r.entries {
		if match(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryNumber < out[j].EntryNumber })
	return out
}

func (r *memLedgerRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, f finance.LedgerEntryFilter) ([]finance.LedgerEntry, int64, error) {
	out := r.all(func(e finance.LedgerEntry) bool {
		return e.TenantID == tenantID && (f.Kind == "" || e.Kind == f.Kind) && (f.Status == nil || e.Status == *f.Status)
	})
	return out, int64(len(out)), nil
}

func (r *memLedgerRepo) FindUnsettled(_ context.Context, tenantID uuid.UUID, kind finance.EntryKind, dueBefore *time.Time) ([]finance.LedgerEntry, error) {
	return r.all(func(e finance.LedgerEntry) bool {
		if e.TenantID != tenantID || e.Kind != kind || !e.Status.CanSettle() {
			return false
		}
		return dueBefore == nil || (e.DueDate != nil && e.DueDate.Before(*dueBefore))
	}), nil
}

func (r *memLedgerRepo) FindForReconcile(_ context.Context, tenantID uuid.UUID) ([]finance.LedgerEntry, error) {
	return r.all(func(e finance.LedgerEntry) bool {
		return e.TenantID == tenantID && e.Status != finance.EntryStatusCancelled
	}), nil
}

func (r *memLedgerRepo) Save(_ context.Context, entry *finance.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.ID] = stored(entry)
	return nil
}

func (r *memLedgerRepo) SaveWithLock(_ context.Context, entry *finance.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.entries[entry.ID]
	if !ok || current.Version != entry.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.entries[entry.ID] = stored(entry)
	return nil
}

// stored copies entry without its pending events
func stored(entry *finance.LedgerEntry) finance.LedgerEntry {
	c := *entry
	c.ClearDomainEvents()
	return c
}

func (r *memLedgerRepo) UpdateSettledUSD(_ context.Context, tenantID, id uuid.UUID, settled decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.TenantID != tenantID {
		return shared.ErrNotFound
	}
	e.SettledUsdAmount = settled
	r.entries[id] = e
	return nil
}

func (r *memLedgerRepo) ExistsByNumber(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, number string) (bool, error) {
	_, err := r.FindByNumber(ctx, tenantID, kind, number)
	return err == nil, nil
}

func (r *memLedgerRepo) GenerateEntryNumber(_ context.Context, _ uuid.UUID, kind finance.EntryKind) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return fmt.Sprintf("%s-%05d", kind.NumberPrefix(), r.seq), nil
}

func (r *memLedgerRepo) Summarize(_ context.Context, tenantID uuid.UUID, kind finance.EntryKind) (*finance.LedgerSummary, error) {
	sum := &finance.LedgerSummary{Kind: kind, TotalUSD: decimal.Zero, SettledUSD: decimal.Zero, OutstandingUSD: decimal.Zero}
	for _, e := range r.all(func(e finance.LedgerEntry) bool { return e.TenantID == tenantID && e.Kind == kind }) {
		switch e.Status {
		case finance.EntryStatusOpen:
			sum.OpenCount++
		case finance.EntryStatusPartial:
			sum.PartialCount++
		case finance.EntryStatusPaid:
			sum.PaidCount++
		default:
			continue
		}
		sum.TotalUSD = sum.TotalUSD.Add(e.UsdEquivAmount)
		sum.SettledUSD = sum.SettledUSD.Add(e.SettledUsdAmount)
		sum.OutstandingUSD = sum.OutstandingUSD.Add(e.OutstandingUSD())
	}
	return sum, nil
}

func (r *memLedgerRepo) ListTenantIDs(context.Context) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, e := range r.entries {
		if !seen[e.TenantID] {
			seen[e.TenantID] = true
			ids = append(ids, e.TenantID)
		}
	}
	return ids, nil
}

// memSettlementRepo is an append-only in-memory SettlementRecordRepository
type memSettlementRepo struct {
	mu      sync.Mutex
	records []finance.SettlementRecord
}

func (r *memSettlementRepo) Create(_ context.Context, record *finance.SettlementRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *memSettlementRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*finance.SettlementRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id && rec.TenantID == tenantID {
			return &rec, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memSettlementRepo) FindByEntry(_ context.Context, tenantID, entryID uuid.UUID) ([]finance.SettlementRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []finance.SettlementRecord
	for _, rec := range r.records {
		if rec.EntryID == entryID && rec.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memSettlementRepo) CountByEntry(ctx context.Context, tenantID, entryID uuid.UUID) (int64, error) {
	recs, _ := r.FindByEntry(ctx, tenantID, entryID)
	return int64(len(recs)), nil
}

func (r *memSettlementRepo) ExistsReversalOf(_ context.Context, tenantID, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.ReversesID != nil && *rec.ReversesID == id {
			return true, nil
		}
	}
	return false, nil
}

// fixedConverter converts with a static rate per currency
type fixedConverter struct {
	rates map[valueobject.Currency]decimal.Decimal
	calls int
}

func newFixedConverter() *fixedConverter {
	return &fixedConverter{rates: map[valueobject.Currency]decimal.Decimal{
		valueobject.EUR: decimal.RequireFromString("1.1"),
		valueobject.BRL: decimal.RequireFromString("0.2"),
	}}
}

func (c *fixedConverter) ConvertToUSD(_ context.Context, amount decimal.Decimal, currency valueobject.Currency) (*appfx.Conversion, error) {
	c.calls++
	rate, source := decimal.NewFromInt(1), fx.SourceIdentity
	if currency != valueobject.USD {
		r, ok := c.rates[currency]
		if !ok {
			return nil, fx.ErrRateUnavailable
		}
		rate, source = r, fx.SourceTable
	}
	return &appfx.Conversion{
		Amount:    amount,
		Currency:  currency,
		Converted: amount.Mul(rate),
		Target:    valueobject.USD,
		FXRate:    rate,
		Source:    source,
		Timestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type recordingMetrics struct {
	settlements int
	transitions []string
}

func (m *recordingMetrics) RecordSettlement(context.Context, uuid.UUID, string) {
	m.settlements++
}

func (m *recordingMetrics) RecordStatusTransition(_ context.Context, _ uuid.UUID, _, from, to string) {
	m.transitions = append(m.transitions, from+"->"+to)
}
