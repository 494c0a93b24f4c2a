package finance

import (
	"context"
	"time"

	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntryFilter defines list criteria for ledger entries
type LedgerEntryFilter struct {
	shared.Filter
	Kind           EntryKind
	Status         *EntryStatus
	CounterpartyID *uuid.UUID
	DueBefore      *time.Time
}

// LedgerSummary aggregates USD balances for one kind
type LedgerSummary struct {
	Kind           EntryKind
	OpenCount      int64
	PartialCount   int64
	PaidCount      int64
	TotalUSD       decimal.Decimal
	SettledUSD     decimal.Decimal
	OutstandingUSD decimal.Decimal
}

// LedgerEntryRepository persists ledger entries. Every method is tenant scoped.
type LedgerEntryRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*LedgerEntry, error)
	// FindByIDForUpdate reads the entry and holds a row lock until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*LedgerEntry, error)
	FindByNumber(ctx context.Context, tenantID uuid.UUID, kind EntryKind, number string) (*LedgerEntry, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter LedgerEntryFilter) ([]LedgerEntry, int64, error)
	// FindUnsettled returns OPEN and PARTIAL entries, optionally only those due before asOf
	FindUnsettled(ctx context.Context, tenantID uuid.UUID, kind EntryKind, dueBefore *time.Time) ([]LedgerEntry, error)
	// FindForReconcile returns every non-cancelled entry of the tenant
	FindForReconcile(ctx context.Context, tenantID uuid.UUID) ([]LedgerEntry, error)
	Save(ctx context.Context, entry *LedgerEntry) error
	// SaveWithLock saves only if the stored version is entry.Version-1
	SaveWithLock(ctx context.Context, entry *LedgerEntry) error
	// UpdateSettledUSD refreshes the materialized settled total without touching status or version
	UpdateSettledUSD(ctx context.Context, tenantID, id uuid.UUID, settled decimal.Decimal) error
	ExistsByNumber(ctx context.Context, tenantID uuid.UUID, kind EntryKind, number string) (bool, error)
	GenerateEntryNumber(ctx context.Context, tenantID uuid.UUID, kind EntryKind) (string, error)
	Summarize(ctx context.Context, tenantID uuid.UUID, kind EntryKind) (*LedgerSummary, error)
	// ListTenantIDs returns tenants owning at least one entry
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// SettlementRecordRepository is an append-only store of settlements
type SettlementRecordRepository interface {
	Create(ctx context.Context, record *SettlementRecord) error
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*SettlementRecord, error)
	FindByEntry(ctx context.Context, tenantID, entryID uuid.UUID) ([]SettlementRecord, error)
	CountByEntry(ctx context.Context, tenantID, entryID uuid.UUID) (int64, error)
	// ExistsReversalOf reports whether id already has a compensating record
	ExistsReversalOf(ctx context.Context, tenantID, id uuid.UUID) (bool, error)
}
