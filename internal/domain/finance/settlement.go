package finance

import (
	"time"

	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementRecord is an immutable payment (against a payable) or receipt
// (against a receivable). Corrections are new records with ReversesID set.
type SettlementRecord struct {
	shared.BaseEntity
	TenantID       uuid.UUID
	EntryID        uuid.UUID
	EntryKind      EntryKind
	Amount         decimal.Decimal
	Currency       valueobject.Currency
	UsdEquivAmount decimal.Decimal
	FxRateUsed     decimal.Decimal
	FxRateSource   string
	FxRateProvider string
	PaymentDate    time.Time
	Reference      string
	ReversesID     *uuid.UUID
}

// NewSettlementRecord builds a settlement against entry stamped with its USD equivalent
func NewSettlementRecord(entry *LedgerEntry, amount valueobject.Money, stamp FxStamp, paymentDate time.Time, reference string) (*SettlementRecord, error) {
	if entry == nil {
		return nil, shared.ErrNotFound
	}
	if !entry.Status.CanSettle() {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot record a "+entry.Kind.SettlementName()+" against an entry in "+entry.Status.String()+" status")
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if err := stamp.Validate(); err != nil {
		return nil, err
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}
	return &SettlementRecord{
		BaseEntity:     shared.NewBaseEntity(),
		TenantID:       entry.TenantID,
		EntryID:        entry.ID,
		EntryKind:      entry.Kind,
		Amount:         amount.Amount(),
		Currency:       amount.Currency(),
		UsdEquivAmount: amount.Amount().Mul(stamp.Rate),
		FxRateUsed:     stamp.Rate,
		FxRateSource:   stamp.Source,
		FxRateProvider: stamp.Provider,
		PaymentDate:    paymentDate,
		Reference:      reference,
	}, nil
}

// IsReversal reports whether this record compensates another
func (r *SettlementRecord) IsReversal() bool {
	return r.ReversesID != nil
}

// Reverse creates the compensating record; the stamp is reused so the USD
// contribution nets to exactly zero.
func (r *SettlementRecord) Reverse(reference string) (*SettlementRecord, error) {
	if r.IsReversal() {
		return nil, shared.NewDomainError("INVALID_STATE", "A reversal cannot be reversed")
	}
	id := r.ID
	return &SettlementRecord{
		BaseEntity:     shared.NewBaseEntity(),
		TenantID:       r.TenantID,
		EntryID:        r.EntryID,
		EntryKind:      r.EntryKind,
		Amount:         r.Amount.Neg(),
		Currency:       r.Currency,
		UsdEquivAmount: r.UsdEquivAmount.Neg(),
		FxRateUsed:     r.FxRateUsed,
		FxRateSource:   r.FxRateSource,
		FxRateProvider: r.FxRateProvider,
		PaymentDate:    time.Now(),
		Reference:      reference,
		ReversesID:     &id,
	}, nil
}

// SumUSD totals the USD equivalents of records
func SumUSD(records []SettlementRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.UsdEquivAmount)
	}
	return total
}
