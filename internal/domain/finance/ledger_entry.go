package finance

import (
	"fmt"
	"time"

	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind distinguishes accounts payable from accounts receivable
type EntryKind string

const (
	EntryKindPayable    EntryKind = "PAYABLE"    // Money owed to a supplier
	EntryKindReceivable EntryKind = "RECEIVABLE" // Money owed by a customer
)

// IsValid checks if the kind is known
func (k EntryKind) IsValid() bool {
	return k == EntryKindPayable || k == EntryKindReceivable
}

// String returns the string representation of EntryKind
func (k EntryKind) String() string {
	return string(k)
}

// NumberPrefix is the prefix used for generated entry numbers
func (k EntryKind) NumberPrefix() string {
	if k == EntryKindReceivable {
		return "AR"
	}
	return "AP"
}

// SettlementName is what a settlement against this kind is called
func (k EntryKind) SettlementName() string {
	if k == EntryKindReceivable {
		return "receipt"
	}
	return "payment"
}

// EntryStatus represents the settlement status of a ledger entry
type EntryStatus string

const (
	EntryStatusOpen      EntryStatus = "OPEN"      // Nothing settled
	EntryStatusPartial   EntryStatus = "PARTIAL"   // 0 < settled < amount
	EntryStatusPaid      EntryStatus = "PAID"      // settled >= amount
	EntryStatusCancelled EntryStatus = "CANCELLED" // Voided; never recomputed
)

// IsValid checks if the status is known
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusOpen, EntryStatusPartial, EntryStatusPaid, EntryStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of EntryStatus
func (s EntryStatus) String() string {
	return string(s)
}

// CanSettle returns true if settlements may be recorded in this status
func (s EntryStatus) CanSettle() bool {
	return s == EntryStatusOpen || s == EntryStatusPartial
}

// rank orders non-cancelled statuses by settlement progress
func (s EntryStatus) rank() int {
	switch s {
	case EntryStatusPartial:
		return 1
	case EntryStatusPaid:
		return 2
	}
	return 0
}

// FxStamp is the conversion applied when an amount was normalized to USD.
// Source is how the rate was resolved (TABLE, API, FALLBACK, IDENTITY);
// Provider names who published it.
type FxStamp struct {
	Rate      decimal.Decimal
	Source    string
	Provider  string
	Timestamp time.Time
}

// Validate checks the stamp is usable
func (s FxStamp) Validate() error {
	if !s.Rate.IsPositive() {
		return shared.NewDomainError("INVALID_FX_RATE", "FX rate must be positive")
	}
	if s.Source == "" {
		return shared.NewDomainError("INVALID_FX_RATE", "FX rate source is required")
	}
	return nil
}

// ErrHasSettlements is returned when a change would invalidate recorded settlements
var ErrHasSettlements = shared.NewDomainError("HAS_SETTLEMENTS", "Entry already has settlements recorded")

// LedgerEntry is an AP or AR line kept in its original currency with a USD stamp.
// UsdEquivAmount always equals OriginalAmount * FxRateUsed.
type LedgerEntry struct {
	shared.TenantAggregateRoot
	Kind             EntryKind
	EntryNumber      string
	CounterpartyID   uuid.UUID
	CounterpartyName string
	OriginalAmount   decimal.Decimal
	OriginalCurrency valueobject.Currency
	UsdEquivAmount   decimal.Decimal
	FxRateUsed       decimal.Decimal
	FxRateSource     string
	FxRateProvider   string
	FxRateTimestamp  time.Time
	SettledUsdAmount decimal.Decimal
	Status           EntryStatus
	DueDate          *time.Time
	SourceRef        string
	Remark           string
	PaidAt           *time.Time
	CancelledAt      *time.Time
	CancelReason     string
}

// NewLedgerEntry creates an OPEN entry stamped with its USD equivalent
func NewLedgerEntry(
	tenantID uuid.UUID,
	kind EntryKind,
	entryNumber string,
	counterpartyID uuid.UUID,
	counterpartyName string,
	amount valueobject.Money,
	stamp FxStamp,
	dueDate *time.Time,
) (*LedgerEntry, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrInvalidTenant
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Entry kind must be PAYABLE or RECEIVABLE")
	}
	if entryNumber == "" {
		return nil, shared.NewDomainError("INVALID_ENTRY_NUMBER", "Entry number cannot be empty")
	}
	if len(entryNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_ENTRY_NUMBER", "Entry number cannot exceed 50 characters")
	}
	if counterpartyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY", "Counterparty ID cannot be empty")
	}
	if counterpartyName == "" {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY_NAME", "Counterparty name cannot be empty")
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if err := stamp.Validate(); err != nil {
		return nil, err
	}

	e := &LedgerEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Kind:                kind,
		EntryNumber:         entryNumber,
		CounterpartyID:      counterpartyID,
		CounterpartyName:    counterpartyName,
		SettledUsdAmount:    decimal.Zero,
		Status:              EntryStatusOpen,
		DueDate:             dueDate,
	}
	e.applyStamp(amount, stamp)
	e.AddDomainEvent(NewLedgerEntryCreatedEvent(e))
	return e, nil
}

func validateAmount(amount valueobject.Money) error {
	if amount.Currency() == "" {
		return shared.ErrInvalidCurrency
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	if !amount.Amount().Equal(amount.Amount().Round(valueobject.AmountScale)) {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount supports at most 4 decimal places")
	}
	return nil
}

func (e *LedgerEntry) applyStamp(amount valueobject.Money, s FxStamp) {
	e.OriginalAmount = amount.Amount()
	e.OriginalCurrency = amount.Currency()
	e.FxRateUsed = s.Rate
	e.FxRateSource = s.Source
	e.FxRateProvider = s.Provider
	e.FxRateTimestamp = s.Timestamp
	e.UsdEquivAmount = amount.Amount().Mul(s.Rate)
}

// NeedsRestamp reports whether amount differs from what is stamped
func (e *LedgerEntry) NeedsRestamp(amount valueobject.Money) bool {
	return !e.OriginalAmount.Equal(amount.Amount()) || e.OriginalCurrency != amount.Currency()
}

// ChangeAmount replaces amount and currency and re-stamps the USD equivalent.
// Rejected once any settlement exists.
func (e *LedgerEntry) ChangeAmount(amount valueobject.Money, s FxStamp, hasSettlements bool) error {
	if e.Status == EntryStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot modify a cancelled entry")
	}
	if hasSettlements || !e.SettledUsdAmount.IsZero() {
		return ErrHasSettlements
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	e.applyStamp(amount, s)
	e.Touch()
	e.IncrementVersion()
	e.AddDomainEvent(NewLedgerEntryRestampedEvent(e))
	return nil
}

// UpdateDetails changes fields that do not affect the USD stamp
func (e *LedgerEntry) UpdateDetails(counterpartyName string, dueDate *time.Time, remark string) error {
	if e.Status == EntryStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot modify a cancelled entry")
	}
	if counterpartyName != "" {
		e.CounterpartyName = counterpartyName
	}
	e.DueDate = dueDate
	e.Remark = remark
	e.Touch()
	e.IncrementVersion()
	return nil
}

// Cancel voids the entry; only allowed while nothing is settled
func (e *LedgerEntry) Cancel(reason string, hasSettlements bool) error {
	if e.Status == EntryStatusCancelled || e.Status == EntryStatusPaid {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel entry in %s status", e.Status))
	}
	if hasSettlements || !e.SettledUsdAmount.IsZero() {
		return ErrHasSettlements
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}
	now := time.Now()
	e.Status = EntryStatusCancelled
	e.CancelledAt = &now
	e.CancelReason = reason
	e.UpdatedAt = now
	e.IncrementVersion()
	e.AddDomainEvent(NewLedgerEntryCancelledEvent(e))
	return nil
}

// OutstandingUSD is the unsettled USD balance, never negative
func (e *LedgerEntry) OutstandingUSD() decimal.Decimal {
	if e.Status == EntryStatusCancelled {
		return decimal.Zero
	}
	out := e.UsdEquivAmount.Sub(e.SettledUsdAmount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// IsOverdue returns true if the entry is past due and still unsettled
func (e *LedgerEntry) IsOverdue(asOf time.Time) bool {
	if !e.Status.CanSettle() || e.DueDate == nil {
		return false
	}
	return asOf.After(*e.DueDate)
}

// DaysOverdue returns whole days past due (0 if not overdue)
func (e *LedgerEntry) DaysOverdue(asOf time.Time) int {
	if !e.IsOverdue(asOf) {
		return 0
	}
	return int(asOf.Sub(*e.DueDate).Hours() / 24)
}

// AmountMoney returns the original amount as Money
func (e *LedgerEntry) AmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(e.OriginalAmount, e.OriginalCurrency)
	return m
}
