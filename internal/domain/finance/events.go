package finance

import (
	"time"

	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypeLedgerEntry = "LedgerEntry"

	EventTypeLedgerEntryCreated       = "LedgerEntryCreated"
	EventTypeLedgerEntryRestamped     = "LedgerEntryRestamped"
	EventTypeLedgerEntryCancelled     = "LedgerEntryCancelled"
	EventTypeLedgerEntryStatusChanged = "LedgerEntryStatusChanged"
	EventTypeSettlementRecorded       = "SettlementRecorded"
)

// LedgerEntryCreatedEvent is raised when an AP or AR entry is created
type LedgerEntryCreatedEvent struct {
	shared.BaseDomainEvent
	Kind             EntryKind            `json:"kind"`
	EntryNumber      string               `json:"entry_number"`
	CounterpartyID   uuid.UUID            `json:"counterparty_id"`
	OriginalAmount   decimal.Decimal      `json:"original_amount"`
	OriginalCurrency valueobject.Currency `json:"original_currency"`
	UsdEquivAmount   decimal.Decimal      `json:"usd_equiv_amount"`
	FxRateUsed       decimal.Decimal      `json:"fx_rate_used"`
	FxRateProvider   string               `json:"fx_rate_provider"`
	DueDate          *time.Time           `json:"due_date,omitempty"`
}

// NewLedgerEntryCreatedEvent creates a new LedgerEntryCreatedEvent
func NewLedgerEntryCreatedEvent(e *LedgerEntry) *LedgerEntryCreatedEvent {
	return &LedgerEntryCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeLedgerEntryCreated, AggregateTypeLedgerEntry, e.ID, e.TenantID),
		Kind:             e.Kind,
		EntryNumber:      e.EntryNumber,
		CounterpartyID:   e.CounterpartyID,
		OriginalAmount:   e.OriginalAmount,
		OriginalCurrency: e.OriginalCurrency,
		UsdEquivAmount:   e.UsdEquivAmount,
		FxRateUsed:       e.FxRateUsed,
		FxRateProvider:   e.FxRateProvider,
		DueDate:          e.DueDate,
	}
}

// LedgerEntryRestampedEvent is raised when amount or currency change
type LedgerEntryRestampedEvent struct {
	shared.BaseDomainEvent
	OriginalAmount   decimal.Decimal      `json:"original_amount"`
	OriginalCurrency valueobject.Currency `json:"original_currency"`
	UsdEquivAmount   decimal.Decimal      `json:"usd_equiv_amount"`
	FxRateUsed       decimal.Decimal      `json:"fx_rate_used"`
	FxRateSource     string               `json:"fx_rate_source"`
	FxRateProvider   string               `json:"fx_rate_provider"`
}

// NewLedgerEntryRestampedEvent creates a new LedgerEntryRestampedEvent
func NewLedgerEntryRestampedEvent(e *LedgerEntry) *LedgerEntryRestampedEvent {
	return &LedgerEntryRestampedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeLedgerEntryRestamped, AggregateTypeLedgerEntry, e.ID, e.TenantID),
		OriginalAmount:   e.OriginalAmount,
		OriginalCurrency: e.OriginalCurrency,
		UsdEquivAmount:   e.UsdEquivAmount,
		FxRateUsed:       e.FxRateUsed,
		FxRateSource:     e.FxRateSource,
		FxRateProvider:   e.FxRateProvider,
	}
}

// LedgerEntryCancelledEvent is raised when an entry is voided
type LedgerEntryCancelledEvent struct {
	shared.BaseDomainEvent
	EntryNumber  string `json:"entry_number"`
	CancelReason string `json:"cancel_reason"`
}

// NewLedgerEntryCancelledEvent creates a new LedgerEntryCancelledEvent
func NewLedgerEntryCancelledEvent(e *LedgerEntry) *LedgerEntryCancelledEvent {
	return &LedgerEntryCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLedgerEntryCancelled, AggregateTypeLedgerEntry, e.ID, e.TenantID),
		EntryNumber:     e.EntryNumber,
		CancelReason:    e.CancelReason,
	}
}

// LedgerEntryStatusChangedEvent is raised by the settlement aggregator
type LedgerEntryStatusChangedEvent struct {
	shared.BaseDomainEvent
	Kind             EntryKind       `json:"kind"`
	EntryNumber      string          `json:"entry_number"`
	PreviousStatus   EntryStatus     `json:"previous_status"`
	Status           EntryStatus     `json:"status"`
	UsdEquivAmount   decimal.Decimal `json:"usd_equiv_amount"`
	SettledUsdAmount decimal.Decimal `json:"settled_usd_amount"`
}

// NewLedgerEntryStatusChangedEvent creates a new LedgerEntryStatusChangedEvent
func NewLedgerEntryStatusChangedEvent(e *LedgerEntry, previous EntryStatus, settled decimal.Decimal) *LedgerEntryStatusChangedEvent {
	return &LedgerEntryStatusChangedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeLedgerEntryStatusChanged, AggregateTypeLedgerEntry, e.ID, e.TenantID),
		Kind:             e.Kind,
		EntryNumber:      e.EntryNumber,
		PreviousStatus:   previous,
		Status:           e.Status,
		UsdEquivAmount:   e.UsdEquivAmount,
		SettledUsdAmount: settled,
	}
}

// SettlementRecordedEvent is raised when a payment, receipt or reversal is stored
type SettlementRecordedEvent struct {
	shared.BaseDomainEvent
	SettlementID   uuid.UUID            `json:"settlement_id"`
	Amount         decimal.Decimal      `json:"amount"`
	Currency       valueobject.Currency `json:"currency"`
	UsdEquivAmount decimal.Decimal      `json:"usd_equiv_amount"`
	ReversesID     *uuid.UUID           `json:"reverses_id,omitempty"`
}

// NewSettlementRecordedEvent creates a new SettlementRecordedEvent
func NewSettlementRecordedEvent(r *SettlementRecord) *SettlementRecordedEvent {
	return &SettlementRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSettlementRecorded, AggregateTypeLedgerEntry, r.EntryID, r.TenantID),
		SettlementID:    r.ID,
		Amount:          r.Amount,
		Currency:        r.Currency,
		UsdEquivAmount:  r.UsdEquivAmount,
		ReversesID:      r.ReversesID,
	}
}
