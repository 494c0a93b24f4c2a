package models

import (
	"time"

	"github.com/finadmin/backend/internal/domain/finance"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntryModel is the persistence model for the LedgerEntry aggregate root.
// Payables and receivables share the table, distinguished by kind.
type LedgerEntryModel struct {
	TenantAggregateModel
	Kind             finance.EntryKind    `gorm:"type:varchar(20);not null;index"`
	EntryNumber      string               `gorm:"type:varchar(50);not null;index"`
	CounterpartyID   uuid.UUID            `gorm:"type:uuid;not null;index"`
	CounterpartyName string               `gorm:"type:varchar(200);not null"`
	OriginalAmount   decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	OriginalCurrency valueobject.Currency `gorm:"type:varchar(3);not null"`
	UsdEquivAmount   decimal.Decimal      `gorm:"type:decimal(30,12);not null"`
	FxRateUsed       decimal.Decimal      `gorm:"type:decimal(24,12);not null"`
	FxRateSource     string               `gorm:"type:varchar(20);not null"`
	FxRateProvider   string               `gorm:"type:varchar(50);not null;default:''"`
	FxRateTimestamp  time.Time            `gorm:"not null"`
	SettledUsdAmount decimal.Decimal      `gorm:"type:decimal(30,12);not null;default:0"`
	Status           finance.EntryStatus  `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	DueDate          *time.Time           `gorm:"index"`
	SourceRef        string               `gorm:"type:varchar(100)"`
	Remark           string               `gorm:"type:text"`
	PaidAt           *time.Time
	CancelledAt      *time.Time
	CancelReason     string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// ToDomain converts the persistence model to a domain LedgerEntry
func (m *LedgerEntryModel) ToDomain() *finance.LedgerEntry {
	e := &finance.LedgerEntry{
		Kind:             m.Kind,
		EntryNumber:      m.EntryNumber,
		CounterpartyID:   m.CounterpartyID,
		CounterpartyName: m.CounterpartyName,
		OriginalAmount:   m.OriginalAmount,
		OriginalCurrency: m.OriginalCurrency,
		UsdEquivAmount:   m.UsdEquivAmount,
		FxRateUsed:       m.FxRateUsed,
		FxRateSource:     m.FxRateSource,
		FxRateProvider:   m.FxRateProvider,
		FxRateTimestamp:  m.FxRateTimestamp,
		SettledUsdAmount: m.SettledUsdAmount,
		Status:           m.Status,
		DueDate:          m.DueDate,
		SourceRef:        m.SourceRef,
		Remark:           m.Remark,
		PaidAt:           m.PaidAt,
		CancelledAt:      m.CancelledAt,
		CancelReason:     m.CancelReason,
	}
	e.TenantAggregateRoot = m.aggregate()
	return e
}

// FromDomain populates the persistence model from a domain LedgerEntry
func (m *LedgerEntryModel) FromDomain(e *finance.LedgerEntry) {
	m.setAggregate(e.TenantAggregateRoot)
	m.Kind = e.Kind
	m.EntryNumber = e.EntryNumber
	m.CounterpartyID = e.CounterpartyID
	m.CounterpartyName = e.CounterpartyName
	m.OriginalAmount = e.OriginalAmount
	m.OriginalCurrency = e.OriginalCurrency
	m.UsdEquivAmount = e.UsdEquivAmount
	m.FxRateUsed = e.FxRateUsed
	m.FxRateSource = e.FxRateSource
	m.FxRateProvider = e.FxRateProvider
	m.FxRateTimestamp = e.FxRateTimestamp
	m.SettledUsdAmount = e.SettledUsdAmount
	m.Status = e.Status
	m.DueDate = e.DueDate
	m.SourceRef = e.SourceRef
	m.Remark = e.Remark
	m.PaidAt = e.PaidAt
	m.CancelledAt = e.CancelledAt
	m.CancelReason = e.CancelReason
}

// LedgerEntryModelFromDomain creates a persistence model from a domain LedgerEntry
func LedgerEntryModelFromDomain(e *finance.LedgerEntry) *LedgerEntryModel {
	m := &LedgerEntryModel{}
	m.FromDomain(e)
	return m
}

// SettlementRecordModel is an append-only payment or receipt row
type SettlementRecordModel struct {
	BaseModel
	TenantID       uuid.UUID            `gorm:"type:uuid;not null;index"`
	EntryID        uuid.UUID            `gorm:"type:uuid;not null;index"`
	EntryKind      finance.EntryKind    `gorm:"type:varchar(20);not null"`
	Amount         decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Currency       valueobject.Currency `gorm:"type:varchar(3);not null"`
	UsdEquivAmount decimal.Decimal      `gorm:"type:decimal(30,12);not null"`
	FxRateUsed     decimal.Decimal      `gorm:"type:decimal(24,12);not null"`
	FxRateSource   string               `gorm:"type:varchar(20);not null"`
	FxRateProvider string               `gorm:"type:varchar(50);not null;default:''"`
	PaymentDate    time.Time            `gorm:"not null"`
	Reference      string               `gorm:"type:varchar(100)"`
	ReversesID     *uuid.UUID           `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (SettlementRecordModel) TableName() string {
	return "settlement_records"
}

// ToDomain converts the persistence model to a domain SettlementRecord
func (m *SettlementRecordModel) ToDomain() *finance.SettlementRecord {
	return &finance.SettlementRecord{
		BaseEntity:     m.entity(),
		TenantID:       m.TenantID,
		EntryID:        m.EntryID,
		EntryKind:      m.EntryKind,
		Amount:         m.Amount,
		Currency:       m.Currency,
		UsdEquivAmount: m.UsdEquivAmount,
		FxRateUsed:     m.FxRateUsed,
		FxRateSource:   m.FxRateSource,
		FxRateProvider: m.FxRateProvider,
		PaymentDate:    m.PaymentDate,
		Reference:      m.Reference,
		ReversesID:     m.ReversesID,
	}
}

// SettlementRecordModelFromDomain creates a persistence model from a domain SettlementRecord
func SettlementRecordModelFromDomain(r *finance.SettlementRecord) *SettlementRecordModel {
	m := &SettlementRecordModel{
		TenantID:       r.TenantID,
		EntryID:        r.EntryID,
		EntryKind:      r.EntryKind,
		Amount:         r.Amount,
		Currency:       r.Currency,
		UsdEquivAmount: r.UsdEquivAmount,
		FxRateUsed:     r.FxRateUsed,
		FxRateSource:   r.FxRateSource,
		FxRateProvider: r.FxRateProvider,
		PaymentDate:    r.PaymentDate,
		Reference:      r.Reference,
		ReversesID:     r.ReversesID,
	}
	m.setEntity(r.BaseEntity)
	return m
}
