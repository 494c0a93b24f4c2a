package finance

import (
	"time"

	"github.com/finadmin/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateLedgerEntryRequest creates a payable or receivable
type CreateLedgerEntryRequest struct {
	EntryNumber      string          `json:"entry_number" binding:"omitempty,max=50"`
	CounterpartyID   uuid.UUID       `json:"counterparty_id" binding:"required"`
	CounterpartyName string          `json:"counterparty_name" binding:"required,min=1,max=200"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	Currency         string          `json:"currency" binding:"required,iso4217"`
	DueDate          *time.Time      `json:"due_date"`
	SourceRef        string          `json:"source_ref" binding:"max=100"`
	Remark           string          `json:"remark" binding:"max=500"`
}

// UpdateLedgerEntryRequest changes an entry; a new amount or currency re-stamps the USD equivalent
type UpdateLedgerEntryRequest struct {
	CounterpartyName *string          `json:"counterparty_name" binding:"omitempty,min=1,max=200"`
	Amount           *decimal.Decimal `json:"amount"`
	Currency         *string          `json:"currency" binding:"omitempty,iso4217"`
	DueDate          *time.Time       `json:"due_date"`
	Remark           *string          `json:"remark" binding:"omitempty,max=500"`
}

func (r UpdateLedgerEntryRequest) changesAmount() bool {
	return r.Amount != nil || r.Currency != nil
}

func (r UpdateLedgerEntryRequest) changesDetails() bool {
	return r.CounterpartyName != nil || r.DueDate != nil || r.Remark != nil
}

// CancelLedgerEntryRequest voids an entry
type CancelLedgerEntryRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// LedgerEntryListFilter carries list query parameters
type LedgerEntryListFilter struct {
	Page           int        `form:"page" binding:"omitempty,min=1"`
	PageSize       int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy        string     `form:"order_by"`
	OrderDir       string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search         string     `form:"search"`
	Status         string     `form:"status" binding:"omitempty,oneof=OPEN PARTIAL PAID CANCELLED"`
	CounterpartyID *uuid.UUID `form:"counterparty_id"`
	DueBefore      *time.Time `form:"due_before" time_format:"2006-01-02"`
}

// LedgerEntryResponse is a ledger entry in API responses
type LedgerEntryResponse struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	Kind             string          `json:"kind"`
	EntryNumber      string          `json:"entry_number"`
	CounterpartyID   uuid.UUID       `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	OriginalCurrency string          `json:"original_currency"`
	UsdEquivAmount   decimal.Decimal `json:"usd_equiv_amount"`
	FxRateUsed       decimal.Decimal `json:"fx_rate_used"`
	FxRateSource     string          `json:"fx_rate_source"`
	FxRateProvider   string          `json:"fx_rate_provider"`
	FxRateTimestamp  time.Time       `json:"fx_rate_timestamp"`
	SettledUsdAmount decimal.Decimal `json:"settled_usd_amount"`
	OutstandingUSD   decimal.Decimal `json:"outstanding_usd"`
	Status           string          `json:"status"`
	DueDate          *time.Time      `json:"due_date,omitempty"`
	SourceRef        string          `json:"source_ref,omitempty"`
	Remark           string          `json:"remark,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason     string          `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Version          int             `json:"version"`
}

// ToLedgerEntryResponse converts a domain entry to its response
func ToLedgerEntryResponse(e *finance.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:               e.ID,
		TenantID:         e.TenantID,
		Kind:             e.Kind.String(),
		EntryNumber:      e.EntryNumber,
		CounterpartyID:   e.CounterpartyID,
		CounterpartyName: e.CounterpartyName,
		OriginalAmount:   e.OriginalAmount,
		OriginalCurrency: e.OriginalCurrency.String(),
		UsdEquivAmount:   e.UsdEquivAmount,
		FxRateUsed:       e.FxRateUsed,
		FxRateSource:     e.FxRateSource,
		FxRateProvider:   e.FxRateProvider,
		FxRateTimestamp:  e.FxRateTimestamp,
		SettledUsdAmount: e.SettledUsdAmount,
		OutstandingUSD:   e.OutstandingUSD(),
		Status:           e.Status.String(),
		DueDate:          e.DueDate,
		SourceRef:        e.SourceRef,
		Remark:           e.Remark,
		PaidAt:           e.PaidAt,
		CancelledAt:      e.CancelledAt,
		CancelReason:     e.CancelReason,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
		Version:          e.Version,
	}
}

// ToLedgerEntryResponses converts a slice of entries
func ToLedgerEntryResponses(entries []finance.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		out[i] = ToLedgerEntryResponse(&entries[i])
	}
	return out
}

// OverdueEntryResponse is an unsettled entry past its due date
type OverdueEntryResponse struct {
	LedgerEntryResponse
	DaysOverdue int `json:"days_overdue"`
}

// LedgerSummaryResponse aggregates USD balances of one kind
type LedgerSummaryResponse struct {
	Kind           string          `json:"kind"`
	OpenCount      int64           `json:"open_count"`
	PartialCount   int64           `json:"partial_count"`
	PaidCount      int64           `json:"paid_count"`
	TotalUSD       decimal.Decimal `json:"total_usd"`
	SettledUSD     decimal.Decimal `json:"settled_usd"`
	OutstandingUSD decimal.Decimal `json:"outstanding_usd"`
}

// RecordSettlementRequest records a payment against a payable or a receipt against a receivable.
// An empty currency means the entry's original currency.
type RecordSettlementRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Currency    string          `json:"currency" binding:"omitempty,iso4217"`
	PaymentDate *time.Time      `json:"payment_date"`
	Reference   string          `json:"reference" binding:"max=100"`
}

// ReverseSettlementRequest reverses a recorded settlement
type ReverseSettlementRequest struct {
	Reference string `json:"reference" binding:"max=100"`
}

// SettlementResponse is a settlement record together with the entry state it produced
type SettlementResponse struct {
	ID              uuid.UUID        `json:"id"`
	EntryID         uuid.UUID        `json:"entry_id"`
	EntryKind       string           `json:"entry_kind"`
	Amount          decimal.Decimal  `json:"amount"`
	Currency        string           `json:"currency"`
	UsdEquivAmount  decimal.Decimal  `json:"usd_equiv_amount"`
	FxRateUsed      decimal.Decimal  `json:"fx_rate_used"`
	FxRateSource    string           `json:"fx_rate_source"`
	FxRateProvider  string           `json:"fx_rate_provider"`
	PaymentDate     time.Time        `json:"payment_date"`
	Reference       string           `json:"reference,omitempty"`
	ReversesID      *uuid.UUID       `json:"reverses_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	EntryStatus     string           `json:"entry_status,omitempty"`
	EntrySettledUSD *decimal.Decimal `json:"entry_settled_usd,omitempty"`
}

// ToSettlementResponse converts a domain record to its response
func ToSettlementResponse(r *finance.SettlementRecord) SettlementResponse {
	return SettlementResponse{
		ID:             r.ID,
		EntryID:        r.EntryID,
		EntryKind:      r.EntryKind.String(),
		Amount:         r.Amount,
		Currency:       r.Currency.String(),
		UsdEquivAmount: r.UsdEquivAmount,
		FxRateUsed:     r.FxRateUsed,
		FxRateSource:   r.FxRateSource,
		FxRateProvider: r.FxRateProvider,
		PaymentDate:    r.PaymentDate,
		Reference:      r.Reference,
		ReversesID:     r.ReversesID,
		CreatedAt:      r.CreatedAt,
	}
}

// ReconcileResult reports a reconciliation run
type ReconcileResult struct {
	Tenants int `json:"tenants"`
	Checked int `json:"checked"`
	Changed int `json:"changed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
