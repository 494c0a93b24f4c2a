package handler

import (
	"context"
	"time"

	appfinance "github.com/finadmin/backend/internal/application/finance"
	"github.com/finadmin/backend/internal/domain/finance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerService manages payables and receivables
type LedgerService interface {
	Create(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, req appfinance.CreateLedgerEntryRequest) (*appfinance.LedgerEntryResponse, error)
	GetByID(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, id uuid.UUID) (*appfinance.LedgerEntryResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, filter appfinance.LedgerEntryListFilter) ([]appfinance.LedgerEntryResponse, int64, error)
	Update(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, id uuid.UUID, req appfinance.UpdateLedgerEntryRequest) (*appfinance.LedgerEntryResponse, error)
	Cancel(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, id uuid.UUID, req appfinance.CancelLedgerEntryRequest) (*appfinance.LedgerEntryResponse, error)
	Summary(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind) (*appfinance.LedgerSummaryResponse, error)
	ListOverdue(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, asOf time.Time) ([]appfinance.OverdueEntryResponse, error)
}

// SettlementRecorder records and lists settlements against one entry
type SettlementRecorder interface {
	RecordSettlement(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, entryID uuid.UUID, req appfinance.RecordSettlementRequest) (*appfinance.SettlementResponse, error)
	ListSettlements(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, entryID uuid.UUID) ([]appfinance.SettlementResponse, error)
}

// LedgerHandler serves one ledger kind: payables or receivables share the
// same routes under different prefixes
type LedgerHandler struct {
	BaseHandler
	kind        finance.EntryKind
	ledger      LedgerService
	settlements SettlementRecorder
}

// NewLedgerHandler creates a LedgerHandler for kind
func NewLedgerHandler(kind finance.EntryKind, ledger LedgerService, settlements SettlementRecorder) *LedgerHandler {
	return &LedgerHandler{
		kind:        kind,
		ledger:      ledger,
		settlements: settlements,
	}
}

func (h *LedgerHandler) label() string {
	if h.kind == finance.EntryKindPayable {
		return "payable"
	}
	return "receivable"
}

// Create godoc
// @Summary      Create a payable or receivable stamped with today's USD rate
// @Tags         finance
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        request body appfinance.CreateLedgerEntryRequest true "Entry"
// @Success      201 {object} dto.Response{data=appfinance.LedgerEntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /finance/payables [post]
// @Router       /finance/receivables [post]
func (h *LedgerHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantFrom(c)
	if !ok {
		return
	}

	var req appfinance.CreateLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	entry, err := h.ledger.Create(c.Request.Context(), tenantID, h.kind, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// List godoc
// @Summary      List entries with filtering and pagination
// @Tags         finance
// @Produce      json
// @Param        X-Tenant-ID     header string true  "Tenant ID"
// @Param        page            query  int    false "Page number" default(1)
// @Param        page_size       query  int    false "Page size" default(20)
// @Param        status          query  string false "OPEN, PARTIAL, PAID or CANCELLED"
// @Param        counterparty_id query  string false "Counterparty" format(uuid)
// @Param        due_before      query  string false "Due before (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=[]appfinance.LedgerEntryResponse,meta=dto.Meta}
// @Router       /finance/payables [get]
// @Router       /finance/receivables [get]
func (h *LedgerHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantFrom(c)
	if !ok {
		return
	}

	var filter appfinance.LedgerEntryListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	entries, total, err := h.ledger.List(c.Request.Context(), tenantID, h.kind, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, entries, total, filter.Page, filter.PageSize)
}

// Get godoc
// @Summary      Get an entry by ID
// @Tags         finance
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Entry ID" format(uuid)
// @Success      200 {object} dto.Response{data=appfinance.LedgerEntryResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /finance/payables/{id} [get]
// @Router       /finance/receivables/{id} [get]
func (h *LedgerHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id", h.label())
	if !ok {
		return
	}

	entry, err := h.ledger.GetByID(c.Request.Context(), tenantID, h.kind, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Update godoc
// @Summary      Update an entry; a new amount or currency re-stamps the USD equivalent
// @Tags         finance
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Entry ID" format(uuid)
// @Param        request body appfinance.UpdateLedgerEntryRequest true "Changes"
// @Success      200 {object} dto.Response{data=appfinance.LedgerEntryResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /finance/payables/{id} [put]
// @Router       /finance/receivables/{id} [put]
func (h *LedgerHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenantFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id", h.label())
	if !ok {
		return
	}

	var req appfinance.UpdateLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	entry, err := h.ledger.Update(c.Request.Context(), tenantID, h.kind, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Cancel godoc
// @Summary      Cancel an entry without settlements
// @Tags         finance
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Entry ID" format(uuid)
// @Param        request body appfinance.CancelLedgerEntryRequest true "Reason"
// @Success      200 {object} dto.Response{data=appfinance.LedgerEntryResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /finance/payables/{id}/cancel [post]
// @Router       /finance/receivables/{id}/cancel [post]
func (h *LedgerHandler) Cancel(c *gin.Context) {
	tenantID, ok := h.tenantFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id", h.label())
	if !ok {
		return
	}

	var req appfinance.CancelLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	entry, err := h.ledger.Cancel(c.Request.Context(), tenantID, h.kind, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Summary godoc
// @Summary      Outstanding USD totals for the ledger kind
// @Tags         finance
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Success      200 {object} dto.Response{data=appfinance.LedgerSummaryResponse}
// @Router       /finance/payables/summary [get]
// @Router       /finance/receivables/summary [get]
func (h *LedgerHandler) Summary(c *gin.Context) {
	tenantID, ok := h.tenantFrom(c)
	if !ok {
		return
	}

	summary, err := h.ledger.Summary(c.Request.Context(), tenantID, h.kind)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Overdue godoc
// @Summary      Unsettled entries past their due date
// @Tags         finance
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        as_of query string false "Reference date (YYYY-MM-DD), default today"
// @Success      200 {object} dto.Response{data=[]appfinance.OverdueEntryResponse}
// @Router       /finance/payables/overdue [get]
// @Router       /finance/receivables/overdue [get]
func (h *LedgerHandler) Overdue(c *gin.Context) {
	tenantID, ok := h.tenantFrom(c)
	if !ok {
		return
	}

	asOf := time.Now().UTC()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			h.BadRequest(c, "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	entries, err := h.ledger.ListOverdue(c.Request.Context(), tenantID, h.kind, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// RecordSettlement godoc
// @Summary      Record a payment (payables) or receipt (receivables)
// @Description  The amount is converted to USD at today's rate; the entry's settled total and status are recomputed in the same transaction
// @Tags         finance
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Entry ID" format(uuid)
// @Param        request body appfinance.RecordSettlementRequest true "Settlement"
// @Success      201 {object} dto.Response{data=appfinance.SettlementResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /finance/payables/{id}/payments [post]
// @Router       /finance/receivables/{id}/receipts [post]
func (h *LedgerHandler) RecordSettlement(c *gin.Context) {
	tenantID, ok := h.tenantFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id", h.label())
	if !ok {
		return
	}

	var req appfinance.RecordSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	record, err := h.settlements.RecordSettlement(c.Request.Context(), tenantID, h.kind, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, record)
}

// ListSettlements godoc
// @Summary      List settlements recorded against an entry
// @Tags         finance
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Entry ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]appfinance.SettlementResponse}
// @Router       /finance/payables/{id}/payments [get]
// @Router       /finance/receivables/{id}/receipts [get]
func (h *LedgerHandler) ListSettlements(c *gin.Context) {
	tenantID, ok := h.tenantFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id", h.label())
	if !ok {
		return
	}

	records, err := h.settlements.ListSettlements(c.Request.Context(), tenantID, h.kind, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}
