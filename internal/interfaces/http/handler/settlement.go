package handler

import (
	"context"

	appfinance "github.com/finadmin/backend/internal/application/finance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SettlementAdmin reverses settlements and reconciles a tenant's ledger
type SettlementAdmin interface {
	ReverseSettlement(ctx context.Context, tenantID, settlementID uuid.UUID, req appfinance.ReverseSettlementRequest) (*appfinance.SettlementResponse, error)
	Reconcile(ctx context.Context, tenantID uuid.UUID) (*appfinance.ReconcileResult, error)
}

// SettlementHandler handles settlement endpoints that are not tied to one ledger kind
type SettlementHandler struct {
	BaseHandler
	settlements SettlementAdmin
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(settlements SettlementAdmin) *SettlementHandler {
	return &SettlementHandler{settlements: settlements}
}

// Reverse godoc
// @Summary      Reverse a settlement with a compensating record
// @Tags         finance
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Settlement ID" format(uuid)
// @Param        request body appfinance.ReverseSettlementRequest false "Reference"
// @Success      201 {object} dto.Response{data=appfinance.SettlementResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /finance/settlements/{id}/reverse [post]
func (h *SettlementHandler) Reverse(c *gin.Context) {
	tenantID, ok := h.tenantFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id", "settlement")
	if !ok {
		return
	}

	var req appfinance.ReverseSettlementRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	record, err := h.settlements.ReverseSettlement(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, record)
}

// Reconcile godoc
// @Summary      Recompute settled totals and statuses for every entry of the tenant
// @Tags         finance
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Success      200 {object} dto.Response{data=appfinance.ReconcileResult}
// @Router       /finance/reconcile [post]
func (h *SettlementHandler) Reconcile(c *gin.Context) {
	tenantID, ok := h.tenantFrom(c)
	if !ok {
		return
	}

	result, err := h.settlements.Reconcile(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
