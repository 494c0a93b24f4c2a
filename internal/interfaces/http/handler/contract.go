package handler

import (
	"context"
	"time"

	appcontract "github.com/finadmin/backend/internal/application/contract"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContractService manages recurring billing contracts
type ContractService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req appcontract.CreateContractRequest) (*appcontract.ContractResponse, error)
	Get(ctx context.Context, tenantID, contractID uuid.UUID) (*appcontract.ContractResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter appcontract.ListFilter) ([]appcontract.ContractResponse, int64, error)
	AddItem(ctx context.Context, tenantID, contractID uuid.UUID, req appcontract.AddItemRequest) (*appcontract.ContractResponse, error)
	Suspend(ctx context.Context, tenantID, contractID uuid.UUID) (*appcontract.ContractResponse, error)
	Resume(ctx context.Context, tenantID, contractID uuid.UUID) (*appcontract.ContractResponse, error)
	Terminate(ctx context.Context, tenantID, contractID uuid.UUID) (*appcontract.ContractResponse, error)
	Advance(ctx context.Context, tenantID, contractID uuid.UUID, asOf time.Time) (*appcontract.AdvanceResult, error)
}

// ContractHandler handles contract endpoints
type ContractHandler struct {
	BaseHandler
	contracts ContractService
}

// NewContractHandler creates a new ContractHandler
func NewContractHandler(contracts ContractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

// Create godoc
// @Summary      Create a contract with optional items
// @Tags         contracts
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        request body appcontract.CreateContractRequest true "Contract"
// @Success      201 {object} dto.Response{data=appcontract.ContractResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /contracts [post]
func (h *ContractHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantFrom(c)
	if !ok {
		return
	}

	var req appcontract.CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	contract, err := h.contracts.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, contract)
}

// List godoc
// @Summary      List contracts
// @Tags         contracts
// @Produce      json
// @Param        X-Tenant-ID header string true  "Tenant ID"
// @Param        page        query  int    false "Page number" default(1)
// @Param        page_size   query  int    false "Page size" default(20)
// @Param        status      query  string false "ACTIVE, SUSPENDED or TERMINATED"
// @Param        customer_id query  string false "Customer" format(uuid)
// @Success      200 {object} dto.Response{data=[]appcontract.ContractResponse,meta=dto.Meta}
// @Router       /contracts [get]
func (h *ContractHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantFrom(c)
	if !ok {
		return
	}

	var filter appcontract.ListFilter
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

	contracts, total, err := h.contracts.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, contracts, total, filter.Page, filter.PageSize)
}

// Get godoc
// @Summary      Get a contract with its items
// @Tags         contracts
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Contract ID" format(uuid)
// @Success      200 {object} dto.Response{data=appcontract.ContractResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /contracts/{id} [get]
func (h *ContractHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id", "contract")
	if !ok {
		return
	}

	contract, err := h.contracts.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, contract)
}

// AddItem godoc
// @Summary      Add a recurring billing item
// @Tags         contracts
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Contract ID" format(uuid)
// @Param        request body appcontract.AddItemRequest true "Item"
// @Success      201 {object} dto.Response{data=appcontract.ContractResponse}
// @Router       /contracts/{id}/items [post]
func (h *ContractHandler) AddItem(c *gin.Context) {
	tenantID, ok := h.tenantFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id", "contract")
	if !ok {
		return
	}

	var req appcontract.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	contract, err := h.contracts.AddItem(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, contract)
}

// Suspend pauses billing for a contract
func (h *ContractHandler) Suspend(c *gin.Context) {
	h.transition(c, h.contracts.Suspend)
}

// Resume restarts billing for a suspended contract
func (h *ContractHandler) Resume(c *gin.Context) {
	h.transition(c, h.contracts.Resume)
}

// Terminate ends a contract permanently
func (h *ContractHandler) Terminate(c *gin.Context) {
	h.transition(c, h.contracts.Terminate)
}

func (h *ContractHandler) transition(c *gin.Context, fn func(context.Context, uuid.UUID, uuid.UUID) (*appcontract.ContractResponse, error)) {
	tenantID, ok := h.tenantFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id", "contract")
	if !ok {
		return
	}

	contract, err := fn(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, contract)
}

// Advance godoc
// @Summary      Bill every due item of a contract
// @Description  Each due period produces one receivable converted to USD; missed periods are caught up
// @Tags         contracts
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Contract ID" format(uuid)
// @Param        as_of query string false "Bill periods due on or before this date (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=appcontract.AdvanceResult}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /contracts/{id}/advance [post]
func (h *ContractHandler) Advance(c *gin.Context) {
	tenantID, ok := h.tenantFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id", "contract")
	if !ok {
		return
	}

	var asOf time.Time
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			h.BadRequest(c, "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	result, err := h.contracts.Advance(c.Request.Context(), tenantID, id, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
