package contract

import (
	"time"

	"github.com/finadmin/backend/internal/domain/contract"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateContractRequest creates a contract with optional initial items
type CreateContractRequest struct {
	ContractNumber string           `json:"contract_number" binding:"required,min=1,max=50"`
	CustomerID     uuid.UUID        `json:"customer_id" binding:"required"`
	CustomerName   string           `json:"customer_name" binding:"required,min=1,max=200"`
	Currency       string           `json:"currency" binding:"required,iso4217"`
	StartDate      time.Time        `json:"start_date" binding:"required"`
	EndDate        *time.Time       `json:"end_date"`
	Remark         string           `json:"remark" binding:"max=500"`
	Items          []AddItemRequest `json:"items" binding:"omitempty,dive"`
}

// AddItemRequest adds a recurring billing line. A missing first billing date
// means the contract start date.
type AddItemRequest struct {
	Description      string          `json:"description" binding:"required,min=1,max=200"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	Frequency        string          `json:"frequency" binding:"required,frequency"`
	FirstBillingDate *time.Time      `json:"first_billing_date"`
}

// ListFilter carries contract list query parameters
type ListFilter struct {
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search     string     `form:"search"`
	Status     string     `form:"status" binding:"omitempty,oneof=ACTIVE SUSPENDED TERMINATED"`
	CustomerID *uuid.UUID `form:"customer_id"`
}

// ItemResponse is a contract item in API responses
type ItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	Frequency       string          `json:"frequency"`
	BillingDay      int             `json:"billing_day"`
	NextBillingDate time.Time       `json:"next_billing_date"`
	LastBilledAt    *time.Time      `json:"last_billed_at,omitempty"`
	Active          bool            `json:"active"`
}

// ContractResponse is a contract in API responses
type ContractResponse struct {
	ID             uuid.UUID      `json:"id"`
	TenantID       uuid.UUID      `json:"tenant_id"`
	ContractNumber string         `json:"contract_number"`
	CustomerID     uuid.UUID      `json:"customer_id"`
	CustomerName   string         `json:"customer_name"`
	Currency       string         `json:"currency"`
	Status         string         `json:"status"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        *time.Time     `json:"end_date,omitempty"`
	Remark         string         `json:"remark,omitempty"`
	Items          []ItemResponse `json:"items"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Version        int            `json:"version"`
}

// ToContractResponse converts a domain contract to its response
func ToContractResponse(c *contract.Contract) ContractResponse {
	items := make([]ItemResponse, len(c.Items))
	for i, it := range c.Items {
		items[i] = ItemResponse{
			ID:              it.ID,
			Description:     it.Description,
			Amount:          it.Amount,
			Frequency:       it.Frequency.String(),
			BillingDay:      it.BillingDay,
			NextBillingDate: it.NextBillingDate,
			LastBilledAt:    it.LastBilledAt,
			Active:          it.Active,
		}
	}
	return ContractResponse{
		ID:             c.ID,
		TenantID:       c.TenantID,
		ContractNumber: c.ContractNumber,
		CustomerID:     c.CustomerID,
		CustomerName:   c.CustomerName,
		Currency:       c.Currency.String(),
		Status:         string(c.Status),
		StartDate:      c.StartDate,
		EndDate:        c.EndDate,
		Remark:         c.Remark,
		Items:          items,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		Version:        c.Version,
	}
}

// BilledItem is one receivable produced by advancing a contract item
type BilledItem struct {
	ContractID      uuid.UUID       `json:"contract_id"`
	ItemID          uuid.UUID       `json:"item_id"`
	BilledFor       time.Time       `json:"billed_for"`
	NextBillingDate time.Time       `json:"next_billing_date"`
	EntryID         uuid.UUID       `json:"entry_id"`
	EntryNumber     string          `json:"entry_number"`
	UsdEquivAmount  decimal.Decimal `json:"usd_equiv_amount"`
}

// AdvanceResult reports a billing run
type AdvanceResult struct {
	Contracts int          `json:"contracts"`
	Billed    []BilledItem `json:"billed"`
	Failed    int          `json:"failed"`
}
