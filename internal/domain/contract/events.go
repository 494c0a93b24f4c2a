package contract

import (
	"time"

	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypeContract = "Contract"

	EventTypeContractCreated    = "ContractCreated"
	EventTypeContractItemBilled = "ContractItemBilled"
)

// ContractCreatedEvent is raised when a contract is created
type ContractCreatedEvent struct {
	shared.BaseDomainEvent
	ContractNumber string    `json:"contract_number"`
	CustomerID     uuid.UUID `json:"customer_id"`
}

// NewContractCreatedEvent creates a new ContractCreatedEvent
func NewContractCreatedEvent(c *Contract) *ContractCreatedEvent {
	return &ContractCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeContractCreated, AggregateTypeContract, c.ID, c.TenantID),
		ContractNumber:  c.ContractNumber,
		CustomerID:      c.CustomerID,
	}
}

// ContractItemBilledEvent is raised each time an item's billing date advances
type ContractItemBilledEvent struct {
	shared.BaseDomainEvent
	ItemID          uuid.UUID            `json:"item_id"`
	Amount          decimal.Decimal      `json:"amount"`
	Currency        valueobject.Currency `json:"currency"`
	BilledFor       time.Time            `json:"billed_for"`
	NextBillingDate time.Time            `json:"next_billing_date"`
}

// NewContractItemBilledEvent creates a new ContractItemBilledEvent
func NewContractItemBilledEvent(c *Contract, item *Item, billedFor time.Time) *ContractItemBilledEvent {
	return &ContractItemBilledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeContractItemBilled, AggregateTypeContract, c.ID, c.TenantID),
		ItemID:          item.ID,
		Amount:          item.Amount,
		Currency:        c.Currency,
		BilledFor:       billedFor,
		NextBillingDate: item.NextBillingDate,
	}
}
