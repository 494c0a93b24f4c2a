package contract

import (
	"fmt"
	"time"

	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle of a contract
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusSuspended  Status = "SUSPENDED"
	StatusTerminated Status = "TERMINATED"
)

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusSuspended || s == StatusTerminated
}

// Item is one recurring billing line of a contract
type Item struct {
	ID              uuid.UUID
	ContractID      uuid.UUID
	Description     string
	Amount          decimal.Decimal
	Frequency       Frequency
	BillingDay      int
	NextBillingDate time.Time
	LastBilledAt    *time.Time
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsDue reports whether the item should bill on or before asOf
func (i *Item) IsDue(asOf time.Time) bool {
	return i.Active && !i.NextBillingDate.After(asOf)
}

// Contract holds recurring billing terms with a customer
type Contract struct {
	shared.TenantAggregateRoot
	ContractNumber string
	CustomerID     uuid.UUID
	CustomerName   string
	Currency       valueobject.Currency
	Status         Status
	StartDate      time.Time
	EndDate        *time.Time
	Items          []Item
	Remark         string
}

// NewContract creates an ACTIVE contract without items
func NewContract(tenantID uuid.UUID, number string, customerID uuid.UUID, customerName string, currency valueobject.Currency, start time.Time, end *time.Time) (*Contract, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrInvalidTenant
	}
	if number == "" || len(number) > 50 {
		return nil, shared.NewDomainError("INVALID_CONTRACT_NUMBER", "Contract number must be 1-50 characters")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if customerName == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if currency == "" {
		return nil, shared.ErrInvalidCurrency
	}
	if start.IsZero() {
		return nil, shared.NewDomainError("INVALID_START_DATE", "Start date is required")
	}
	if end != nil && end.Before(start) {
		return nil, shared.NewDomainError("INVALID_END_DATE", "End date cannot precede start date")
	}

	c := &Contract{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ContractNumber:      number,
		CustomerID:          customerID,
		CustomerName:        customerName,
		Currency:            currency,
		Status:              StatusActive,
		StartDate:           start,
		EndDate:             end,
		Items:               make([]Item, 0),
	}
	c.AddDomainEvent(NewContractCreatedEvent(c))
	return c, nil
}

// AddItem appends a billing line; firstBilling also fixes the billing day
func (c *Contract) AddItem(description string, amount decimal.Decimal, freq Frequency, firstBilling time.Time) (*Item, error) {
	if c.Status == StatusTerminated {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add items to a terminated contract")
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Item description cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Item amount must be positive")
	}
	if !amount.Equal(amount.Round(valueobject.AmountScale)) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Item amount supports at most 4 decimal places")
	}
	if !freq.IsValid() {
		return nil, shared.NewDomainError("INVALID_FREQUENCY", fmt.Sprintf("Unknown frequency %q", freq))
	}
	if firstBilling.IsZero() {
		firstBilling = c.StartDate
	}
	now := time.Now()
	item := Item{
		ID:              uuid.New(),
		ContractID:      c.ID,
		Description:     description,
		Amount:          amount,
		Frequency:       freq,
		BillingDay:      firstBilling.Day(),
		NextBillingDate: firstBilling,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	c.Items = append(c.Items, item)
	c.Touch()
	c.IncrementVersion()
	return &c.Items[len(c.Items)-1], nil
}

// DueItems returns the active items billing on or before asOf
func (c *Contract) DueItems(asOf time.Time) []*Item {
	if c.Status != StatusActive {
		return nil
	}
	var due []*Item
	for i := range c.Items {
		if c.Items[i].IsDue(asOf) {
			due = append(due, &c.Items[i])
		}
	}
	return due
}

// AdvanceItem records a billing on the item's current date and moves it one
// period forward. Items whose next date passes EndDate are deactivated.
func (c *Contract) AdvanceItem(itemID uuid.UUID, billedAt time.Time) (billed time.Time, err error) {
	if c.Status != StatusActive {
		return time.Time{}, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot bill contract in %s status", c.Status))
	}
	item := c.findItem(itemID)
	if item == nil {
		return time.Time{}, shared.NewDomainError("ITEM_NOT_FOUND", "Contract item not found")
	}
	if !item.Active {
		return time.Time{}, shared.NewDomainError("INVALID_STATE", "Contract item is inactive")
	}

	billed = item.NextBillingDate
	item.LastBilledAt = &billedAt
	item.NextBillingDate = NextDateAnchored(item.NextBillingDate, item.Frequency, item.BillingDay)
	if c.EndDate != nil && item.NextBillingDate.After(*c.EndDate) {
		item.Active = false
	}
	item.UpdatedAt = time.Now()
	c.Touch()
	c.IncrementVersion()
	c.AddDomainEvent(NewContractItemBilledEvent(c, item, billed))
	return billed, nil
}

// Suspend pauses billing
func (c *Contract) Suspend() error {
	if c.Status != StatusActive {
		return shared.NewDomainError("INVALID_STATE", "Only active contracts can be suspended")
	}
	c.Status = StatusSuspended
	c.Touch()
	c.IncrementVersion()
	return nil
}

// Resume restarts billing of a suspended contract
func (c *Contract) Resume() error {
	if c.Status != StatusSuspended {
		return shared.NewDomainError("INVALID_STATE", "Only suspended contracts can be resumed")
	}
	c.Status = StatusActive
	c.Touch()
	c.IncrementVersion()
	return nil
}

// Terminate ends the contract and deactivates its items
func (c *Contract) Terminate() error {
	if c.Status == StatusTerminated {
		return shared.NewDomainError("INVALID_STATE", "Contract is already terminated")
	}
	c.Status = StatusTerminated
	for i := range c.Items {
		c.Items[i].Active = false
	}
	c.Touch()
	c.IncrementVersion()
	return nil
}

func (c *Contract) findItem(id uuid.UUID) *Item {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return &c.Items[i]
		}
	}
	return nil
}
