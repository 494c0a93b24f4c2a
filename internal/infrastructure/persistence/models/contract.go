package models

import (
	"time"

	"github.com/finadmin/backend/internal/domain/contract"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContractModel is the persistence model for the Contract aggregate root
type ContractModel struct {
	TenantAggregateModel
	ContractNumber string               `gorm:"type:varchar(50);not null;index"`
	CustomerID     uuid.UUID            `gorm:"type:uuid;not null;index"`
	CustomerName   string               `gorm:"type:varchar(200);not null"`
	Currency       valueobject.Currency `gorm:"type:varchar(3);not null"`
	Status         contract.Status      `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	StartDate      time.Time            `gorm:"type:date;not null"`
	EndDate        *time.Time           `gorm:"type:date"`
	Remark         string               `gorm:"type:text"`
	Items          []ContractItemModel  `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ContractModel) TableName() string {
	return "contracts"
}

// ContractItemModel is one recurring billing line
type ContractItemModel struct {
	ID              uuid.UUID          `gorm:"type:uuid;primary_key"`
	ContractID      uuid.UUID          `gorm:"type:uuid;not null;index"`
	TenantID        uuid.UUID          `gorm:"type:uuid;not null;index"`
	Description     string             `gorm:"type:varchar(200);not null"`
	Amount          decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	Frequency       contract.Frequency `gorm:"type:varchar(20);not null"`
	BillingDay      int                `gorm:"not null"`
	NextBillingDate time.Time          `gorm:"type:date;not null;index"`
	LastBilledAt    *time.Time
	Active          bool      `gorm:"not null;default:true;index"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ContractItemModel) TableName() string {
	return "contract_items"
}

// ToDomain converts the persistence model to a domain Contract
func (m *ContractModel) ToDomain() *contract.Contract {
	c := &contract.Contract{
		ContractNumber: m.ContractNumber,
		CustomerID:     m.CustomerID,
		CustomerName:   m.CustomerName,
		Currency:       m.Currency,
		Status:         m.Status,
		StartDate:      m.StartDate,
		EndDate:        m.EndDate,
		Remark:         m.Remark,
		Items:          make([]contract.Item, len(m.Items)),
	}
	c.TenantAggregateRoot = m.aggregate()
	for i, item := range m.Items {
		c.Items[i] = contract.Item{
			ID:              item.ID,
			ContractID:      item.ContractID,
			Description:     item.Description,
			Amount:          item.Amount,
			Frequency:       item.Frequency,
			BillingDay:      item.BillingDay,
			NextBillingDate: item.NextBillingDate,
			LastBilledAt:    item.LastBilledAt,
			Active:          item.Active,
			CreatedAt:       item.CreatedAt,
			UpdatedAt:       item.UpdatedAt,
		}
	}
	return c
}

// ContractModelFromDomain creates a persistence model from a domain Contract
func ContractModelFromDomain(c *contract.Contract) *ContractModel {
	m := &ContractModel{
		ContractNumber: c.ContractNumber,
		CustomerID:     c.CustomerID,
		CustomerName:   c.CustomerName,
		Currency:       c.Currency,
		Status:         c.Status,
		StartDate:      c.StartDate,
		EndDate:        c.EndDate,
		Remark:         c.Remark,
		Items:          make([]ContractItemModel, len(c.Items)),
	}
	m.setAggregate(c.TenantAggregateRoot)
	for i, item := range c.Items {
		m.Items[i] = ContractItemModel{
			ID:              item.ID,
			ContractID:      c.ID,
			TenantID:        c.TenantID,
			Description:     item.Description,
			Amount:          item.Amount,
			Frequency:       item.Frequency,
			BillingDay:      item.BillingDay,
			NextBillingDate: item.NextBillingDate,
			LastBilledAt:    item.LastBilledAt,
			Active:          item.Active,
			CreatedAt:       item.CreatedAt,
			UpdatedAt:       item.UpdatedAt,
		}
	}
	return m
}
