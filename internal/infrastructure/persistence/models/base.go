package models

import (
	"time"

	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel holds the id and audit columns of every table
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (m *BaseModel) entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *BaseModel) setEntity(e shared.BaseEntity) {
	m.ID, m.CreatedAt, m.UpdatedAt = e.ID, e.CreatedAt, e.UpdatedAt
}

// TenantAggregateModel adds the owning tenant and the optimistic-lock version.
// Ledger entries and contracts embed it; rates and settlement records do not.
type TenantAggregateModel struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
	Version  int       `gorm:"not null;default:1"`
}

func (m *TenantAggregateModel) aggregate() shared.TenantAggregateRoot {
	root := shared.TenantAggregateRoot{TenantID: m.TenantID}
	root.BaseEntity = m.entity()
	root.Version = m.Version
	return root
}

func (m *TenantAggregateModel) setAggregate(t shared.TenantAggregateRoot) {
	m.setEntity(t.BaseEntity)
	m.TenantID = t.TenantID
	m.Version = t.Version
}
