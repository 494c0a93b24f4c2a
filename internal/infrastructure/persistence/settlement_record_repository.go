package persistence

import (
	"context"
	"errors"

	"github.com/finadmin/backend/internal/domain/finance"
	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/infrastructure/persistence/models"
	"github.com/finadmin/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSettlementRecordRepository implements finance.SettlementRecordRepository using GORM.
// Records are never updated or deleted.
type GormSettlementRecordRepository struct {
	db *gorm.DB
}

// NewGormSettlementRecordRepository creates a new GormSettlementRecordRepository
func NewGormSettlementRecordRepository(db *gorm.DB) *GormSettlementRecordRepository {
	return &GormSettlementRecordRepository{db: db}
}

func (r *GormSettlementRecordRepository) scoped(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.SettlementRecordModel{}).Scopes(tenant.Scope(tenantID))
}

// Create appends a settlement record
func (r *GormSettlementRecordRepository) Create(ctx context.Context, record *finance.SettlementRecord) error {
	model := models.SettlementRecordModelFromDomain(record)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByIDForTenant finds a record by ID for a tenant
func (r *GormSettlementRecordRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.SettlementRecord, error) {
	var model models.SettlementRecordModel
	if err := r.scoped(ctx, tenantID).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEntry lists the records of an entry in payment order
func (r *GormSettlementRecordRepository) FindByEntry(ctx context.Context, tenantID, entryID uuid.UUID) ([]finance.SettlementRecord, error) {
	var recordModels []models.SettlementRecordModel
	if err := r.scoped(ctx, tenantID).
		Where("entry_id = ?", entryID).
		Order("payment_date ASC").
		Order("created_at ASC").
		Find(&recordModels).Error; err != nil {
		return nil, err
	}
	records := make([]finance.SettlementRecord, len(recordModels))
	for i, model := range recordModels {
		records[i] = *model.ToDomain()
	}
	return records, nil
}

// CountByEntry counts the records of an entry, reversals included
func (r *GormSettlementRecordRepository) CountByEntry(ctx context.Context, tenantID, entryID uuid.UUID) (int64, error) {
	var count int64
	if err := r.scoped(ctx, tenantID).Where("entry_id = ?", entryID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsReversalOf reports whether a compensating record already points at id
func (r *GormSettlementRecordRepository) ExistsReversalOf(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.scoped(ctx, tenantID).Where("reverses_id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ finance.SettlementRecordRepository = (*GormSettlementRecordRepository)(nil)
