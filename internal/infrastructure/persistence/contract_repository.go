package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/finadmin/backend/internal/domain/contract"
	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/infrastructure/persistence/models"
	"github.com/finadmin/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormContractRepository implements contract.Repository using GORM
type GormContractRepository struct {
	db *gorm.DB
}

// NewGormContractRepository creates a new GormContractRepository
func NewGormContractRepository(db *gorm.DB) *GormContractRepository {
	return &GormContractRepository{db: db}
}

func (r *GormContractRepository) scoped(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.ContractModel{}).Scopes(tenant.Scope(tenantID))
}

func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("contract_items.created_at ASC")
	})
}

func toContracts(contractModels []models.ContractModel) []contract.Contract {
	contracts := make([]contract.Contract, len(contractModels))
	for i := range contractModels {
		contracts[i] = *contractModels[i].ToDomain()
	}
	return contracts
}

// FindByIDForTenant finds a contract with its items
func (r *GormContractRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*contract.Contract, error) {
	var model models.ContractModel
	if err := withItems(r.scoped(ctx, tenantID)).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists contracts matching filter together with the unpaged total
func (r *GormContractRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter contract.Filter) ([]contract.Contract, int64, error) {
	query := r.scoped(ctx, tenantID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("contract_number LIKE ? OR customer_name LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = withItems(query).Order(contractSortColumns.orderClause(filter.Filter))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var contractModels []models.ContractModel
	if err := query.Find(&contractModels).Error; err != nil {
		return nil, 0, err
	}
	return toContracts(contractModels), total, nil
}

// FindDue returns ACTIVE contracts with at least one active item billing on or before asOf
func (r *GormContractRepository) FindDue(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]contract.Contract, error) {
	dueIDs := r.db.WithContext(ctx).
		Model(&models.ContractItemModel{}).
		Select("contract_id").
		Where("tenant_id = ? AND active = ? AND next_billing_date <= ?", tenantID, true, asOf)

	var contractModels []models.ContractModel
	if err := withItems(r.scoped(ctx, tenantID)).
		Where("status = ?", contract.StatusActive).
		Where("id IN (?)", dueIDs).
		Order("contract_number ASC").
		Find(&contractModels).Error; err != nil {
		return nil, err
	}
	return toContracts(contractModels), nil
}

// Save creates or updates a contract and replaces its items
func (r *GormContractRepository) Save(ctx context.Context, c *contract.Contract) error {
	model := models.ContractModelFromDomain(c)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		return saveItems(tx, model)
	})
}

// SaveWithLock updates the contract only if nobody else changed it since it was read
func (r *GormContractRepository) SaveWithLock(ctx context.Context, c *contract.Contract) error {
	model := models.ContractModelFromDomain(c)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(model).
			Where("id = ? AND tenant_id = ? AND version = ?", c.ID, c.TenantID, c.Version-1).
			Select("*").
			Omit("id", "created_at", "Items").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return saveItems(tx, model)
	})
}

func saveItems(tx *gorm.DB, model *models.ContractModel) error {
	keep := make([]uuid.UUID, 0, len(model.Items))
	for i := range model.Items {
		keep = append(keep, model.Items[i].ID)
	}

	stale := tx.Where("contract_id = ?", model.ID)
	if len(keep) > 0 {
		stale = stale.Where("id NOT IN ?", keep)
	}
	if err := stale.Delete(&models.ContractItemModel{}).Error; err != nil {
		return err
	}
	if len(model.Items) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&model.Items).Error
}

// ExistsByNumber checks whether a contract number is taken
func (r *GormContractRepository) ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error) {
	var count int64
	if err := r.scoped(ctx, tenantID).Where("contract_number = ?", number).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListTenantIDs returns the tenants owning active contracts
func (r *GormContractRepository) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.ContractModel{}).
		Where("status = ?", contract.StatusActive).
		Distinct("tenant_id").
		Pluck("tenant_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

var _ contract.Repository = (*GormContractRepository)(nil)
