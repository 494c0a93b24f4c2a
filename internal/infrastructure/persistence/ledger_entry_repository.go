package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/finadmin/backend/internal/domain/finance"
	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/infrastructure/persistence/models"
	"github.com/finadmin/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLedgerEntryRepository implements finance.LedgerEntryRepository using GORM
type GormLedgerEntryRepository struct {
	db *gorm.DB
}

// NewGormLedgerEntryRepository creates a new GormLedgerEntryRepository
func NewGormLedgerEntryRepository(db *gorm.DB) *GormLedgerEntryRepository {
	return &GormLedgerEntryRepository{db: db}
}

func (r *GormLedgerEntryRepository) scoped(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.LedgerEntryModel{}).Scopes(tenant.Scope(tenantID))
}

func (r *GormLedgerEntryRepository) first(query *gorm.DB) (*finance.LedgerEntry, error) {
	var model models.LedgerEntryModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormLedgerEntryRepository) find(query *gorm.DB) ([]finance.LedgerEntry, error) {
	var entryModels []models.LedgerEntryModel
	if err := query.Find(&entryModels).Error; err != nil {
		return nil, err
	}
	entries := make([]finance.LedgerEntry, len(entryModels))
	for i, model := range entryModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// FindByIDForTenant finds an entry by ID for a tenant
func (r *GormLedgerEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.LedgerEntry, error) {
	return r.first(r.scoped(ctx, tenantID).Where("id = ?", id))
}

// FindByIDForUpdate finds an entry with SELECT ... FOR UPDATE. Outside a
// transaction the lock is released as soon as the statement finishes.
func (r *GormLedgerEntryRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.LedgerEntry, error) {
	return r.first(r.scoped(ctx, tenantID).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

// FindByNumber finds an entry by its number within a kind
func (r *GormLedgerEntryRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, number string) (*finance.LedgerEntry, error) {
	return r.first(r.scoped(ctx, tenantID).Where("kind = ? AND entry_number = ?", kind, number))
}

// FindAllForTenant lists entries matching filter together with the unpaged total
func (r *GormLedgerEntryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.LedgerEntryFilter) ([]finance.LedgerEntry, int64, error) {
	query := r.applyFilter(r.scoped(ctx, tenantID), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(ledgerEntrySortColumns.orderClause(filter.Filter))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	entries, err := r.find(query)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *GormLedgerEntryRepository) applyFilter(query *gorm.DB, filter finance.LedgerEntryFilter) *gorm.DB {
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CounterpartyID != nil {
		query = query.Where("counterparty_id = ?", *filter.CounterpartyID)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date < ?", *filter.DueBefore)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("entry_number LIKE ? OR counterparty_name LIKE ?", like, like)
	}
	return query
}

// FindUnsettled returns OPEN and PARTIAL entries, oldest due first
func (r *GormLedgerEntryRepository) FindUnsettled(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, dueBefore *time.Time) ([]finance.LedgerEntry, error) {
	query := r.scoped(ctx, tenantID).
		Where("kind = ? AND status IN ?", kind, []finance.EntryStatus{finance.EntryStatusOpen, finance.EntryStatusPartial})
	if dueBefore != nil {
		query = query.Where("due_date IS NOT NULL AND due_date < ?", *dueBefore)
	}
	return r.find(query.Order("due_date ASC").Order("created_at ASC"))
}

// FindForReconcile returns every non-cancelled entry
func (r *GormLedgerEntryRepository) FindForReconcile(ctx context.Context, tenantID uuid.UUID) ([]finance.LedgerEntry, error) {
	return r.find(r.scoped(ctx, tenantID).
		Where("status <> ?", finance.EntryStatusCancelled).
		Order("created_at ASC"))
}

// Save creates or updates an entry
func (r *GormLedgerEntryRepository) Save(ctx context.Context, entry *finance.LedgerEntry) error {
	model := models.LedgerEntryModelFromDomain(entry)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock updates the entry only if nobody else changed it since it was read
func (r *GormLedgerEntryRepository) SaveWithLock(ctx context.Context, entry *finance.LedgerEntry) error {
	model := models.LedgerEntryModelFromDomain(entry)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND tenant_id = ? AND version = ?", entry.ID, entry.TenantID, entry.Version-1).
		Select("*").
		Omit("id", "created_at").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// UpdateSettledUSD writes only the materialized settled total
func (r *GormLedgerEntryRepository) UpdateSettledUSD(ctx context.Context, tenantID, id uuid.UUID, settled decimal.Decimal) error {
	result := r.scoped(ctx, tenantID).
		Where("id = ?", id).
		UpdateColumn("settled_usd_amount", settled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ExistsByNumber checks whether number is taken within a kind
func (r *GormLedgerEntryRepository) ExistsByNumber(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind, number string) (bool, error) {
	var count int64
	if err := r.scoped(ctx, tenantID).
		Where("kind = ? AND entry_number = ?", kind, number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateEntryNumber returns the next number of the day, e.g. AP-20260302-00001
func (r *GormLedgerEntryRepository) GenerateEntryNumber(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", kind.NumberPrefix(), time.Now().Format("20060102"))

	var numbers []string
	if err := r.scoped(ctx, tenantID).
		Where("kind = ? AND entry_number LIKE ?", kind, prefix+"%").
		Order("entry_number DESC").
		Limit(1).
		Pluck("entry_number", &numbers).Error; err != nil {
		return "", err
	}

	var next int
	if len(numbers) > 0 {
		parts := strings.Split(numbers[0], "-")
		if len(parts) == 3 {
			_, _ = fmt.Sscanf(parts[2], "%d", &next)
		}
	}
	next++

	return fmt.Sprintf("%s%05d", prefix, next), nil
}

type summaryRow struct {
	Status     finance.EntryStatus
	Count      int64
	TotalUSD   decimal.Decimal
	SettledUSD decimal.Decimal
}

// Summarize totals non-cancelled entries of kind by status
func (r *GormLedgerEntryRepository) Summarize(ctx context.Context, tenantID uuid.UUID, kind finance.EntryKind) (*finance.LedgerSummary, error) {
	var rows []summaryRow
	if err := r.scoped(ctx, tenantID).
		Select("status, COUNT(*) AS count, COALESCE(SUM(usd_equiv_amount), 0) AS total_usd, COALESCE(SUM(settled_usd_amount), 0) AS settled_usd").
		Where("kind = ? AND status <> ?", kind, finance.EntryStatusCancelled).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	summary := &finance.LedgerSummary{
		Kind:           kind,
		TotalUSD:       decimal.Zero,
		SettledUSD:     decimal.Zero,
		OutstandingUSD: decimal.Zero,
	}
	for _, row := range rows {
		switch row.Status {
		case finance.EntryStatusOpen:
			summary.OpenCount = row.Count
		case finance.EntryStatusPartial:
			summary.PartialCount = row.Count
		case finance.EntryStatusPaid:
			summary.PaidCount = row.Count
		}
		summary.TotalUSD = summary.TotalUSD.Add(row.TotalUSD)
		summary.SettledUSD = summary.SettledUSD.Add(row.SettledUSD)
		if row.Status != finance.EntryStatusPaid {
			summary.OutstandingUSD = summary.OutstandingUSD.Add(row.TotalUSD.Sub(row.SettledUSD))
		}
	}
	return summary, nil
}

// ListTenantIDs returns the tenants owning ledger entries
func (r *GormLedgerEntryRepository) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntryModel{}).
		Distinct("tenant_id").
		Pluck("tenant_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

var _ finance.LedgerEntryRepository = (*GormLedgerEntryRepository)(nil)
