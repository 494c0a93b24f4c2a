package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var unsettledStatuses = []string{"OPEN", "PARTIAL"}

// GormLedgerMetricsProvider reads ledger gauges straight from ledger_entries
type GormLedgerMetricsProvider struct {
	db *gorm.DB
}

// NewGormLedgerMetricsProvider creates the provider
func NewGormLedgerMetricsProvider(db *gorm.DB) *GormLedgerMetricsProvider {
	return &GormLedgerMetricsProvider{db: db}
}

// ActiveTenantIDs returns tenants with at least one unsettled entry
func (p *GormLedgerMetricsProvider) ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("ledger_entries").
		Distinct("tenant_id").
		Where("status IN ?", unsettledStatuses).
		Pluck("tenant_id", &ids).Error
	return ids, err
}

// OutstandingByKind sums unsettled USD and counts overdue entries per kind
func (p *GormLedgerMetricsProvider) OutstandingByKind(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]OutstandingBalance, error) {
	type row struct {
		Kind         string          `gorm:"column:kind"`
		Outstanding  decimal.Decimal `gorm:"column:outstanding"`
		OverdueCount int64           `gorm:"column:overdue_count"`
	}

	var rows []row
	err := p.db.WithContext(ctx).
		Table("ledger_entries").
		Select("kind, "+
			"COALESCE(SUM(usd_equiv_amount - settled_usd_amount), 0) AS outstanding, "+
			"COUNT(CASE WHEN due_date IS NOT NULL AND due_date < ? THEN 1 END) AS overdue_count", asOf).
		Where("tenant_id = ? AND status IN ?", tenantID, unsettledStatuses).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]OutstandingBalance, 0, len(rows))
	for _, r := range rows {
		out = append(out, OutstandingBalance{Kind: r.Kind, USD: r.Outstanding, OverdueCount: r.OverdueCount})
	}
	return out, nil
}
