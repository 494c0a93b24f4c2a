package models

import (
	"time"

	"github.com/finadmin/backend/internal/domain/fx"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// FxRateModel is one row of the daily rate table.
// Rate tables are shared by all tenants.
type FxRateModel struct {
	BaseModel
	RateDate      time.Time            `gorm:"type:date;not null;uniqueIndex:idx_fx_rates_day_pair,priority:1"`
	BaseCurrency  valueobject.Currency `gorm:"type:varchar(3);not null;uniqueIndex:idx_fx_rates_day_pair,priority:2"`
	QuoteCurrency valueobject.Currency `gorm:"type:varchar(3);not null;uniqueIndex:idx_fx_rates_day_pair,priority:3"`
	Rate          decimal.Decimal      `gorm:"type:decimal(24,12);not null"`
	Provider      string               `gorm:"type:varchar(50);not null"`
	FetchedAt     time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FxRateModel) TableName() string {
	return "fx_rates"
}

// ToDomain converts the model to a domain rate
func (m *FxRateModel) ToDomain() *fx.Rate {
	return &fx.Rate{
		BaseEntity:    m.entity(),
		RateDate:      fx.DateOf(m.RateDate),
		BaseCurrency:  m.BaseCurrency,
		QuoteCurrency: m.QuoteCurrency,
		Rate:          m.Rate,
		Provider:      m.Provider,
		FetchedAt:     m.FetchedAt,
	}
}

// FromDomain populates the model from a domain rate
func (m *FxRateModel) FromDomain(r *fx.Rate) {
	m.setEntity(r.BaseEntity)
	m.RateDate = fx.DateOf(r.RateDate)
	m.BaseCurrency = r.BaseCurrency
	m.QuoteCurrency = r.QuoteCurrency
	m.Rate = r.Rate
	m.Provider = r.Provider
	m.FetchedAt = r.FetchedAt
}

// FxRateModelFromDomain creates a model from a domain rate
func FxRateModelFromDomain(r *fx.Rate) *FxRateModel {
	m := &FxRateModel{}
	m.FromDomain(r)
	return m
}
