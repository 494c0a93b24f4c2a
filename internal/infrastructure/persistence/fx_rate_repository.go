package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/finadmin/backend/internal/domain/fx"
	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/finadmin/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormFxRateRepository implements fx.RateRepository using GORM
type GormFxRateRepository struct {
	db *gorm.DB
}

// NewGormFxRateRepository creates a new GormFxRateRepository
func NewGormFxRateRepository(db *gorm.DB) *GormFxRateRepository {
	return &GormFxRateRepository{db: db}
}

// FindForDay finds the rate stored for (day, base, quote)
func (r *GormFxRateRepository) FindForDay(ctx context.Context, day time.Time, base, quote valueobject.Currency) (*fx.Rate, error) {
	var model models.FxRateModel
	if err := r.db.WithContext(ctx).
		Where("rate_date = ? AND base_currency = ? AND quote_currency = ?", fx.DateOf(day), base, quote).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForDay lists the rates quoted against base on day
func (r *GormFxRateRepository) FindAllForDay(ctx context.Context, day time.Time, base valueobject.Currency) ([]fx.Rate, error) {
	var rateModels []models.FxRateModel
	if err := r.db.WithContext(ctx).
		Where("rate_date = ? AND base_currency = ?", fx.DateOf(day), base).
		Order("quote_currency ASC").
		Find(&rateModels).Error; err != nil {
		return nil, err
	}
	rates := make([]fx.Rate, len(rateModels))
	for i, model := range rateModels {
		rates[i] = *model.ToDomain()
	}
	return rates, nil
}

// ExistsForDay reports whether any rate is stored for day
func (r *GormFxRateRepository) ExistsForDay(ctx context.Context, day time.Time) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.FxRateModel{}).
		Where("rate_date = ?", fx.DateOf(day)).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Upsert inserts rates; a row for the same (date, base, quote) is overwritten
func (r *GormFxRateRepository) Upsert(ctx context.Context, rates ...*fx.Rate) error {
	if len(rates) == 0 {
		return nil
	}
	rateModels := make([]*models.FxRateModel, len(rates))
	for i, rate := range rates {
		rateModels[i] = models.FxRateModelFromDomain(rate)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "rate_date"}, {Name: "base_currency"}, {Name: "quote_currency"}},
			DoUpdates: clause.AssignmentColumns([]string{"rate", "provider", "fetched_at", "updated_at"}),
		}).
		Create(&rateModels).Error
}

var _ fx.RateRepository = (*GormFxRateRepository)(nil)
