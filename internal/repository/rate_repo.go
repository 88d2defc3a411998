package repository

import (
	"context"
	"time"

	"cuentas/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RateRepository interface {
	Upsert(ctx context.Context, rate *model.ExchangeRate) error
	FindByDate(ctx context.Context, day time.Time) (*model.ExchangeRate, error)
	FindLatest(ctx context.Context) (*model.ExchangeRate, error)
}

type rateRepository struct {
	db *gorm.DB
}

func NewRateRepository(db *gorm.DB) RateRepository {
	return &rateRepository{db: db}
}

// Upsert stores the day's rate, replacing an earlier fetch for the same date
// (the feed may revise its figure during the day).
func (r *rateRepository) Upsert(ctx context.Context, rate *model.ExchangeRate) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "as_of_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"reference_rate", "buy_rate", "sell_rate", "source"}),
	}).Create(rate).Error
}

func (r *rateRepository) FindByDate(ctx context.Context, day time.Time) (*model.ExchangeRate, error) {
	var rate model.ExchangeRate
	if err := GetDB(ctx, r.db).First(&rate, "as_of_date = ?", day.Format("2006-01-02")).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *rateRepository) FindLatest(ctx context.Context) (*model.ExchangeRate, error) {
	var rate model.ExchangeRate
	if err := GetDB(ctx, r.db).Order("as_of_date desc").First(&rate).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}
