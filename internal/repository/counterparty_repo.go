package repository

import (
	"context"

	"cuentas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CounterpartyRepository interface {
	Create(ctx context.Context, cp *model.Counterparty) error
	Update(ctx context.Context, cp *model.Counterparty) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Counterparty, error)
	List(ctx context.Context, cpType, search string, page, limit int) ([]model.Counterparty, int64, error)
}

type counterpartyRepository struct {
	db *gorm.DB
}

func NewCounterpartyRepository(db *gorm.DB) CounterpartyRepository {
	return &counterpartyRepository{db: db}
}

func (r *counterpartyRepository) Create(ctx context.Context, cp *model.Counterparty) error {
	return GetDB(ctx, r.db).Create(cp).Error
}

func (r *counterpartyRepository) Update(ctx context.Context, cp *model.Counterparty) error {
	return GetDB(ctx, r.db).Save(cp).Error
}

func (r *counterpartyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Counterparty{}).Error
}

func (r *counterpartyRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Counterparty, error) {
	var cp model.Counterparty
	if err := GetDB(ctx, r.db).First(&cp, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cp, nil
}

func (r *counterpartyRepository) List(ctx context.Context, cpType, search string, page, limit int) ([]model.Counterparty, int64, error) {
	var cps []model.Counterparty
	var total int64

	db := GetDB(ctx, r.db)
	applyFilter := func(q *gorm.DB) *gorm.DB {
		if cpType != "" {
			q = q.Where("type = ?", cpType)
		}
		if search != "" {
			q = q.Where("name LIKE ? OR tax_id LIKE ? OR email LIKE ?",
				"%"+search+"%", "%"+search+"%", "%"+search+"%")
		}
		return q
	}

	if err := applyFilter(db.Model(&model.Counterparty{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := applyFilter(db.Model(&model.Counterparty{})).Order("name asc").Offset(offset).Limit(limit).Find(&cps).Error; err != nil {
		return nil, 0, err
	}

	return cps, total, nil
}
