package repository

import (
	"context"

	"cuentas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntryListFilter narrows ListEntries results
type EntryListFilter struct {
	Direction      string // CXP, CXC or empty for all
	Status         string // OPEN, SETTLED, VOID or empty for all
	CounterpartyID *uuid.UUID
	Page           int
	Limit          int
}

type EntryRepository interface {
	Create(ctx context.Context, entry *model.LedgerEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.LedgerEntry, error)
	FindByIDWithCounterparty(ctx context.Context, id uuid.UUID) (*model.LedgerEntry, error)
	List(ctx context.Context, filter EntryListFilter) ([]model.LedgerEntry, int64, error)
	ListActivePayables(ctx context.Context, counterpartyID uuid.UUID) ([]model.LedgerEntry, error)
	Update(ctx context.Context, entry *model.LedgerEntry) error
}

type entryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) EntryRepository {
	return &entryRepository{db: db}
}

func (r *entryRepository) Create(ctx context.Context, entry *model.LedgerEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *entryRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	if err := GetDB(ctx, r.db).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *entryRepository) FindByIDWithCounterparty(ctx context.Context, id uuid.UUID) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	if err := GetDB(ctx, r.db).Preload("Counterparty").First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *entryRepository) List(ctx context.Context, filter EntryListFilter) ([]model.LedgerEntry, int64, error) {
	var entries []model.LedgerEntry
	var total int64

	db := GetDB(ctx, r.db)
	applyFilter := func(q *gorm.DB) *gorm.DB {
		if filter.Direction != "" {
			q = q.Where("direction = ?", filter.Direction)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.CounterpartyID != nil {
			q = q.Where("counterparty_id = ?", *filter.CounterpartyID)
		}
		return q
	}

	if err := applyFilter(db.Model(&model.LedgerEntry{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	fetchQuery := applyFilter(db.Preload("Counterparty"))
	if err := fetchQuery.Order("due_date asc, created_at desc").Offset(offset).Limit(filter.Limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// ListActivePayables returns every non-void CXP entry for a supplier; the
// duplicate guard scans these for invoice-number collisions.
func (r *entryRepository) ListActivePayables(ctx context.Context, counterpartyID uuid.UUID) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	err := GetDB(ctx, r.db).
		Where("direction = ? AND counterparty_id = ? AND status <> ?",
			model.DirectionPayable, counterpartyID, model.EntryStatusVoid).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *entryRepository) Update(ctx context.Context, entry *model.LedgerEntry) error {
	return GetDB(ctx, r.db).Save(entry).Error
}
