package repository

import (
	"context"
	"time"

	"delivops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TourRepository interface {
	Create(ctx context.Context, tour *model.Tour) error
	CreateItem(ctx context.Context, item *model.TourItem) error
	Update(ctx context.Context, tour *model.Tour) error
	UpdateItem(ctx context.Context, item *model.TourItem) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	DeleteItem(ctx context.Context, tenantID, itemID uuid.UUID) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Tour, error)
	FindByKey(ctx context.Context, tenantID, driverID, clientID uuid.UUID, date time.Time) (*model.Tour, error)
	FindItemByGroup(ctx context.Context, tenantID, tourID, groupID uuid.UUID) (*model.TourItem, error)
	FindItem(ctx context.Context, tenantID, itemID uuid.UUID) (*model.TourItem, error)
	CountItems(ctx context.Context, tenantID, tourID uuid.UUID) (int64, error)
	CountByDriver(ctx context.Context, tenantID, driverID uuid.UUID) (int64, error)
	ListByDriver(ctx context.Context, tenantID, driverID uuid.UUID, status string) ([]model.Tour, error)
	ListBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]model.Tour, error)
}

type tourRepository struct {
	db *gorm.DB
}

func NewTourRepository(db *gorm.DB) TourRepository {
	return &tourRepository{db: db}
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items").
		Preload("Items.TariffGroup").
		Preload("Driver").
		Preload("Client")
}

func (r *tourRepository) Create(ctx context.Context, tour *model.Tour) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(tour).Error
}

func (r *tourRepository) CreateItem(ctx context.Context, item *model.TourItem) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(item).Error
}

func (r *tourRepository) Update(ctx context.Context, tour *model.Tour) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(tour).Error
}

func (r *tourRepository) UpdateItem(ctx context.Context, item *model.TourItem) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(item).Error
}

// Delete removes the tour together with any remaining items.
func (r *tourRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("tenant_id = ? AND tour_id = ?", tenantID, id).Delete(&model.TourItem{}).Error; err != nil {
		return err
	}
	return db.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&model.Tour{}).Error
}

func (r *tourRepository) DeleteItem(ctx context.Context, tenantID, itemID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("tenant_id = ? AND id = ?", tenantID, itemID).Delete(&model.TourItem{}).Error
}

func (r *tourRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Tour, error) {
	var tour model.Tour
	if err := withDetails(GetDB(ctx, r.db)).First(&tour, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		return nil, err
	}
	return &tour, nil
}

func (r *tourRepository) FindByKey(ctx context.Context, tenantID, driverID, clientID uuid.UUID, date time.Time) (*model.Tour, error) {
	var tour model.Tour
	if err := GetDB(ctx, r.db).
		Where("tenant_id = ? AND driver_id = ? AND client_id = ? AND date = ?", tenantID, driverID, clientID, date).
		Order("created_at ASC").
		First(&tour).Error; err != nil {
		return nil, err
	}
	return &tour, nil
}

func (r *tourRepository) FindItemByGroup(ctx context.Context, tenantID, tourID, groupID uuid.UUID) (*model.TourItem, error) {
	var item model.TourItem
	if err := GetDB(ctx, r.db).
		First(&item, "tenant_id = ? AND tour_id = ? AND tariff_group_id = ?", tenantID, tourID, groupID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *tourRepository) FindItem(ctx context.Context, tenantID, itemID uuid.UUID) (*model.TourItem, error) {
	var item model.TourItem
	if err := GetDB(ctx, r.db).First(&item, "tenant_id = ? AND id = ?", tenantID, itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *tourRepository) CountItems(ctx context.Context, tenantID, tourID uuid.UUID) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.TourItem{}).
		Where("tenant_id = ? AND tour_id = ?", tenantID, tourID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *tourRepository) CountByDriver(ctx context.Context, tenantID, driverID uuid.UUID) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Tour{}).
		Where("tenant_id = ? AND driver_id = ?", tenantID, driverID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *tourRepository) ListByDriver(ctx context.Context, tenantID, driverID uuid.UUID, status string) ([]model.Tour, error) {
	var tours []model.Tour
	if err := withDetails(GetDB(ctx, r.db)).
		Where("tenant_id = ? AND driver_id = ? AND status = ?", tenantID, driverID, status).
		Order("date ASC").
		Order("created_at ASC").
		Find(&tours).Error; err != nil {
		return nil, err
	}
	return tours, nil
}

// ListBetween returns every tour dated within [from, to].
func (r *tourRepository) ListBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]model.Tour, error) {
	var tours []model.Tour
	if err := withDetails(GetDB(ctx, r.db)).
		Where("tenant_id = ? AND date >= ? AND date <= ?", tenantID, from, to).
		Order("date ASC").
		Find(&tours).Error; err != nil {
		return nil, err
	}
	return tours, nil
}
