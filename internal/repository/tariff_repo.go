package repository

import (
	"context"
	"time"

	"delivops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TariffRepository interface {
	Create(ctx context.Context, tariff *model.Tariff) error
	Update(ctx context.Context, tariff *model.Tariff) error
	FindActive(ctx context.Context, groupID uuid.UUID, asOf time.Time) (*model.Tariff, error)
	ListByGroup(ctx context.Context, tenantID, groupID uuid.UUID) ([]model.Tariff, error)
}

type tariffRepository struct {
	db *gorm.DB
}

func NewTariffRepository(db *gorm.DB) TariffRepository {
	return &tariffRepository{db: db}
}

func (r *tariffRepository) Create(ctx context.Context, tariff *model.Tariff) error {
	return GetDB(ctx, r.db).Create(tariff).Error
}

func (r *tariffRepository) Update(ctx context.Context, tariff *model.Tariff) error {
	return GetDB(ctx, r.db).Save(tariff).Error
}

// FindActive returns the version effective on asOf. Bounds are inclusive; the
// latest effective_from wins, then the latest created, then the highest id.
func (r *tariffRepository) FindActive(ctx context.Context, groupID uuid.UUID, asOf time.Time) (*model.Tariff, error) {
	var tariff model.Tariff
	if err := GetDB(ctx, r.db).
		Where("tariff_group_id = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", groupID, asOf, asOf).
		Order("effective_from DESC").
		Order("created_at DESC").
		Order("id DESC").
		First(&tariff).Error; err != nil {
		return nil, err
	}
	return &tariff, nil
}

// ListByGroup returns the version history, newest first.
func (r *tariffRepository) ListByGroup(ctx context.Context, tenantID, groupID uuid.UUID) ([]model.Tariff, error) {
	var tariffs []model.Tariff
	if err := GetDB(ctx, r.db).
		Where("tenant_id = ? AND tariff_group_id = ?", tenantID, groupID).
		Order("effective_from DESC").
		Order("created_at DESC").
		Find(&tariffs).Error; err != nil {
		return nil, err
	}
	return tariffs, nil
}
