package repository

import (
	"context"

	"delivops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TariffGroupRepository interface {
	Create(ctx context.Context, group *model.TariffGroup) error
	Update(ctx context.Context, group *model.TariffGroup) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.TariffGroup, error)
	ListByClient(ctx context.Context, tenantID, clientID uuid.UUID, includeInactive bool) ([]model.TariffGroup, error)
	SetActiveByClient(ctx context.Context, tenantID, clientID uuid.UUID, active bool) error
	NextOrder(ctx context.Context, tenantID, clientID uuid.UUID) (int, error)
}

type tariffGroupRepository struct {
	db *gorm.DB
}

func NewTariffGroupRepository(db *gorm.DB) TariffGroupRepository {
	return &tariffGroupRepository{db: db}
}

func (r *tariffGroupRepository) Create(ctx context.Context, group *model.TariffGroup) error {
	return GetDB(ctx, r.db).Create(group).Error
}

func (r *tariffGroupRepository) Update(ctx context.Context, group *model.TariffGroup) error {
	return GetDB(ctx, r.db).Save(group).Error
}

func (r *tariffGroupRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.TariffGroup, error) {
	var group model.TariffGroup
	if err := GetDB(ctx, r.db).First(&group, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *tariffGroupRepository) ListByClient(ctx context.Context, tenantID, clientID uuid.UUID, includeInactive bool) ([]model.TariffGroup, error) {
	var groups []model.TariffGroup
	query := GetDB(ctx, r.db).Where("tenant_id = ? AND client_id = ?", tenantID, clientID)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Order("sort_order ASC").Order("display_name ASC").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *tariffGroupRepository) SetActiveByClient(ctx context.Context, tenantID, clientID uuid.UUID, active bool) error {
	return GetDB(ctx, r.db).Model(&model.TariffGroup{}).
		Where("tenant_id = ? AND client_id = ?", tenantID, clientID).
		Update("is_active", active).Error
}

// NextOrder returns the sort position after the client's last group.
func (r *tariffGroupRepository) NextOrder(ctx context.Context, tenantID, clientID uuid.UUID) (int, error) {
	var groups []model.TariffGroup
	if err := GetDB(ctx, r.db).
		Where("tenant_id = ? AND client_id = ?", tenantID, clientID).
		Order("sort_order DESC").
		Limit(1).
		Find(&groups).Error; err != nil {
		return 0, err
	}
	if len(groups) == 0 {
		return 0, nil
	}
	return groups[0].Order + 1, nil
}
