package repository

import (
	"context"

	"delivops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClientRepository interface {
	Create(ctx context.Context, client *model.Client) error
	Update(ctx context.Context, client *model.Client) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Client, error)
	List(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]model.Client, error)
	CountTourLines(ctx context.Context, tenantID uuid.UUID) ([]model.ClientTourCount, error)
}

type clientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *model.Client) error {
	return GetDB(ctx, r.db).Create(client).Error
}

func (r *clientRepository) Update(ctx context.Context, client *model.Client) error {
	return GetDB(ctx, r.db).Save(client).Error
}

func (r *clientRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Client, error) {
	var client model.Client
	if err := GetDB(ctx, r.db).First(&client, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) List(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]model.Client, error) {
	var clients []model.Client
	query := GetDB(ctx, r.db).Where("tenant_id = ?", tenantID)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Order("name ASC").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

// CountTourLines returns item counts per client and tour date.
func (r *clientRepository) CountTourLines(ctx context.Context, tenantID uuid.UUID) ([]model.ClientTourCount, error) {
	var counts []model.ClientTourCount
	if err := GetDB(ctx, r.db).Table("tours").
		Select("tours.client_id AS client_id, tours.date AS date, COUNT(tour_items.id) AS item_count").
		Joins("JOIN tour_items ON tour_items.tour_id = tours.id").
		Where("tours.tenant_id = ?", tenantID).
		Group("tours.client_id, tours.date").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}
