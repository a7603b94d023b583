package repository

import (
	"context"

	"delivops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const declarationColumns = `tours.id AS tour_id, tour_items.id AS tour_item_id, tours.date AS date, tours.status AS status,
	chauffeurs.id AS driver_id, chauffeurs.display_name AS driver_name,
	clients.id AS client_id, clients.name AS client_name,
	tariff_groups.id AS tariff_group_id, tariff_groups.display_name AS tariff_group_name,
	tour_items.pickup_quantity AS pickup_quantity, tour_items.delivery_quantity AS delivery_quantity,
	tour_items.unit_price_ex_vat_snapshot AS unit_price, tour_items.amount_ex_vat_snapshot AS amount,
	tour_items.unit_margin_ex_vat_snapshot AS unit_margin, tour_items.margin_ex_vat_snapshot AS margin`

// DeclarationRepository reads the reporting view over tours and their items.
type DeclarationRepository interface {
	List(ctx context.Context, tenantID uuid.UUID, filter model.DeclarationFilter) ([]model.DeclarationRow, error)
	FindByItemID(ctx context.Context, tenantID, itemID uuid.UUID) (*model.DeclarationRow, error)
}

type declarationRepository struct {
	db *gorm.DB
}

func NewDeclarationRepository(db *gorm.DB) DeclarationRepository {
	return &declarationRepository{db: db}
}

func (r *declarationRepository) List(ctx context.Context, tenantID uuid.UUID, filter model.DeclarationFilter) ([]model.DeclarationRow, error) {
	query := GetDB(ctx, r.db).Table("tours").
		Select(declarationColumns).
		Joins("JOIN chauffeurs ON chauffeurs.id = tours.driver_id").
		Joins("JOIN clients ON clients.id = tours.client_id").
		Joins("LEFT JOIN tour_items ON tour_items.tour_id = tours.id").
		Joins("LEFT JOIN tariff_groups ON tariff_groups.id = tour_items.tariff_group_id").
		Where("tours.tenant_id = ?", tenantID).
		Where("tours.status IN ?", []string{model.TourStatusCompleted, model.TourStatusInProgress})

	if filter.DateFrom != nil {
		query = query.Where("tours.date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("tours.date <= ?", *filter.DateTo)
	}
	if filter.ClientID != nil {
		query = query.Where("tours.client_id = ?", *filter.ClientID)
	}
	if filter.DriverID != nil {
		query = query.Where("tours.driver_id = ?", *filter.DriverID)
	}

	var rows []model.DeclarationRow
	if err := query.
		Order("tours.date DESC").
		Order("tours.created_at DESC").
		Order("tours.id DESC").
		Order("tour_items.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByItemID returns gorm.ErrRecordNotFound when the item is absent from the tenant.
func (r *declarationRepository) FindByItemID(ctx context.Context, tenantID, itemID uuid.UUID) (*model.DeclarationRow, error) {
	var rows []model.DeclarationRow
	if err := GetDB(ctx, r.db).Table("tour_items").
		Select(declarationColumns).
		Joins("JOIN tours ON tours.id = tour_items.tour_id").
		Joins("JOIN chauffeurs ON chauffeurs.id = tours.driver_id").
		Joins("JOIN clients ON clients.id = tours.client_id").
		Joins("JOIN tariff_groups ON tariff_groups.id = tour_items.tariff_group_id").
		Where("tours.tenant_id = ? AND tour_items.id = ?", tenantID, itemID).
		Limit(1).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}
