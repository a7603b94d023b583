package repository

import (
	"context"
	"time"

	"delivops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChauffeurRepository interface {
	Create(ctx context.Context, chauffeur *model.Chauffeur) error
	Update(ctx context.Context, chauffeur *model.Chauffeur) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Chauffeur, error)
	FindByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*model.Chauffeur, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]model.Chauffeur, error)
	Count(ctx context.Context, tenantID uuid.UUID, activeOnly bool) (int64, error)
	CountSeenSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error)
	LastSeen(ctx context.Context, tenantID uuid.UUID) (*time.Time, error)
	TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error
}

type chauffeurRepository struct {
	db *gorm.DB
}

func NewChauffeurRepository(db *gorm.DB) ChauffeurRepository {
	return &chauffeurRepository{db: db}
}

func (r *chauffeurRepository) Create(ctx context.Context, chauffeur *model.Chauffeur) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(chauffeur).Error
}

func (r *chauffeurRepository) Update(ctx context.Context, chauffeur *model.Chauffeur) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(chauffeur).Error
}

func (r *chauffeurRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&model.Chauffeur{}).Error
}

func (r *chauffeurRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Chauffeur, error) {
	var chauffeur model.Chauffeur
	if err := GetDB(ctx, r.db).First(&chauffeur, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		return nil, err
	}
	return &chauffeur, nil
}

func (r *chauffeurRepository) FindByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*model.Chauffeur, error) {
	var chauffeur model.Chauffeur
	if err := GetDB(ctx, r.db).First(&chauffeur, "tenant_id = ? AND user_id = ?", tenantID, userID).Error; err != nil {
		return nil, err
	}
	return &chauffeur, nil
}

func (r *chauffeurRepository) List(ctx context.Context, tenantID uuid.UUID) ([]model.Chauffeur, error) {
	var chauffeurs []model.Chauffeur
	if err := GetDB(ctx, r.db).
		Where("tenant_id = ?", tenantID).
		Order("display_name ASC").
		Find(&chauffeurs).Error; err != nil {
		return nil, err
	}
	return chauffeurs, nil
}

func (r *chauffeurRepository) Count(ctx context.Context, tenantID uuid.UUID, activeOnly bool) (int64, error) {
	var count int64
	query := GetDB(ctx, r.db).Model(&model.Chauffeur{}).Where("tenant_id = ?", tenantID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *chauffeurRepository) CountSeenSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Chauffeur{}).
		Where("tenant_id = ? AND last_seen_at IS NOT NULL AND last_seen_at >= ?", tenantID, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// LastSeen returns the most recent driver activity, nil when no driver was ever seen.
func (r *chauffeurRepository) LastSeen(ctx context.Context, tenantID uuid.UUID) (*time.Time, error) {
	var chauffeurs []model.Chauffeur
	if err := GetDB(ctx, r.db).
		Where("tenant_id = ? AND last_seen_at IS NOT NULL", tenantID).
		Order("last_seen_at DESC").
		Limit(1).
		Find(&chauffeurs).Error; err != nil {
		return nil, err
	}
	if len(chauffeurs) == 0 {
		return nil, nil
	}
	return chauffeurs[0].LastSeenAt, nil
}

func (r *chauffeurRepository) TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	return GetDB(ctx, r.db).Model(&model.Chauffeur{}).Where("id = ?", id).Update("last_seen_at", at).Error
}
