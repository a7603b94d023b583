package repository

import (
	"context"

	"delivops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository defines the interface for data access of User entities
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindBySub(ctx context.Context, tenantID uuid.UUID, sub string) (*model.User, error)
	CountByRole(ctx context.Context, tenantID uuid.UUID, role string, activeOnly bool) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) FindBySub(ctx context.Context, tenantID uuid.UUID, sub string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "tenant_id = ? AND auth_sub = ?", tenantID, sub).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) CountByRole(ctx context.Context, tenantID uuid.UUID, role string, activeOnly bool) (int64, error) {
	var count int64
	query := GetDB(ctx, r.db).Model(&model.User{}).Where("tenant_id = ? AND role = ?", tenantID, role)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
