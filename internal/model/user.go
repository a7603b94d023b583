package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role names as stored on users and carried in normalised token claims.
const (
	RoleAdmin             = "ADMIN"
	RoleChauffeur         = "CHAUFFEUR"
	RoleGlobalSupervision = "GLOBAL_SUPERVISION"
)

// User links an identity-provider subject to a tenant and a role
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	AuthSub   string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"auth_sub"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"type:varchar(50);not null" json:"role"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
