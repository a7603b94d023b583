package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chauffeur is a driver of a tenant. UserID is set once the driver has an account.
type Chauffeur struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	UserID      *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User        *User      `gorm:"foreignKey:UserID" json:"-"`
	Email       string     `gorm:"type:varchar(255);not null" json:"email"`
	DisplayName string     `gorm:"type:varchar(255);not null" json:"display_name"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	LastSeenAt  *time.Time `json:"last_seen_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (c *Chauffeur) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
