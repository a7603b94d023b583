package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audit entities
const (
	AuditEntityChauffeur   = "chauffeur"
	AuditEntityDeclaration = "declaration"
	AuditEntityClient      = "client"
	AuditEntityCategory    = "category"
)

// Audit actions
const (
	AuditActionCreate     = "create"
	AuditActionUpdate     = "update"
	AuditActionDelete     = "delete"
	AuditActionDeactivate = "deactivate"
	AuditActionReactivate = "reactivate"
)

// AuditLog tracks Who, What, and When for changes made inside a tenant.
// Request-level entries use the URL path as Entity and the HTTP method as Action.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for anonymous or automated calls
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Entity     string     `gorm:"type:varchar(255);not null;index" json:"entity"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	Action     string     `gorm:"type:varchar(20);not null;index" json:"action"`
	BeforeJSON string     `gorm:"type:text" json:"before_json,omitempty"`
	AfterJSON  string     `gorm:"type:text" json:"after_json,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
