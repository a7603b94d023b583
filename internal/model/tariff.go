package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TariffGroup is a priceable parcel category, global (ClientID nil) or client specific
type TariffGroup struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	ClientID    *uuid.UUID `gorm:"type:uuid;index" json:"client_id"`
	Code        string     `gorm:"type:varchar(100);not null" json:"code"`
	DisplayName string     `gorm:"type:varchar(255);not null" json:"display_name"`
	Unit        string     `gorm:"type:varchar(50);not null;default:'colis'" json:"unit"`
	Order       int        `gorm:"column:sort_order;type:int;not null;default:0" json:"order"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (g *TariffGroup) BeforeCreate(*gorm.DB) error {
	ensureID(&g.ID)
	return nil
}

// AvailableFor reports whether the group may be used on a tour for clientID.
func (g *TariffGroup) AvailableFor(clientID uuid.UUID) bool {
	return g.ClientID == nil || *g.ClientID == clientID
}

// Tariff stores a price/margin version with temporal validity. Both bounds are inclusive.
type Tariff struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	TariffGroupID uuid.UUID       `gorm:"type:uuid;not null;index" json:"tariff_group_id"`
	PriceExVAT    decimal.Decimal `gorm:"column:price_ex_vat;type:decimal(10,2);not null;default:0" json:"price_ex_vat"`
	MarginExVAT   decimal.Decimal `gorm:"column:margin_ex_vat;type:decimal(10,2);not null;default:0" json:"margin_ex_vat"`
	VATRate       decimal.Decimal `gorm:"column:vat_rate;type:decimal(5,2);not null;default:0" json:"vat_rate"`
	EffectiveFrom time.Time       `gorm:"type:date;not null;index" json:"effective_from"`
	EffectiveTo   *time.Time      `gorm:"type:date;index" json:"effective_to"` // nil = open-ended
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (t *Tariff) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
