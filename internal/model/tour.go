package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TourStatus constants
const (
	TourStatusInProgress = "IN_PROGRESS"
	TourStatusCompleted  = "COMPLETED"
)

// Tour is a driver's daily pickup/delivery record for one client
type Tour struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	DriverID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"driver_id"`
	Driver    *Chauffeur `gorm:"foreignKey:DriverID" json:"driver,omitempty"`
	ClientID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	Client    *Client    `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Date      time.Time  `gorm:"type:date;not null;index" json:"date"`
	Status    string     `gorm:"type:varchar(20);not null;default:'IN_PROGRESS';index" json:"status"`
	Items     []TourItem `gorm:"foreignKey:TourID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (t *Tour) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// TourItem is one tariff-group line of a tour with the prices frozen at declaration time
type TourItem struct {
	ID                      uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID                uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	TourID                  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_tour_items_tour_group" json:"tour_id"`
	TariffGroupID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_tour_items_tour_group;index" json:"tariff_group_id"`
	TariffGroup             *TariffGroup    `gorm:"foreignKey:TariffGroupID" json:"-"`
	PickupQuantity          int             `gorm:"type:int;not null;default:0" json:"pickup_quantity"`
	DeliveryQuantity        int             `gorm:"type:int;not null;default:0" json:"delivery_quantity"`
	UnitPriceExVATSnapshot  decimal.Decimal `gorm:"column:unit_price_ex_vat_snapshot;type:decimal(10,2);not null;default:0" json:"unit_price_ex_vat_snapshot"`
	AmountExVATSnapshot     decimal.Decimal `gorm:"column:amount_ex_vat_snapshot;type:decimal(10,2);not null;default:0" json:"amount_ex_vat_snapshot"`
	UnitMarginExVATSnapshot decimal.Decimal `gorm:"column:unit_margin_ex_vat_snapshot;type:decimal(10,2);not null;default:0" json:"unit_margin_ex_vat_snapshot"`
	MarginExVATSnapshot     decimal.Decimal `gorm:"column:margin_ex_vat_snapshot;type:decimal(10,2);not null;default:0" json:"margin_ex_vat_snapshot"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

func (i *TourItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// Difference is the number of parcels picked up but not delivered.
func (i *TourItem) Difference() int {
	return i.PickupQuantity - i.DeliveryQuantity
}
