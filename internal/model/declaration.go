package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeclarationRow is one line of the declarations report: a tour joined with
// its driver, client and, when present, an item and its tariff group.
type DeclarationRow struct {
	TourID           uuid.UUID
	TourItemID       uuid.NullUUID
	Date             time.Time
	Status           string
	DriverID         uuid.UUID
	DriverName       string
	ClientID         uuid.UUID
	ClientName       string
	TariffGroupID    uuid.NullUUID
	TariffGroupName  *string
	PickupQuantity   *int
	DeliveryQuantity *int
	UnitPrice        decimal.NullDecimal
	Amount           decimal.NullDecimal
	UnitMargin       decimal.NullDecimal
	Margin           decimal.NullDecimal
}

// DeclarationFilter narrows the declarations report. Zero values mean no filter.
type DeclarationFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	ClientID *uuid.UUID
	DriverID *uuid.UUID
}

// ClientTourCount is a per client, per day count of declaration lines.
type ClientTourCount struct {
	ClientID  uuid.UUID
	Date      time.Time
	ItemCount int64
}
