// Package tariff resolves the price and margin in force for a tariff group on a date.
package tariff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"delivops/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Finder looks up the tariff version effective on a date.
type Finder interface {
	FindActive(ctx context.Context, groupID uuid.UUID, asOf time.Time) (*model.Tariff, error)
}

// Price is a unit price and unit margin, both excluding VAT.
type Price struct {
	TariffID   *uuid.UUID
	UnitPrice  decimal.Decimal
	UnitMargin decimal.Decimal
}

// Found reports whether a tariff version matched.
func (p Price) Found() bool {
	return p.TariffID != nil
}

type Resolver struct {
	finder Finder
}

func NewResolver(finder Finder) *Resolver {
	return &Resolver{finder: finder}
}

// Resolve returns the price effective on asOf. When no version covers the
// date it returns zero price and zero margin without error.
// Tenant ownership of groupID is the caller's concern.
func (r *Resolver) Resolve(ctx context.Context, groupID uuid.UUID, asOf time.Time) (Price, error) {
	t, err := r.finder.FindActive(ctx, groupID, model.TruncateDate(asOf))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Price{UnitPrice: decimal.Zero, UnitMargin: decimal.Zero}, nil
		}
		return Price{}, fmt.Errorf("failed to resolve tariff: %w", err)
	}
	id := t.ID
	return Price{TariffID: &id, UnitPrice: t.PriceExVAT, UnitMargin: t.MarginExVAT}, nil
}

// LineAmount is unit × qty rounded to cents.
func LineAmount(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}
