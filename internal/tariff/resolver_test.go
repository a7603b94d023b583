package tariff_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"delivops/internal/model"
	"delivops/internal/repository"
	"delivops/internal/tariff"
	"delivops/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T) (*tariff.Resolver, *testutil.Fixtures, *model.Tenant) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	tenant := fx.Tenant("acme")
	return tariff.NewResolver(repository.NewTariffRepository(db)), fx, tenant
}

func TestResolvePicksVersionEffectiveOnDate(t *testing.T) {
	r, fx, tenant := newResolver(t)
	group := fx.Group(tenant.ID, nil, "STD")
	fx.Tariff(group, "2.00", "0.50", testutil.Days(-30), testutil.DaysPtr(-2))
	fx.Tariff(group, "3.00", "0.80", testutil.Days(-1), nil)

	price, err := r.Resolve(context.Background(), group.ID, testutil.Days(0))
	require.NoError(t, err)
	assert.True(t, price.Found())
	assert.Equal(t, "3.00", price.UnitPrice.StringFixed(2))
	assert.Equal(t, "0.80", price.UnitMargin.StringFixed(2))

	old, err := r.Resolve(context.Background(), group.ID, testutil.Days(-5))
	require.NoError(t, err)
	assert.Equal(t, "2.00", old.UnitPrice.StringFixed(2))
}

func TestResolveBoundsAreInclusive(t *testing.T) {
	r, fx, tenant := newResolver(t)
	group := fx.Group(tenant.ID, nil, "BOX")
	fx.Tariff(group, "4.00", "1.00", testutil.Days(-10), testutil.DaysPtr(-5))

	for _, day := range []int{-10, -5} {
		price, err := r.Resolve(context.Background(), group.ID, testutil.Days(day))
		require.NoError(t, err)
		assert.Equal(t, "4.00", price.UnitPrice.StringFixed(2), "day %d", day)
	}

	after, err := r.Resolve(context.Background(), group.ID, testutil.Days(-4))
	require.NoError(t, err)
	assert.False(t, after.Found())
}

func TestResolveWithoutTariffReturnsZero(t *testing.T) {
	r, fx, tenant := newResolver(t)
	group := fx.Group(tenant.ID, nil, "EMPTY")

	price, err := r.Resolve(context.Background(), group.ID, testutil.Days(0))
	require.NoError(t, err)
	assert.False(t, price.Found())
	assert.True(t, price.UnitPrice.IsZero())
	assert.True(t, price.UnitMargin.IsZero())
}

func TestResolveIgnoresTimeOfDay(t *testing.T) {
	r, fx, tenant := newResolver(t)
	group := fx.Group(tenant.ID, nil, "STD")
	fx.Tariff(group, "3.00", "0.00", testutil.Days(0), testutil.DaysPtr(0))

	late := testutil.Days(0).Add(23*time.Hour + 59*time.Minute)
	price, err := r.Resolve(context.Background(), group.ID, late)
	require.NoError(t, err)
	assert.Equal(t, "3.00", price.UnitPrice.StringFixed(2))
}

func TestResolveIsIdempotent(t *testing.T) {
	r, fx, tenant := newResolver(t)
	group := fx.Group(tenant.ID, nil, "STD")
	fx.Tariff(group, "3.00", "0.80", testutil.Days(-1), nil)

	first, err := r.Resolve(context.Background(), group.ID, testutil.Days(0))
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), group.ID, testutil.Days(0))
	require.NoError(t, err)
	assert.Equal(t, first.TariffID, second.TariffID)
	assert.True(t, first.UnitPrice.Equal(second.UnitPrice))
	assert.True(t, first.UnitMargin.Equal(second.UnitMargin))
}

func TestResolveSameStartLatestCreatedWins(t *testing.T) {
	r, fx, tenant := newResolver(t)
	group := fx.Group(tenant.ID, nil, "STD")
	fx.Tariff(group, "3.00", "0.80", testutil.Days(-1), nil)
	time.Sleep(5 * time.Millisecond)
	newest := fx.Tariff(group, "3.50", "0.90", testutil.Days(-1), nil)

	price, err := r.Resolve(context.Background(), group.ID, testutil.Days(0))
	require.NoError(t, err)
	require.True(t, price.Found())
	assert.Equal(t, newest.ID, *price.TariffID)
	assert.Equal(t, "3.50", price.UnitPrice.StringFixed(2))
}

type failingFinder struct{}

func (failingFinder) FindActive(context.Context, uuid.UUID, time.Time) (*model.Tariff, error) {
	return nil, errors.New("connection reset")
}

func TestResolvePropagatesStorageErrors(t *testing.T) {
	r := tariff.NewResolver(failingFinder{})
	_, err := r.Resolve(context.Background(), uuid.New(), time.Now())
	assert.ErrorContains(t, err, "connection reset")
}

func TestLineAmount(t *testing.T) {
	assert.Equal(t, "12.00", tariff.LineAmount(decimal.RequireFromString("3.00"), 4).StringFixed(2))
	assert.Equal(t, "0.00", tariff.LineAmount(decimal.RequireFromString("3.00"), 0).StringFixed(2))
	assert.Equal(t, "3.70", tariff.LineAmount(decimal.RequireFromString("1.233333"), 3).StringFixed(2))
}
