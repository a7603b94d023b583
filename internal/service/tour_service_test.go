package service_test

import (
	"testing"

	"delivops/internal/model"
	"delivops/internal/service"
	"delivops/internal/testutil"
	"delivops/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tourSetup struct {
	*env
	driver *model.Chauffeur
	client *model.Client
	std    *model.TariffGroup
}

func newTourSetup(t *testing.T) *tourSetup {
	e := newEnv(t)
	s := &tourSetup{
		env:    e,
		driver: e.fx.Driver(e.tenant.ID, "driver|1", "Alice"),
		client: e.fx.Client(e.tenant.ID, "Shop"),
	}
	s.std = e.fx.Group(e.tenant.ID, &s.client.ID, "STD")
	e.fx.Tariff(s.std, "2.00", "0.40", testutil.Days(-30), testutil.DaysPtr(-2))
	e.fx.Tariff(s.std, "3.00", "0.60", testutil.Days(-1), nil)
	return s
}

func (s *tourSetup) pickup(t *testing.T, items ...service.PickupItemRequest) service.TourResponse {
	t.Helper()
	res, err := s.tours.CreatePickup(s.ctx, s.tenant.ID, "driver|1", service.CreatePickupRequest{
		Date:     testutil.Days(0).Format(model.DateLayout),
		ClientID: s.client.ID.String(),
		Items:    items,
	})
	require.NoError(t, err)
	return res
}

func TestPickupSnapshotsResolvedPrice(t *testing.T) {
	s := newTourSetup(t)

	res := s.pickup(t, service.PickupItemRequest{TariffGroupID: s.std.ID.String(), PickupQuantity: qty(5)})

	assert.Equal(t, model.TourStatusInProgress, res.Status)
	assert.Equal(t, "Alice", res.Driver.Name)
	assert.Equal(t, "Shop", res.Client.Name)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 5, res.Items[0].PickupQuantity)
	assert.Equal(t, 0, res.Items[0].DeliveryQuantity)
	assert.Equal(t, "3.00", res.Items[0].UnitPriceExVat)
	assert.Equal(t, "0.00", res.Items[0].AmountExVat)
	assert.Equal(t, "0.60", res.Items[0].UnitMarginExVat)
	assert.Equal(t, 5, res.Totals.PickupQty)
	assert.Equal(t, 5, s.recorder.pickups)
	assert.Equal(t, []string{service.EventTourPickup}, s.events.names())
}

func TestDeliveryCompletesTourAndComputesAmounts(t *testing.T) {
	s := newTourSetup(t)
	tour := s.pickup(t, service.PickupItemRequest{TariffGroupID: s.std.ID.String(), PickupQuantity: qty(5)})

	res, err := s.tours.SubmitDelivery(s.ctx, s.tenant.ID, "driver|1", tour.TourID, service.SubmitDeliveryRequest{
		Items: []service.DeliveryItemRequest{{TariffGroupID: s.std.ID.String(), DeliveryQuantity: qty(4)}},
	})
	require.NoError(t, err)

	assert.Equal(t, model.TourStatusCompleted, res.Status)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "12.00", res.Items[0].AmountExVat)
	assert.Equal(t, "2.40", res.Items[0].MarginAmountExVat)
	assert.Equal(t, 1, res.Items[0].Difference)
	assert.Equal(t, "12.00", res.Totals.AmountExVat)
	assert.Equal(t, 1, res.Totals.DifferenceQty)
	assert.Equal(t, 4, s.recorder.deliveries)

	pending, err := s.tours.ListPending(s.ctx, s.tenant.ID, "driver|1")
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = s.tours.SubmitDelivery(s.ctx, s.tenant.ID, "driver|1", tour.TourID, service.SubmitDeliveryRequest{
		Items: []service.DeliveryItemRequest{{TariffGroupID: s.std.ID.String(), DeliveryQuantity: qty(4)}},
	})
	assertKind(t, err, apperror.KindBadRequest, "Tour already completed")
}

func TestDeliveryKeepsSnapshotWhenTariffChanges(t *testing.T) {
	s := newTourSetup(t)
	tour := s.pickup(t, service.PickupItemRequest{TariffGroupID: s.std.ID.String(), PickupQuantity: qty(2)})

	s.fx.Tariff(s.std, "9.00", "1.00", testutil.Days(0), nil)

	res, err := s.tours.SubmitDelivery(s.ctx, s.tenant.ID, "driver|1", tour.TourID, service.SubmitDeliveryRequest{
		Items: []service.DeliveryItemRequest{{TariffGroupID: s.std.ID.String(), DeliveryQuantity: qty(2)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "3.00", res.Items[0].UnitPriceExVat)
	assert.Equal(t, "6.00", res.Items[0].AmountExVat)
}

func TestDeliveryOmittedLineCountsAsUndelivered(t *testing.T) {
	s := newTourSetup(t)
	box := s.fx.Group(s.tenant.ID, nil, "BOX")
	tour := s.pickup(t,
		service.PickupItemRequest{TariffGroupID: s.std.ID.String(), PickupQuantity: qty(3)},
		service.PickupItemRequest{TariffGroupID: box.ID.String(), PickupQuantity: qty(2)},
	)

	res, err := s.tours.SubmitDelivery(s.ctx, s.tenant.ID, "driver|1", tour.TourID, service.SubmitDeliveryRequest{
		Items: []service.DeliveryItemRequest{{TariffGroupID: s.std.ID.String(), DeliveryQuantity: qty(3)}},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	// Sorted by display name: BOX then STD.
	assert.Equal(t, "BOX", res.Items[0].DisplayName)
	assert.Equal(t, 0, res.Items[0].DeliveryQuantity)
	assert.Equal(t, "0.00", res.Items[0].UnitPriceExVat)
	assert.Equal(t, 2, res.Totals.DifferenceQty)
}

func TestPickupRejectsGroupOfAnotherClient(t *testing.T) {
	s := newTourSetup(t)
	other := s.fx.Client(s.tenant.ID, "Other")
	foreign := s.fx.Group(s.tenant.ID, &other.ID, "FOREIGN")

	_, err := s.tours.CreatePickup(s.ctx, s.tenant.ID, "driver|1", service.CreatePickupRequest{
		Date:     testutil.Days(0).Format(model.DateLayout),
		ClientID: s.client.ID.String(),
		Items:    []service.PickupItemRequest{{TariffGroupID: foreign.ID.String(), PickupQuantity: qty(1)}},
	})
	assertKind(t, err, apperror.KindBadRequest, "Tariff group not available for this client")

	var count int64
	require.NoError(t, s.db.Model(&model.Tour{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPickupValidation(t *testing.T) {
	s := newTourSetup(t)
	today := testutil.Days(0).Format(model.DateLayout)

	cases := []struct {
		name string
		req  service.CreatePickupRequest
		kind apperror.Kind
		msg  string
	}{
		{"unknown client", service.CreatePickupRequest{Date: today, ClientID: "nope", Items: []service.PickupItemRequest{{TariffGroupID: s.std.ID.String(), PickupQuantity: qty(1)}}}, apperror.KindNotFound, "Client not found"},
		{"no items", service.CreatePickupRequest{Date: today, ClientID: s.client.ID.String()}, apperror.KindBadRequest, "At least one item is required"},
		{"unknown group", service.CreatePickupRequest{Date: today, ClientID: s.client.ID.String(), Items: []service.PickupItemRequest{{TariffGroupID: s.client.ID.String(), PickupQuantity: qty(1)}}}, apperror.KindNotFound, "Tariff group not found"},
		{"negative", service.CreatePickupRequest{Date: today, ClientID: s.client.ID.String(), Items: []service.PickupItemRequest{{TariffGroupID: s.std.ID.String(), PickupQuantity: qty(-1)}}}, apperror.KindBadRequest, "Quantity cannot be negative"},
		{"bad date", service.CreatePickupRequest{Date: "14/10/2026", ClientID: s.client.ID.String()}, apperror.KindBadRequest, ""},
		{"duplicate group", service.CreatePickupRequest{Date: today, ClientID: s.client.ID.String(), Items: []service.PickupItemRequest{
			{TariffGroupID: s.std.ID.String(), PickupQuantity: qty(3)},
			{TariffGroupID: s.std.ID.String(), PickupQuantity: qty(2)},
		}}, apperror.KindBadRequest, "Duplicate tariff group in items"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.tours.CreatePickup(s.ctx, s.tenant.ID, "driver|1", tc.req)
			assertKind(t, err, tc.kind, tc.msg)
		})
	}
}

func TestTourItemIsUniquePerTariffGroup(t *testing.T) {
	s := newTourSetup(t)

	_, err := s.tours.CreatePickup(s.ctx, s.tenant.ID, "driver|1", service.CreatePickupRequest{
		Date:     testutil.Days(0).Format(model.DateLayout),
		ClientID: s.client.ID.String(),
		Items: []service.PickupItemRequest{
			{TariffGroupID: s.std.ID.String(), PickupQuantity: qty(3)},
			{TariffGroupID: s.std.ID.String(), PickupQuantity: qty(2)},
		},
	})
	assertKind(t, err, apperror.KindBadRequest, "Duplicate tariff group in items")

	pending, err := s.tours.ListPending(s.ctx, s.tenant.ID, "driver|1")
	require.NoError(t, err)
	assert.Empty(t, pending)

	tour := s.pickup(t, service.PickupItemRequest{TariffGroupID: s.std.ID.String(), PickupQuantity: qty(3)})
	dup := model.TourItem{
		TenantID:       s.tenant.ID,
		TourID:         uuid.MustParse(tour.TourID),
		TariffGroupID:  s.std.ID,
		PickupQuantity: 2,
	}
	assert.Error(t, s.db.Create(&dup).Error)
}

func TestDuplicatePickupsCreateSeparateTours(t *testing.T) {
	s := newTourSetup(t)
	item := service.PickupItemRequest{TariffGroupID: s.std.ID.String(), PickupQuantity: qty(1)}

	first := s.pickup(t, item)
	second := s.pickup(t, item)
	assert.NotEqual(t, first.TourID, second.TourID)

	pending, err := s.tours.ListPending(s.ctx, s.tenant.ID, "driver|1")
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestDriverIdentityChecks(t *testing.T) {
	s := newTourSetup(t)
	tour := s.pickup(t, service.PickupItemRequest{TariffGroupID: s.std.ID.String(), PickupQuantity: qty(1)})
	s.fx.Driver(s.tenant.ID, "driver|2", "Bob")

	_, err := s.tours.ListPending(s.ctx, s.tenant.ID, "ghost|1")
	assertKind(t, err, apperror.KindForbidden, "Driver not found")

	_, err = s.tours.ListPending(s.ctx, s.tenant.ID, "admin|1")
	assertKind(t, err, apperror.KindForbidden, "Driver not found")

	_, err = s.tours.SubmitDelivery(s.ctx, s.tenant.ID, "driver|2", tour.TourID, service.SubmitDeliveryRequest{
		Items: []service.DeliveryItemRequest{{TariffGroupID: s.std.ID.String(), DeliveryQuantity: qty(1)}},
	})
	assertKind(t, err, apperror.KindForbidden, "Tour not owned by driver")

	other := s.fx.Tenant("other")
	_, err = s.tours.SubmitDelivery(s.ctx, other.ID, "driver|1", tour.TourID, service.SubmitDeliveryRequest{})
	assertKind(t, err, apperror.KindForbidden, "Driver not found")
}

func TestDeliveryValidation(t *testing.T) {
	s := newTourSetup(t)
	tour := s.pickup(t, service.PickupItemRequest{TariffGroupID: s.std.ID.String(), PickupQuantity: qty(2)})

	cases := []struct {
		name  string
		items []service.DeliveryItemRequest
		msg   string
	}{
		{"empty", nil, "At least one item is required"},
		{"unknown group", []service.DeliveryItemRequest{{TariffGroupID: "garbage", DeliveryQuantity: qty(1)}}, "Unknown tariff group"},
		{"too many", []service.DeliveryItemRequest{{TariffGroupID: s.std.ID.String(), DeliveryQuantity: qty(3)}}, "Delivered quantity cannot exceed picked up quantity"},
		{"negative", []service.DeliveryItemRequest{{TariffGroupID: s.std.ID.String(), DeliveryQuantity: qty(-1)}}, "Quantity cannot be negative"},
		{"duplicate group", []service.DeliveryItemRequest{
			{TariffGroupID: s.std.ID.String(), DeliveryQuantity: qty(1)},
			{TariffGroupID: s.std.ID.String(), DeliveryQuantity: qty(1)},
		}, "Duplicate tariff group in items"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.tours.SubmitDelivery(s.ctx, s.tenant.ID, "driver|1", tour.TourID, service.SubmitDeliveryRequest{Items: tc.items})
			assertKind(t, err, apperror.KindBadRequest, tc.msg)
		})
	}

	_, err := s.tours.SubmitDelivery(s.ctx, s.tenant.ID, "driver|1", "not-a-uuid", service.SubmitDeliveryRequest{})
	assertKind(t, err, apperror.KindNotFound, "Tour not found")

	pending, err := s.tours.ListPending(s.ctx, s.tenant.ID, "driver|1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 0, pending[0].Items[0].DeliveryQuantity)
}

func TestActivitySummary(t *testing.T) {
	s := newTourSetup(t)
	item := service.PickupItemRequest{TariffGroupID: s.std.ID.String(), PickupQuantity: qty(5)}
	open := s.pickup(t, item)
	closed := s.pickup(t, item)
	_, err := s.tours.SubmitDelivery(s.ctx, s.tenant.ID, "driver|1", closed.TourID, service.SubmitDeliveryRequest{
		Items: []service.DeliveryItemRequest{{TariffGroupID: s.std.ID.String(), DeliveryQuantity: qty(3)}},
	})
	require.NoError(t, err)

	res, err := s.tours.ActivitySummary(s.ctx, s.tenant.ID, "", "")
	require.NoError(t, err)
	require.Len(t, res.InProgress, 1)
	assert.Equal(t, open.TourID, res.InProgress[0].TourID)
	assert.Equal(t, "Alice", res.InProgress[0].DriverName)
	assert.Equal(t, 5, res.InProgress[0].TotalPickup)
	assert.Equal(t, 1, res.ClosedCount)
	assert.Equal(t, 2, res.ReturnCount)

	yesterday := testutil.Days(-1).Format(model.DateLayout)
	empty, err := s.tours.ActivitySummary(s.ctx, s.tenant.ID, yesterday, yesterday)
	require.NoError(t, err)
	assert.Empty(t, empty.InProgress)
	assert.Zero(t, empty.ClosedCount)

	_, err = s.tours.ActivitySummary(s.ctx, s.tenant.ID, testutil.Days(1).Format(model.DateLayout), yesterday)
	assertKind(t, err, apperror.KindBadRequest, "Invalid date range")
}
