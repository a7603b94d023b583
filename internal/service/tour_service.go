package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"delivops/internal/model"
	"delivops/internal/repository"
	"delivops/internal/tariff"
	"delivops/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type PickupItemRequest struct {
	TariffGroupID  string `json:"tariffGroupId" binding:"required"`
	PickupQuantity *int   `json:"pickupQuantity" binding:"required"`
}

type CreatePickupRequest struct {
	Date     string              `json:"date" binding:"required,isodate"`
	ClientID string              `json:"clientId" binding:"required"`
	Items    []PickupItemRequest `json:"items" binding:"dive"`
}

type DeliveryItemRequest struct {
	TariffGroupID    string `json:"tariffGroupId" binding:"required"`
	DeliveryQuantity *int   `json:"deliveryQuantity" binding:"required"`
}

type SubmitDeliveryRequest struct {
	Items []DeliveryItemRequest `json:"items" binding:"dive"`
}

type TourParty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TourItemResponse struct {
	TariffGroupID     string `json:"tariffGroupId"`
	DisplayName       string `json:"displayName"`
	PickupQuantity    int    `json:"pickupQuantity"`
	DeliveryQuantity  int    `json:"deliveryQuantity"`
	Difference        int    `json:"difference"`
	UnitPriceExVat    string `json:"unitPriceExVat"`
	AmountExVat       string `json:"amountExVat"`
	UnitMarginExVat   string `json:"unitMarginExVat"`
	MarginAmountExVat string `json:"marginAmountExVat"`
}

type TourTotals struct {
	PickupQty         int    `json:"pickupQty"`
	DeliveryQty       int    `json:"deliveryQty"`
	DifferenceQty     int    `json:"differenceQty"`
	AmountExVat       string `json:"amountExVat"`
	MarginAmountExVat string `json:"marginAmountExVat"`
}

type TourResponse struct {
	TourID string             `json:"tourId"`
	Date   string             `json:"date"`
	Status string             `json:"status"`
	Driver TourParty          `json:"driver"`
	Client TourParty          `json:"client"`
	Items  []TourItemResponse `json:"items"`
	Totals TourTotals         `json:"totals"`
}

type InProgressTour struct {
	TourID        string `json:"tourId"`
	Date          string `json:"date"`
	DriverName    string `json:"driverName"`
	ClientName    string `json:"clientName"`
	TotalPickup   int    `json:"totalPickup"`
	TotalDelivery int    `json:"totalDelivery"`
}

type ActivitySummaryResponse struct {
	InProgress  []InProgressTour `json:"inProgress"`
	ClosedCount int              `json:"closedCount"`
	ReturnCount int              `json:"returnCount"`
}

// --- Interface ---

type TourService interface {
	CreatePickup(ctx context.Context, tenantID uuid.UUID, driverSub string, req CreatePickupRequest) (TourResponse, error)
	ListPending(ctx context.Context, tenantID uuid.UUID, driverSub string) ([]TourResponse, error)
	SubmitDelivery(ctx context.Context, tenantID uuid.UUID, driverSub, tourID string, req SubmitDeliveryRequest) (TourResponse, error)
	ActivitySummary(ctx context.Context, tenantID uuid.UUID, startDate, endDate string) (ActivitySummaryResponse, error)
}

type tourService struct {
	tourRepo      repository.TourRepository
	clientRepo    repository.ClientRepository
	groupRepo     repository.TariffGroupRepository
	chauffeurRepo repository.ChauffeurRepository
	userRepo      repository.UserRepository
	txManager     repository.TransactionManager
	resolver      *tariff.Resolver
	events        EventPublisher
	recorder      Recorder
	log           *zap.Logger
	now           func() time.Time
}

type TourDeps struct {
	Tours      repository.TourRepository
	Clients    repository.ClientRepository
	Groups     repository.TariffGroupRepository
	Chauffeurs repository.ChauffeurRepository
	Users      repository.UserRepository
	TxManager  repository.TransactionManager
	Resolver   *tariff.Resolver
	Events     EventPublisher
	Recorder   Recorder
	Logger     *zap.Logger
}

func NewTourService(d TourDeps) TourService {
	s := &tourService{
		tourRepo:      d.Tours,
		clientRepo:    d.Clients,
		groupRepo:     d.Groups,
		chauffeurRepo: d.Chauffeurs,
		userRepo:      d.Users,
		txManager:     d.TxManager,
		resolver:      d.Resolver,
		events:        d.Events,
		recorder:      d.Recorder,
		log:           d.Logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// --- Implementation ---

// currentDriver maps the authenticated subject to its chauffeur and marks it seen.
func (s *tourService) currentDriver(ctx context.Context, tenantID uuid.UUID, sub string) (*model.Chauffeur, error) {
	user, err := s.userRepo.FindBySub(ctx, tenantID, sub)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Forbidden("Driver not found")
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if user.Role != model.RoleChauffeur {
		return nil, apperror.Forbidden("Driver not found")
	}

	driver, err := s.chauffeurRepo.FindByUserID(ctx, tenantID, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Forbidden("Driver not found")
		}
		return nil, fmt.Errorf("failed to fetch driver: %w", err)
	}

	seen := s.now()
	if err := s.chauffeurRepo.TouchLastSeen(ctx, driver.ID, seen); err != nil {
		return nil, fmt.Errorf("failed to update driver activity: %w", err)
	}
	driver.LastSeenAt = &seen
	return driver, nil
}

type pickupLine struct {
	group *model.TariffGroup
	qty   int
	price tariff.Price
}

func (s *tourService) CreatePickup(ctx context.Context, tenantID uuid.UUID, driverSub string, req CreatePickupRequest) (TourResponse, error) {
	driver, err := s.currentDriver(ctx, tenantID, driverSub)
	if err != nil {
		return TourResponse{}, err
	}

	date, err := parseDate(req.Date, "tour")
	if err != nil {
		return TourResponse{}, err
	}

	var tourID uuid.UUID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		clientID, err := parseID(req.ClientID, "Client not found")
		if err != nil {
			return err
		}
		client, err := s.clientRepo.FindByID(txCtx, tenantID, clientID)
		if err != nil {
			return lookupErr(err, "Client not found", "client")
		}

		if len(req.Items) == 0 {
			return apperror.BadRequest("At least one item is required")
		}

		lines := make([]pickupLine, 0, len(req.Items))
		seen := make(map[uuid.UUID]struct{}, len(req.Items))
		for _, item := range req.Items {
			groupID, err := parseID(item.TariffGroupID, "Tariff group not found")
			if err != nil {
				return err
			}
			if _, dup := seen[groupID]; dup {
				return apperror.BadRequest("Duplicate tariff group in items")
			}
			seen[groupID] = struct{}{}
			group, err := s.groupRepo.FindByID(txCtx, tenantID, groupID)
			if err != nil {
				return lookupErr(err, "Tariff group not found", "tariff group")
			}
			if !group.AvailableFor(client.ID) {
				return apperror.BadRequest("Tariff group not available for this client")
			}
			qty := 0
			if item.PickupQuantity != nil {
				qty = *item.PickupQuantity
			}
			if qty < 0 {
				return apperror.BadRequest("Quantity cannot be negative")
			}
			price, err := s.resolver.Resolve(txCtx, group.ID, date)
			if err != nil {
				return err
			}
			lines = append(lines, pickupLine{group: group, qty: qty, price: price})
		}

		tour := model.Tour{
			TenantID: tenantID,
			DriverID: driver.ID,
			ClientID: client.ID,
			Date:     date,
			Status:   model.TourStatusInProgress,
		}
		if err := s.tourRepo.Create(txCtx, &tour); err != nil {
			return fmt.Errorf("failed to create tour: %w", err)
		}

		for _, line := range lines {
			item := model.TourItem{
				TenantID:                tenantID,
				TourID:                  tour.ID,
				TariffGroupID:           line.group.ID,
				PickupQuantity:          line.qty,
				DeliveryQuantity:        0,
				UnitPriceExVATSnapshot:  line.price.UnitPrice,
				AmountExVATSnapshot:     decimal.Zero,
				UnitMarginExVATSnapshot: line.price.UnitMargin,
				MarginExVATSnapshot:     decimal.Zero,
			}
			if err := s.tourRepo.CreateItem(txCtx, &item); err != nil {
				return fmt.Errorf("failed to create tour item: %w", err)
			}
		}

		tourID = tour.ID
		parcels := 0
		for _, line := range lines {
			parcels += line.qty
		}
		repository.AfterCommit(txCtx, func() {
			s.recorder.TourPickup(parcels)
		})
		return nil
	})
	if err != nil {
		return TourResponse{}, err
	}

	res, err := s.loadTour(ctx, tenantID, tourID)
	if err != nil {
		return TourResponse{}, err
	}
	s.events.Publish(tenantID, EventTourPickup, res)
	s.log.Info("pickup recorded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("tour_id", res.TourID),
		zap.Int("items", len(res.Items)))
	return res, nil
}

func (s *tourService) ListPending(ctx context.Context, tenantID uuid.UUID, driverSub string) ([]TourResponse, error) {
	driver, err := s.currentDriver(ctx, tenantID, driverSub)
	if err != nil {
		return nil, err
	}

	tours, err := s.tourRepo.ListByDriver(ctx, tenantID, driver.ID, model.TourStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending tours: %w", err)
	}

	res := make([]TourResponse, 0, len(tours))
	for i := range tours {
		res = append(res, serializeTour(&tours[i]))
	}
	return res, nil
}

func (s *tourService) SubmitDelivery(ctx context.Context, tenantID uuid.UUID, driverSub, rawTourID string, req SubmitDeliveryRequest) (TourResponse, error) {
	driver, err := s.currentDriver(ctx, tenantID, driverSub)
	if err != nil {
		return TourResponse{}, err
	}

	tourID, err := parseID(rawTourID, "Tour not found")
	if err != nil {
		return TourResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		tour, err := s.tourRepo.FindByID(txCtx, tenantID, tourID)
		if err != nil {
			return lookupErr(err, "Tour not found", "tour")
		}
		if tour.DriverID != driver.ID {
			return apperror.Forbidden("Tour not owned by driver")
		}
		if tour.Status != model.TourStatusInProgress {
			return apperror.BadRequest("Tour already completed")
		}
		if len(req.Items) == 0 {
			return apperror.BadRequest("At least one item is required")
		}

		byGroup := make(map[uuid.UUID]*model.TourItem, len(tour.Items))
		for i := range tour.Items {
			byGroup[tour.Items[i].TariffGroupID] = &tour.Items[i]
		}

		delivered := make(map[uuid.UUID]int, len(req.Items))
		for _, in := range req.Items {
			groupID, err := uuid.Parse(in.TariffGroupID)
			if err != nil {
				return apperror.BadRequest("Unknown tariff group")
			}
			line, ok := byGroup[groupID]
			if !ok {
				return apperror.BadRequest("Unknown tariff group")
			}
			if _, dup := delivered[groupID]; dup {
				return apperror.BadRequest("Duplicate tariff group in items")
			}
			qty := 0
			if in.DeliveryQuantity != nil {
				qty = *in.DeliveryQuantity
			}
			if qty < 0 {
				return apperror.BadRequest("Quantity cannot be negative")
			}
			if qty > line.PickupQuantity {
				return apperror.BadRequest("Delivered quantity cannot exceed picked up quantity")
			}
			delivered[groupID] = qty
		}

		// Lines missing from the payload count as undelivered.
		for groupID, line := range byGroup {
			qty := delivered[groupID]
			line.DeliveryQuantity = qty
			line.AmountExVATSnapshot = tariff.LineAmount(line.UnitPriceExVATSnapshot, qty)
			line.MarginExVATSnapshot = tariff.LineAmount(line.UnitMarginExVATSnapshot, qty)
			if err := s.tourRepo.UpdateItem(txCtx, line); err != nil {
				return fmt.Errorf("failed to update tour item: %w", err)
			}
		}

		tour.Status = model.TourStatusCompleted
		if err := s.tourRepo.Update(txCtx, tour); err != nil {
			return fmt.Errorf("failed to complete tour: %w", err)
		}

		parcels := 0
		for _, qty := range delivered {
			parcels += qty
		}
		repository.AfterCommit(txCtx, func() {
			s.recorder.TourDelivery(parcels)
		})
		return nil
	})
	if err != nil {
		return TourResponse{}, err
	}

	res, err := s.loadTour(ctx, tenantID, tourID)
	if err != nil {
		return TourResponse{}, err
	}
	s.events.Publish(tenantID, EventTourDelivery, res)
	s.log.Info("tour completed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("tour_id", res.TourID),
		zap.Int("delivered", res.Totals.DeliveryQty),
		zap.Int("difference", res.Totals.DifferenceQty))
	return res, nil
}

func (s *tourService) ActivitySummary(ctx context.Context, tenantID uuid.UUID, startDate, endDate string) (ActivitySummaryResponse, error) {
	start := model.TruncateDate(s.now())
	if startDate != "" {
		d, err := parseDate(startDate, "start")
		if err != nil {
			return ActivitySummaryResponse{}, err
		}
		start = d
	}
	end := start
	if endDate != "" {
		d, err := parseDate(endDate, "end")
		if err != nil {
			return ActivitySummaryResponse{}, err
		}
		end = d
	}
	if start.After(end) {
		return ActivitySummaryResponse{}, apperror.BadRequest("Invalid date range")
	}

	tours, err := s.tourRepo.ListBetween(ctx, tenantID, start, end)
	if err != nil {
		return ActivitySummaryResponse{}, fmt.Errorf("failed to fetch tours: %w", err)
	}

	res := ActivitySummaryResponse{InProgress: []InProgressTour{}}
	for i := range tours {
		t := &tours[i]
		pickup, delivery := 0, 0
		for _, item := range t.Items {
			pickup += item.PickupQuantity
			delivery += item.DeliveryQuantity
		}

		switch t.Status {
		case model.TourStatusInProgress:
			res.InProgress = append(res.InProgress, InProgressTour{
				TourID:        t.ID.String(),
				Date:          formatDate(t.Date),
				DriverName:    driverName(t),
				ClientName:    clientName(t),
				TotalPickup:   pickup,
				TotalDelivery: delivery,
			})
		case model.TourStatusCompleted:
			res.ClosedCount++
			if pickup > delivery {
				res.ReturnCount += pickup - delivery
			}
		}
	}

	sort.SliceStable(res.InProgress, func(i, j int) bool {
		a, b := res.InProgress[i], res.InProgress[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.TourID < b.TourID
	})
	return res, nil
}

// --- Helpers ---

func (s *tourService) loadTour(ctx context.Context, tenantID, tourID uuid.UUID) (TourResponse, error) {
	tour, err := s.tourRepo.FindByID(ctx, tenantID, tourID)
	if err != nil {
		return TourResponse{}, lookupErr(err, "Tour not found", "tour")
	}
	return serializeTour(tour), nil
}

func driverName(t *model.Tour) string {
	if t.Driver == nil {
		return placeholderLabel
	}
	return t.Driver.DisplayName
}

func clientName(t *model.Tour) string {
	if t.Client == nil {
		return placeholderLabel
	}
	return t.Client.Name
}

func itemLabel(item *model.TourItem) string {
	if item.TariffGroup != nil {
		return item.TariffGroup.DisplayName
	}
	return item.TariffGroupID.String()
}

// serializeTour orders items by tariff group name and computes the totals.
func serializeTour(t *model.Tour) TourResponse {
	items := make([]*model.TourItem, 0, len(t.Items))
	for i := range t.Items {
		items = append(items, &t.Items[i])
	}
	sort.SliceStable(items, func(i, j int) bool {
		li, lj := itemLabel(items[i]), itemLabel(items[j])
		if li != lj {
			return li < lj
		}
		return items[i].TariffGroupID.String() < items[j].TariffGroupID.String()
	})

	res := TourResponse{
		TourID: t.ID.String(),
		Date:   formatDate(t.Date),
		Status: t.Status,
		Driver: TourParty{ID: t.DriverID.String(), Name: driverName(t)},
		Client: TourParty{ID: t.ClientID.String(), Name: clientName(t)},
		Items:  make([]TourItemResponse, 0, len(items)),
	}

	amount, margin := decimal.Zero, decimal.Zero
	for _, item := range items {
		res.Items = append(res.Items, TourItemResponse{
			TariffGroupID:     item.TariffGroupID.String(),
			DisplayName:       itemLabel(item),
			PickupQuantity:    item.PickupQuantity,
			DeliveryQuantity:  item.DeliveryQuantity,
			Difference:        item.Difference(),
			UnitPriceExVat:    money(item.UnitPriceExVATSnapshot),
			AmountExVat:       money(item.AmountExVATSnapshot),
			UnitMarginExVat:   money(item.UnitMarginExVATSnapshot),
			MarginAmountExVat: money(item.MarginExVATSnapshot),
		})
		res.Totals.PickupQty += item.PickupQuantity
		res.Totals.DeliveryQty += item.DeliveryQuantity
		amount = amount.Add(item.AmountExVATSnapshot)
		margin = margin.Add(item.MarginExVATSnapshot)
	}
	res.Totals.DifferenceQty = res.Totals.PickupQty - res.Totals.DeliveryQty
	res.Totals.AmountExVat = money(amount)
	res.Totals.MarginAmountExVat = money(margin)
	return res
}
