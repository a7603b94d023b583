package service

import (
	"context"
	"errors"
	"fmt"

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

type DeclarationQuery struct {
	DateFrom string `form:"date_from" binding:"omitempty,isodate"`
	DateTo   string `form:"date_to" binding:"omitempty,isodate"`
	ClientID string `form:"client_id"`
	DriverID string `form:"driver_id"`
}

type CreateDeclarationRequest struct {
	DriverID           string           `json:"driverId" binding:"required"`
	ClientID           string           `json:"clientId" binding:"required"`
	TariffGroupID      string           `json:"tariffGroupId" binding:"required"`
	Date               string           `json:"date" binding:"required,isodate"`
	PickupQuantity     *int             `json:"pickupQuantity" binding:"required"`
	DeliveryQuantity   *int             `json:"deliveryQuantity" binding:"required"`
	EstimatedAmountEur *decimal.Decimal `json:"estimatedAmountEur"`
}

type UpdateDeclarationRequest struct {
	PickupQuantity     *int             `json:"pickupQuantity"`
	DeliveryQuantity   *int             `json:"deliveryQuantity"`
	EstimatedAmountEur *decimal.Decimal `json:"estimatedAmountEur"`
}

type DeclarationResponse struct {
	TourID                 string  `json:"tourId"`
	TourItemID             *string `json:"tourItemId"`
	Date                   string  `json:"date"`
	Status                 string  `json:"status"`
	DriverID               string  `json:"driverId"`
	DriverName             string  `json:"driverName"`
	ClientID               string  `json:"clientId"`
	ClientName             string  `json:"clientName"`
	TariffGroupID          *string `json:"tariffGroupId"`
	TariffGroupDisplayName string  `json:"tariffGroupDisplayName"`
	PickupQuantity         int     `json:"pickupQuantity"`
	DeliveryQuantity       int     `json:"deliveryQuantity"`
	DifferenceQuantity     int     `json:"differenceQuantity"`
	EstimatedAmountEur     string  `json:"estimatedAmountEur"`
	UnitPriceExVat         string  `json:"unitPriceExVat"`
	UnitMarginExVat        string  `json:"unitMarginExVat"`
	MarginAmountEur        string  `json:"marginAmountEur"`
}

// --- Interface ---

type DeclarationService interface {
	List(ctx context.Context, tenantID uuid.UUID, q DeclarationQuery) ([]DeclarationResponse, error)
	Create(ctx context.Context, tenantID uuid.UUID, actorSub string, req CreateDeclarationRequest) (DeclarationResponse, error)
	Update(ctx context.Context, tenantID uuid.UUID, actorSub, itemID string, req UpdateDeclarationRequest) (DeclarationResponse, error)
	Delete(ctx context.Context, tenantID uuid.UUID, actorSub, itemID string) error
}

type declarationService struct {
	declRepo      repository.DeclarationRepository
	tourRepo      repository.TourRepository
	chauffeurRepo repository.ChauffeurRepository
	clientRepo    repository.ClientRepository
	groupRepo     repository.TariffGroupRepository
	txManager     repository.TransactionManager
	resolver      *tariff.Resolver
	audit         auditTrail
	events        EventPublisher
	recorder      Recorder
	log           *zap.Logger
}

type DeclarationDeps struct {
	Declarations repository.DeclarationRepository
	Tours        repository.TourRepository
	Chauffeurs   repository.ChauffeurRepository
	Clients      repository.ClientRepository
	Groups       repository.TariffGroupRepository
	Users        repository.UserRepository
	Audit        repository.AuditRepository
	TxManager    repository.TransactionManager
	Resolver     *tariff.Resolver
	Events       EventPublisher
	Recorder     Recorder
	Logger       *zap.Logger
}

func NewDeclarationService(d DeclarationDeps) DeclarationService {
	s := &declarationService{
		declRepo:      d.Declarations,
		tourRepo:      d.Tours,
		chauffeurRepo: d.Chauffeurs,
		clientRepo:    d.Clients,
		groupRepo:     d.Groups,
		txManager:     d.TxManager,
		resolver:      d.Resolver,
		audit:         auditTrail{auditRepo: d.Audit, userRepo: d.Users},
		events:        d.Events,
		recorder:      d.Recorder,
		log:           d.Logger,
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

func (s *declarationService) List(ctx context.Context, tenantID uuid.UUID, q DeclarationQuery) ([]DeclarationResponse, error) {
	var filter model.DeclarationFilter
	if q.DateFrom != "" {
		d, err := parseDate(q.DateFrom, "date_from")
		if err != nil {
			return nil, err
		}
		filter.DateFrom = &d
	}
	if q.DateTo != "" {
		d, err := parseDate(q.DateTo, "date_to")
		if err != nil {
			return nil, err
		}
		filter.DateTo = &d
	}
	if q.ClientID != "" {
		id, err := uuid.Parse(q.ClientID)
		if err != nil {
			return nil, apperror.BadRequest("invalid client_id")
		}
		filter.ClientID = &id
	}
	if q.DriverID != "" {
		id, err := uuid.Parse(q.DriverID)
		if err != nil {
			return nil, apperror.BadRequest("invalid driver_id")
		}
		filter.DriverID = &id
	}

	rows, err := s.declRepo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query declarations: %w", err)
	}

	res := make([]DeclarationResponse, 0, len(rows))
	for i := range rows {
		res = append(res, toDeclarationResponse(&rows[i]))
	}
	return res, nil
}

func (s *declarationService) Create(ctx context.Context, tenantID uuid.UUID, actorSub string, req CreateDeclarationRequest) (DeclarationResponse, error) {
	date, err := parseDate(req.Date, "declaration")
	if err != nil {
		return DeclarationResponse{}, err
	}
	pickup, delivery := derefQty(req.PickupQuantity), derefQty(req.DeliveryQuantity)

	var res DeclarationResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		driverID, err := parseID(req.DriverID, "Driver not found")
		if err != nil {
			return err
		}
		driver, err := s.chauffeurRepo.FindByID(txCtx, tenantID, driverID)
		if err != nil {
			return lookupErr(err, "Driver not found", "driver")
		}

		clientID, err := parseID(req.ClientID, "Client not found")
		if err != nil {
			return err
		}
		client, err := s.clientRepo.FindByID(txCtx, tenantID, clientID)
		if err != nil {
			return lookupErr(err, "Client not found", "client")
		}

		groupID, err := parseID(req.TariffGroupID, "Tariff group not found")
		if err != nil {
			return err
		}
		group, err := s.groupRepo.FindByID(txCtx, tenantID, groupID)
		if err != nil {
			return lookupErr(err, "Tariff group not found", "tariff group")
		}
		if !group.AvailableFor(client.ID) {
			return apperror.BadRequest("Tariff group not available for this client")
		}

		if err := validateQuantities(pickup, delivery, req.EstimatedAmountEur); err != nil {
			return err
		}

		tour, err := s.tourRepo.FindByKey(txCtx, tenantID, driver.ID, client.ID, date)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			tour = &model.Tour{
				TenantID: tenantID,
				DriverID: driver.ID,
				ClientID: client.ID,
				Date:     date,
				Status:   model.TourStatusCompleted,
			}
			if err := s.tourRepo.Create(txCtx, tour); err != nil {
				return fmt.Errorf("failed to create tour: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to fetch tour: %w", err)
		default:
			_, err := s.tourRepo.FindItemByGroup(txCtx, tenantID, tour.ID, group.ID)
			if err == nil {
				return apperror.BadRequest("A declaration already exists for this tariff group on this tour")
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to fetch tour item: %w", err)
			}
			tour.Status = model.TourStatusCompleted
			if err := s.tourRepo.Update(txCtx, tour); err != nil {
				return fmt.Errorf("failed to complete tour: %w", err)
			}
		}

		price, err := s.resolver.Resolve(txCtx, group.ID, date)
		if err != nil {
			return err
		}
		amount := tariff.LineAmount(price.UnitPrice, delivery)
		if req.EstimatedAmountEur != nil {
			amount = req.EstimatedAmountEur.Round(2)
		}

		item := model.TourItem{
			TenantID:                tenantID,
			TourID:                  tour.ID,
			TariffGroupID:           group.ID,
			PickupQuantity:          pickup,
			DeliveryQuantity:        delivery,
			UnitPriceExVATSnapshot:  price.UnitPrice,
			AmountExVATSnapshot:     amount,
			UnitMarginExVATSnapshot: price.UnitMargin,
			MarginExVATSnapshot:     tariff.LineAmount(price.UnitMargin, delivery),
		}
		if err := s.tourRepo.CreateItem(txCtx, &item); err != nil {
			return fmt.Errorf("failed to create declaration: %w", err)
		}

		res, err = s.reload(txCtx, tenantID, item.ID)
		if err != nil {
			return err
		}
		if err := s.audit.write(txCtx, tenantID, actorSub, model.AuditEntityDeclaration, item.ID.String(), model.AuditActionCreate, nil, res); err != nil {
			return err
		}
		s.afterAdjust(txCtx, tenantID, model.AuditActionCreate, res)
		return nil
	})
	if err != nil {
		return DeclarationResponse{}, err
	}
	return res, nil
}

func (s *declarationService) Update(ctx context.Context, tenantID uuid.UUID, actorSub, rawItemID string, req UpdateDeclarationRequest) (DeclarationResponse, error) {
	itemID, err := parseID(rawItemID, "Declaration not found")
	if err != nil {
		return DeclarationResponse{}, err
	}

	var res DeclarationResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		before, err := s.reload(txCtx, tenantID, itemID)
		if err != nil {
			return err
		}
		item, err := s.tourRepo.FindItem(txCtx, tenantID, itemID)
		if err != nil {
			return lookupErr(err, "Declaration not found", "declaration")
		}

		pickup, delivery := item.PickupQuantity, item.DeliveryQuantity
		if req.PickupQuantity != nil {
			pickup = *req.PickupQuantity
		}
		if req.DeliveryQuantity != nil {
			delivery = *req.DeliveryQuantity
		}
		if err := validateQuantities(pickup, delivery, req.EstimatedAmountEur); err != nil {
			return err
		}

		item.PickupQuantity = pickup
		item.DeliveryQuantity = delivery
		switch {
		case req.EstimatedAmountEur != nil:
			item.AmountExVATSnapshot = req.EstimatedAmountEur.Round(2)
		case req.DeliveryQuantity != nil:
			item.AmountExVATSnapshot = tariff.LineAmount(item.UnitPriceExVATSnapshot, delivery)
		}
		item.MarginExVATSnapshot = tariff.LineAmount(item.UnitMarginExVATSnapshot, delivery)

		if err := s.tourRepo.UpdateItem(txCtx, item); err != nil {
			return fmt.Errorf("failed to update declaration: %w", err)
		}

		res, err = s.reload(txCtx, tenantID, itemID)
		if err != nil {
			return err
		}
		if err := s.audit.write(txCtx, tenantID, actorSub, model.AuditEntityDeclaration, itemID.String(), model.AuditActionUpdate, before, res); err != nil {
			return err
		}
		s.afterAdjust(txCtx, tenantID, model.AuditActionUpdate, res)
		return nil
	})
	if err != nil {
		return DeclarationResponse{}, err
	}
	return res, nil
}

func (s *declarationService) Delete(ctx context.Context, tenantID uuid.UUID, actorSub, rawItemID string) error {
	itemID, err := parseID(rawItemID, "Declaration not found")
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		before, err := s.reload(txCtx, tenantID, itemID)
		if err != nil {
			return err
		}
		tourID, err := uuid.Parse(before.TourID)
		if err != nil {
			return fmt.Errorf("failed to parse tour id: %w", err)
		}

		if err := s.tourRepo.DeleteItem(txCtx, tenantID, itemID); err != nil {
			return fmt.Errorf("failed to delete declaration: %w", err)
		}

		remaining, err := s.tourRepo.CountItems(txCtx, tenantID, tourID)
		if err != nil {
			return fmt.Errorf("failed to count tour items: %w", err)
		}
		if remaining == 0 {
			if err := s.tourRepo.Delete(txCtx, tenantID, tourID); err != nil {
				return fmt.Errorf("failed to delete empty tour: %w", err)
			}
		}

		if err := s.audit.write(txCtx, tenantID, actorSub, model.AuditEntityDeclaration, itemID.String(), model.AuditActionDelete, before, nil); err != nil {
			return err
		}
		s.afterAdjust(txCtx, tenantID, model.AuditActionDelete, before)
		return nil
	})
}

// --- Helpers ---

func (s *declarationService) reload(ctx context.Context, tenantID, itemID uuid.UUID) (DeclarationResponse, error) {
	row, err := s.declRepo.FindByItemID(ctx, tenantID, itemID)
	if err != nil {
		return DeclarationResponse{}, lookupErr(err, "Declaration not found", "declaration")
	}
	return toDeclarationResponse(row), nil
}

func (s *declarationService) afterAdjust(txCtx context.Context, tenantID uuid.UUID, action string, line DeclarationResponse) {
	repository.AfterCommit(txCtx, func() {
		s.recorder.DeclarationAdjusted(action)
		s.events.Publish(tenantID, EventDeclarationAdjusted, map[string]interface{}{
			"action":      action,
			"declaration": line,
		})
		s.log.Info("declaration adjusted",
			zap.String("tenant_id", tenantID.String()),
			zap.String("action", action),
			zap.String("tour_id", line.TourID))
	})
}

func derefQty(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func validateQuantities(pickup, delivery int, estimate *decimal.Decimal) error {
	if pickup < 0 || delivery < 0 {
		return apperror.BadRequest("Quantity cannot be negative")
	}
	if delivery > pickup {
		return apperror.BadRequest("Delivered quantity cannot exceed picked up quantity")
	}
	if estimate != nil && estimate.IsNegative() {
		return apperror.BadRequest("Amount cannot be negative")
	}
	return nil
}

func toDeclarationResponse(r *model.DeclarationRow) DeclarationResponse {
	res := DeclarationResponse{
		TourID:                 r.TourID.String(),
		Date:                   formatDate(r.Date),
		Status:                 r.Status,
		DriverID:               r.DriverID.String(),
		DriverName:             r.DriverName,
		ClientID:               r.ClientID.String(),
		ClientName:             r.ClientName,
		TariffGroupDisplayName: placeholderLabel,
		EstimatedAmountEur:     nullMoney(r.Amount),
		UnitPriceExVat:         nullMoney(r.UnitPrice),
		UnitMarginExVat:        nullMoney(r.UnitMargin),
		MarginAmountEur:        nullMoney(r.Margin),
	}
	if r.TourItemID.Valid {
		id := r.TourItemID.UUID.String()
		res.TourItemID = &id
	}
	if r.TariffGroupID.Valid {
		id := r.TariffGroupID.UUID.String()
		res.TariffGroupID = &id
	}
	if r.TariffGroupName != nil {
		res.TariffGroupDisplayName = *r.TariffGroupName
	}
	if r.PickupQuantity != nil {
		res.PickupQuantity = *r.PickupQuantity
	}
	if r.DeliveryQuantity != nil {
		res.DeliveryQuantity = *r.DeliveryQuantity
	}
	res.DifferenceQuantity = res.PickupQuantity - res.DeliveryQuantity
	return res
}
