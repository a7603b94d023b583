package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"delivops/internal/model"
	"delivops/internal/notify"
	"delivops/internal/repository"
	"delivops/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// --- DTOs ---

type CreateChauffeurRequest struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"displayName" binding:"required"`
}

type UpdateChauffeurRequest struct {
	Email       *string `json:"email" binding:"omitempty,email"`
	DisplayName *string `json:"displayName" binding:"omitempty,min=1"`
	IsActive    *bool   `json:"isActive"`
}

type ChauffeurResponse struct {
	ID          string  `json:"id"`
	UserID      *string `json:"userId"`
	Email       string  `json:"email"`
	DisplayName string  `json:"displayName"`
	IsActive    bool    `json:"isActive"`
	LastSeenAt  *string `json:"lastSeenAt"`
}

type ChauffeurCountResponse struct {
	Count      int64 `json:"count"`
	Subscribed int   `json:"subscribed"`
}

// --- Interface ---

type ChauffeurService interface {
	Count(ctx context.Context, tenantID uuid.UUID) (ChauffeurCountResponse, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]ChauffeurResponse, error)
	Create(ctx context.Context, tenantID uuid.UUID, actorSub string, req CreateChauffeurRequest) (ChauffeurResponse, error)
	Update(ctx context.Context, tenantID uuid.UUID, actorSub, id string, req UpdateChauffeurRequest) (ChauffeurResponse, error)
	Delete(ctx context.Context, tenantID uuid.UUID, actorSub, id string) error
}

type chauffeurService struct {
	tenantRepo     repository.TenantRepository
	chauffeurRepo  repository.ChauffeurRepository
	tourRepo       repository.TourRepository
	txManager      repository.TransactionManager
	audit          auditTrail
	mailer         notify.Mailer
	activationBase string
	log            *zap.Logger
}

type ChauffeurDeps struct {
	Tenants        repository.TenantRepository
	Chauffeurs     repository.ChauffeurRepository
	Tours          repository.TourRepository
	Users          repository.UserRepository
	Audit          repository.AuditRepository
	TxManager      repository.TransactionManager
	Mailer         notify.Mailer
	ActivationBase string
	Logger         *zap.Logger
}

func NewChauffeurService(d ChauffeurDeps) ChauffeurService {
	s := &chauffeurService{
		tenantRepo:     d.Tenants,
		chauffeurRepo:  d.Chauffeurs,
		tourRepo:       d.Tours,
		txManager:      d.TxManager,
		audit:          auditTrail{auditRepo: d.Audit, userRepo: d.Users},
		mailer:         d.Mailer,
		activationBase: d.ActivationBase,
		log:            d.Logger,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.mailer == nil {
		s.mailer = notify.NewLogMailer(s.log)
	}
	return s
}

// --- Implementation ---

func (s *chauffeurService) Count(ctx context.Context, tenantID uuid.UUID) (ChauffeurCountResponse, error) {
	count, err := s.chauffeurRepo.Count(ctx, tenantID, false)
	if err != nil {
		return ChauffeurCountResponse{}, fmt.Errorf("failed to count drivers: %w", err)
	}
	res := ChauffeurCountResponse{Count: count}
	if tenant, err := s.tenantRepo.FindByID(ctx, tenantID); err == nil {
		res.Subscribed = tenant.MaxChauffeurs
	}
	return res, nil
}

func (s *chauffeurService) List(ctx context.Context, tenantID uuid.UUID) ([]ChauffeurResponse, error) {
	chauffeurs, err := s.chauffeurRepo.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch drivers: %w", err)
	}
	res := make([]ChauffeurResponse, 0, len(chauffeurs))
	for i := range chauffeurs {
		res = append(res, toChauffeurResponse(&chauffeurs[i]))
	}
	return res, nil
}

// Create adds a driver within the tenant quota and sends the activation link.
func (s *chauffeurService) Create(ctx context.Context, tenantID uuid.UUID, actorSub string, req CreateChauffeurRequest) (ChauffeurResponse, error) {
	chauffeur := model.Chauffeur{
		TenantID:    tenantID,
		Email:       strings.TrimSpace(req.Email),
		DisplayName: strings.TrimSpace(req.DisplayName),
		IsActive:    true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		tenant, err := s.tenantRepo.FindByID(txCtx, tenantID)
		if err != nil {
			return lookupErr(err, "Tenant not found", "tenant")
		}
		current, err := s.chauffeurRepo.Count(txCtx, tenantID, false)
		if err != nil {
			return fmt.Errorf("failed to count drivers: %w", err)
		}
		if tenant.MaxChauffeurs > 0 && current >= int64(tenant.MaxChauffeurs) {
			return apperror.BadRequest("Driver limit reached")
		}

		if err := s.chauffeurRepo.Create(txCtx, &chauffeur); err != nil {
			return fmt.Errorf("failed to create driver: %w", err)
		}
		if err := s.audit.write(txCtx, tenantID, actorSub, model.AuditEntityChauffeur, chauffeur.ID.String(), model.AuditActionCreate, nil, toChauffeurResponse(&chauffeur)); err != nil {
			return err
		}

		link := s.activationLink()
		repository.AfterCommit(txCtx, func() {
			if err := s.mailer.SendActivation(ctx, chauffeur.Email, link); err != nil {
				s.log.Warn("failed to send activation email", zap.String("driver_id", chauffeur.ID.String()), zap.Error(err))
			}
		})
		return nil
	})
	if err != nil {
		return ChauffeurResponse{}, err
	}
	return toChauffeurResponse(&chauffeur), nil
}

func (s *chauffeurService) Update(ctx context.Context, tenantID uuid.UUID, actorSub, rawID string, req UpdateChauffeurRequest) (ChauffeurResponse, error) {
	id, err := parseID(rawID, "Driver not found")
	if err != nil {
		return ChauffeurResponse{}, err
	}

	var res ChauffeurResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		chauffeur, err := s.chauffeurRepo.FindByID(txCtx, tenantID, id)
		if err != nil {
			return lookupErr(err, "Driver not found", "driver")
		}
		before := toChauffeurResponse(chauffeur)

		if req.Email != nil {
			chauffeur.Email = strings.TrimSpace(*req.Email)
		}
		if req.DisplayName != nil {
			chauffeur.DisplayName = strings.TrimSpace(*req.DisplayName)
		}
		if req.IsActive != nil {
			chauffeur.IsActive = *req.IsActive
		}
		if err := s.chauffeurRepo.Update(txCtx, chauffeur); err != nil {
			return fmt.Errorf("failed to update driver: %w", err)
		}

		res = toChauffeurResponse(chauffeur)
		return s.audit.write(txCtx, tenantID, actorSub, model.AuditEntityChauffeur, chauffeur.ID.String(), model.AuditActionUpdate, before, res)
	})
	if err != nil {
		return ChauffeurResponse{}, err
	}
	return res, nil
}

// Delete removes a driver who has no recorded tours. Drivers with history are
// deactivated through Update instead.
func (s *chauffeurService) Delete(ctx context.Context, tenantID uuid.UUID, actorSub, rawID string) error {
	id, err := parseID(rawID, "Driver not found")
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		chauffeur, err := s.chauffeurRepo.FindByID(txCtx, tenantID, id)
		if err != nil {
			return lookupErr(err, "Driver not found", "driver")
		}
		tours, err := s.tourRepo.CountByDriver(txCtx, tenantID, chauffeur.ID)
		if err != nil {
			return fmt.Errorf("failed to count driver tours: %w", err)
		}
		if tours > 0 {
			return apperror.Conflict("Driver has recorded tours")
		}
		if err := s.chauffeurRepo.Delete(txCtx, tenantID, chauffeur.ID); err != nil {
			return fmt.Errorf("failed to delete driver: %w", err)
		}
		return s.audit.write(txCtx, tenantID, actorSub, model.AuditEntityChauffeur, chauffeur.ID.String(), model.AuditActionDelete, toChauffeurResponse(chauffeur), nil)
	})
}

func (s *chauffeurService) activationLink() string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return s.activationBase + "?token=" + url.QueryEscape(token)
}

func toChauffeurResponse(c *model.Chauffeur) ChauffeurResponse {
	res := ChauffeurResponse{
		ID:          c.ID.String(),
		Email:       c.Email,
		DisplayName: c.DisplayName,
		IsActive:    c.IsActive,
		LastSeenAt:  formatTimePtr(c.LastSeenAt),
	}
	if c.UserID != nil {
		id := c.UserID.String()
		res.UserID = &id
	}
	return res
}
