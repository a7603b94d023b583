package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"delivops/internal/model"
	"delivops/internal/repository"
	"delivops/internal/tariff"
	"delivops/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateClientRequest struct {
	Name string `json:"name" binding:"required"`
}

type UpdateClientRequest struct {
	Name *string `json:"name" binding:"omitempty,min=1"`
}

type CreateCategoryRequest struct {
	Name           string           `json:"name" binding:"required"`
	Unit           string           `json:"unit"`
	UnitPriceExVat *decimal.Decimal `json:"unitPriceExVat"`
	MarginExVat    *decimal.Decimal `json:"marginExVat"`
}

// UpdateCategoryRequest edits a category. Without EffectiveFrom the tariff in
// force today is edited in place; with it a new tariff version is inserted.
type UpdateCategoryRequest struct {
	Name           *string          `json:"name" binding:"omitempty,min=1"`
	UnitPriceExVat *decimal.Decimal `json:"unitPriceExVat"`
	MarginExVat    *decimal.Decimal `json:"marginExVat"`
	EffectiveFrom  *string          `json:"effectiveFrom" binding:"omitempty,isodate"`
	EffectiveTo    *string          `json:"effectiveTo" binding:"omitempty,isodate"`
}

type CategoryResponse struct {
	ID             string  `json:"id"`
	ClientID       *string `json:"clientId"`
	Name           string  `json:"name"`
	Unit           string  `json:"unit"`
	Order          int     `json:"order"`
	IsActive       bool    `json:"isActive"`
	UnitPriceExVat string  `json:"unitPriceExVat"`
	MarginExVat    string  `json:"marginExVat"`
	TariffID       *string `json:"tariffId"`
}

type ClientResponse struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	IsActive   bool               `json:"isActive"`
	Categories []CategoryResponse `json:"categories"`
}

type TariffResponse struct {
	ID            string  `json:"id"`
	PriceExVat    string  `json:"priceExVat"`
	MarginExVat   string  `json:"marginExVat"`
	VatRate       string  `json:"vatRate"`
	EffectiveFrom string  `json:"effectiveFrom"`
	EffectiveTo   *string `json:"effectiveTo"`
	CreatedAt     string  `json:"createdAt"`
}

type ClientHistoryResponse struct {
	ClientID            string  `json:"clientId"`
	ClientName          string  `json:"clientName"`
	IsActive            bool    `json:"isActive"`
	LastDeclarationDate *string `json:"lastDeclarationDate"`
	DeclarationCount    int64   `json:"declarationCount"`
}

// --- Interface ---

type ClientService interface {
	ListClients(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]ClientResponse, error)
	CreateClient(ctx context.Context, tenantID uuid.UUID, actorSub string, req CreateClientRequest) (ClientResponse, error)
	UpdateClient(ctx context.Context, tenantID uuid.UUID, actorSub, clientID string, req UpdateClientRequest) (ClientResponse, error)
	DeleteClient(ctx context.Context, tenantID uuid.UUID, actorSub, clientID string) error
	ReactivateClient(ctx context.Context, tenantID uuid.UUID, actorSub, clientID string) (ClientResponse, error)
	ClientHistory(ctx context.Context, tenantID uuid.UUID) ([]ClientHistoryResponse, error)

	CreateCategory(ctx context.Context, tenantID uuid.UUID, actorSub, clientID string, req CreateCategoryRequest) (CategoryResponse, error)
	UpdateCategory(ctx context.Context, tenantID uuid.UUID, actorSub, clientID, categoryID string, req UpdateCategoryRequest) (CategoryResponse, error)
	DeleteCategory(ctx context.Context, tenantID uuid.UUID, actorSub, clientID, categoryID string) error
	ReactivateCategory(ctx context.Context, tenantID uuid.UUID, actorSub, clientID, categoryID string) (CategoryResponse, error)
	ListTariffs(ctx context.Context, tenantID uuid.UUID, clientID, categoryID string) ([]TariffResponse, error)
}

type clientService struct {
	tenantRepo repository.TenantRepository
	clientRepo repository.ClientRepository
	groupRepo  repository.TariffGroupRepository
	tariffRepo repository.TariffRepository
	txManager  repository.TransactionManager
	resolver   *tariff.Resolver
	audit      auditTrail
	now        func() time.Time
}

type ClientDeps struct {
	Tenants   repository.TenantRepository
	Clients   repository.ClientRepository
	Groups    repository.TariffGroupRepository
	Tariffs   repository.TariffRepository
	Users     repository.UserRepository
	Audit     repository.AuditRepository
	TxManager repository.TransactionManager
	Resolver  *tariff.Resolver
}

func NewClientService(d ClientDeps) ClientService {
	return &clientService{
		tenantRepo: d.Tenants,
		clientRepo: d.Clients,
		groupRepo:  d.Groups,
		tariffRepo: d.Tariffs,
		txManager:  d.TxManager,
		resolver:   d.Resolver,
		audit:      auditTrail{auditRepo: d.Audit, userRepo: d.Users},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// --- Clients ---

func (s *clientService) ListClients(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]ClientResponse, error) {
	clients, err := s.clientRepo.List(ctx, tenantID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clients: %w", err)
	}

	res := make([]ClientResponse, 0, len(clients))
	for i := range clients {
		c, err := s.clientResponse(ctx, &clients[i], includeInactive)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

func (s *clientService) CreateClient(ctx context.Context, tenantID uuid.UUID, actorSub string, req CreateClientRequest) (ClientResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ClientResponse{}, apperror.BadRequest("Client name is required")
	}

	client := model.Client{TenantID: tenantID, Name: name, IsActive: true}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.tenantRepo.FindByID(txCtx, tenantID); err != nil {
			return lookupErr(err, "Tenant not found", "tenant")
		}
		if err := s.clientRepo.Create(txCtx, &client); err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}
		return s.audit.write(txCtx, tenantID, actorSub, model.AuditEntityClient, client.ID.String(), model.AuditActionCreate, nil, client)
	})
	if err != nil {
		return ClientResponse{}, err
	}
	return ClientResponse{ID: client.ID.String(), Name: client.Name, IsActive: true, Categories: []CategoryResponse{}}, nil
}

func (s *clientService) UpdateClient(ctx context.Context, tenantID uuid.UUID, actorSub, rawClientID string, req UpdateClientRequest) (ClientResponse, error) {
	var client *model.Client
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		client, err = s.findClient(txCtx, tenantID, rawClientID)
		if err != nil {
			return err
		}
		before := *client
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperror.BadRequest("Client name is required")
			}
			client.Name = name
		}
		if err := s.clientRepo.Update(txCtx, client); err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}
		return s.audit.write(txCtx, tenantID, actorSub, model.AuditEntityClient, client.ID.String(), model.AuditActionUpdate, before, *client)
	})
	if err != nil {
		return ClientResponse{}, err
	}
	return s.clientResponse(ctx, client, false)
}

// DeleteClient deactivates the client and all of its categories.
func (s *clientService) DeleteClient(ctx context.Context, tenantID uuid.UUID, actorSub, rawClientID string) error {
	_, err := s.setClientActive(ctx, tenantID, actorSub, rawClientID, false)
	return err
}

func (s *clientService) ReactivateClient(ctx context.Context, tenantID uuid.UUID, actorSub, rawClientID string) (ClientResponse, error) {
	client, err := s.setClientActive(ctx, tenantID, actorSub, rawClientID, true)
	if err != nil {
		return ClientResponse{}, err
	}
	return s.clientResponse(ctx, client, false)
}

func (s *clientService) setClientActive(ctx context.Context, tenantID uuid.UUID, actorSub, rawClientID string, active bool) (*model.Client, error) {
	var client *model.Client
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		client, err = s.findClient(txCtx, tenantID, rawClientID)
		if err != nil {
			return err
		}
		client.IsActive = active
		if err := s.clientRepo.Update(txCtx, client); err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}
		if err := s.groupRepo.SetActiveByClient(txCtx, tenantID, client.ID, active); err != nil {
			return fmt.Errorf("failed to update client categories: %w", err)
		}
		action := model.AuditActionDeactivate
		if active {
			action = model.AuditActionReactivate
		}
		return s.audit.write(txCtx, tenantID, actorSub, model.AuditEntityClient, client.ID.String(), action, nil, map[string]bool{"isActive": active})
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (s *clientService) ClientHistory(ctx context.Context, tenantID uuid.UUID) ([]ClientHistoryResponse, error) {
	clients, err := s.clientRepo.List(ctx, tenantID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clients: %w", err)
	}
	counts, err := s.clientRepo.CountTourLines(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count declarations: %w", err)
	}

	type agg struct {
		last  *time.Time
		count int64
	}
	byClient := make(map[uuid.UUID]*agg, len(clients))
	for _, c := range counts {
		a, ok := byClient[c.ClientID]
		if !ok {
			a = &agg{}
			byClient[c.ClientID] = a
		}
		a.count += c.ItemCount
		if a.last == nil || c.Date.After(*a.last) {
			d := c.Date
			a.last = &d
		}
	}

	res := make([]ClientHistoryResponse, 0, len(clients))
	for _, c := range clients {
		h := ClientHistoryResponse{ClientID: c.ID.String(), ClientName: c.Name, IsActive: c.IsActive}
		if a, ok := byClient[c.ID]; ok {
			h.LastDeclarationDate = formatDatePtr(a.last)
			h.DeclarationCount = a.count
		}
		res = append(res, h)
	}

	// Most recently active first, never-used clients last.
	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i].LastDeclarationDate, res[j].LastDeclarationDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
	return res, nil
}

// --- Categories ---

func (s *clientService) CreateCategory(ctx context.Context, tenantID uuid.UUID, actorSub, rawClientID string, req CreateCategoryRequest) (CategoryResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return CategoryResponse{}, apperror.BadRequest("Category name is required")
	}
	if err := validateAmounts(req.UnitPriceExVat, req.MarginExVat); err != nil {
		return CategoryResponse{}, err
	}

	var res CategoryResponse
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		client, err := s.findClient(txCtx, tenantID, rawClientID)
		if err != nil {
			return err
		}
		order, err := s.groupRepo.NextOrder(txCtx, tenantID, client.ID)
		if err != nil {
			return fmt.Errorf("failed to compute category order: %w", err)
		}

		unit := strings.TrimSpace(req.Unit)
		if unit == "" {
			unit = "colis"
		}
		clientID := client.ID
		group := model.TariffGroup{
			TenantID:    tenantID,
			ClientID:    &clientID,
			Code:        categoryCode(name),
			DisplayName: name,
			Unit:        unit,
			Order:       order,
			IsActive:    true,
		}
		if err := s.groupRepo.Create(txCtx, &group); err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}

		t := model.Tariff{
			TenantID:      tenantID,
			TariffGroupID: group.ID,
			PriceExVAT:    decimalOr(req.UnitPriceExVat, decimal.Zero),
			MarginExVAT:   decimalOr(req.MarginExVat, decimal.Zero),
			EffectiveFrom: model.TruncateDate(s.now()),
		}
		if err := s.tariffRepo.Create(txCtx, &t); err != nil {
			return fmt.Errorf("failed to create tariff: %w", err)
		}

		res = toCategoryResponse(&group, tariff.Price{TariffID: &t.ID, UnitPrice: t.PriceExVAT, UnitMargin: t.MarginExVAT})
		return s.audit.write(txCtx, tenantID, actorSub, model.AuditEntityCategory, group.ID.String(), model.AuditActionCreate, nil, res)
	})
	if err != nil {
		return CategoryResponse{}, err
	}
	return res, nil
}

func (s *clientService) UpdateCategory(ctx context.Context, tenantID uuid.UUID, actorSub, rawClientID, rawCategoryID string, req UpdateCategoryRequest) (CategoryResponse, error) {
	if err := validateAmounts(req.UnitPriceExVat, req.MarginExVat); err != nil {
		return CategoryResponse{}, err
	}
	if req.EffectiveTo != nil && req.EffectiveFrom == nil {
		return CategoryResponse{}, apperror.BadRequest("effectiveTo requires effectiveFrom")
	}

	var res CategoryResponse
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		group, err := s.findCategory(txCtx, tenantID, rawClientID, rawCategoryID)
		if err != nil {
			return err
		}
		before, err := s.categoryResponse(txCtx, group)
		if err != nil {
			return err
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperror.BadRequest("Category name is required")
			}
			group.DisplayName = name
			if err := s.groupRepo.Update(txCtx, group); err != nil {
				return fmt.Errorf("failed to update category: %w", err)
			}
		}

		if req.EffectiveFrom != nil {
			err = s.insertTariffVersion(txCtx, group, req)
		} else if req.UnitPriceExVat != nil || req.MarginExVat != nil {
			err = s.updateCurrentTariff(txCtx, group, req)
		}
		if err != nil {
			return err
		}

		res, err = s.categoryResponse(txCtx, group)
		if err != nil {
			return err
		}
		return s.audit.write(txCtx, tenantID, actorSub, model.AuditEntityCategory, group.ID.String(), model.AuditActionUpdate, before, res)
	})
	if err != nil {
		return CategoryResponse{}, err
	}
	return res, nil
}

// updateCurrentTariff edits the tariff in force today, creating one from today if none is.
func (s *clientService) updateCurrentTariff(ctx context.Context, group *model.TariffGroup, req UpdateCategoryRequest) error {
	today := model.TruncateDate(s.now())
	current, err := s.tariffRepo.FindActive(ctx, group.ID, today)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to fetch current tariff: %w", err)
		}
		t := model.Tariff{
			TenantID:      group.TenantID,
			TariffGroupID: group.ID,
			PriceExVAT:    decimalOr(req.UnitPriceExVat, decimal.Zero),
			MarginExVAT:   decimalOr(req.MarginExVat, decimal.Zero),
			EffectiveFrom: today,
		}
		if err := s.tariffRepo.Create(ctx, &t); err != nil {
			return fmt.Errorf("failed to create tariff: %w", err)
		}
		return nil
	}

	current.PriceExVAT = decimalOr(req.UnitPriceExVat, current.PriceExVAT)
	current.MarginExVAT = decimalOr(req.MarginExVat, current.MarginExVAT)
	if err := s.tariffRepo.Update(ctx, current); err != nil {
		return fmt.Errorf("failed to update tariff: %w", err)
	}
	return nil
}

// insertTariffVersion adds a dated version. Missing amounts are carried over
// from the version in force on the new start date.
func (s *clientService) insertTariffVersion(ctx context.Context, group *model.TariffGroup, req UpdateCategoryRequest) error {
	from, err := parseDate(*req.EffectiveFrom, "effectiveFrom")
	if err != nil {
		return err
	}
	var to *time.Time
	if req.EffectiveTo != nil {
		d, err := parseDate(*req.EffectiveTo, "effectiveTo")
		if err != nil {
			return err
		}
		if d.Before(from) {
			return apperror.BadRequest("Invalid date range")
		}
		to = &d
	}

	base, err := s.resolver.Resolve(ctx, group.ID, from)
	if err != nil {
		return err
	}
	t := model.Tariff{
		TenantID:      group.TenantID,
		TariffGroupID: group.ID,
		PriceExVAT:    decimalOr(req.UnitPriceExVat, base.UnitPrice),
		MarginExVAT:   decimalOr(req.MarginExVat, base.UnitMargin),
		EffectiveFrom: from,
		EffectiveTo:   to,
	}
	if err := s.tariffRepo.Create(ctx, &t); err != nil {
		return fmt.Errorf("failed to create tariff version: %w", err)
	}
	return nil
}

func (s *clientService) DeleteCategory(ctx context.Context, tenantID uuid.UUID, actorSub, rawClientID, rawCategoryID string) error {
	_, err := s.setCategoryActive(ctx, tenantID, actorSub, rawClientID, rawCategoryID, false)
	return err
}

func (s *clientService) ReactivateCategory(ctx context.Context, tenantID uuid.UUID, actorSub, rawClientID, rawCategoryID string) (CategoryResponse, error) {
	return s.setCategoryActive(ctx, tenantID, actorSub, rawClientID, rawCategoryID, true)
}

func (s *clientService) setCategoryActive(ctx context.Context, tenantID uuid.UUID, actorSub, rawClientID, rawCategoryID string, active bool) (CategoryResponse, error) {
	var res CategoryResponse
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		group, err := s.findCategory(txCtx, tenantID, rawClientID, rawCategoryID)
		if err != nil {
			return err
		}
		group.IsActive = active
		if err := s.groupRepo.Update(txCtx, group); err != nil {
			return fmt.Errorf("failed to update category: %w", err)
		}
		res, err = s.categoryResponse(txCtx, group)
		if err != nil {
			return err
		}
		action := model.AuditActionDeactivate
		if active {
			action = model.AuditActionReactivate
		}
		return s.audit.write(txCtx, tenantID, actorSub, model.AuditEntityCategory, group.ID.String(), action, nil, map[string]bool{"isActive": active})
	})
	if err != nil {
		return CategoryResponse{}, err
	}
	return res, nil
}

func (s *clientService) ListTariffs(ctx context.Context, tenantID uuid.UUID, rawClientID, rawCategoryID string) ([]TariffResponse, error) {
	group, err := s.findCategory(ctx, tenantID, rawClientID, rawCategoryID)
	if err != nil {
		return nil, err
	}
	tariffs, err := s.tariffRepo.ListByGroup(ctx, tenantID, group.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tariffs: %w", err)
	}

	res := make([]TariffResponse, 0, len(tariffs))
	for _, t := range tariffs {
		res = append(res, TariffResponse{
			ID:            t.ID.String(),
			PriceExVat:    money(t.PriceExVAT),
			MarginExVat:   money(t.MarginExVAT),
			VatRate:       t.VATRate.StringFixed(2),
			EffectiveFrom: formatDate(t.EffectiveFrom),
			EffectiveTo:   formatDatePtr(t.EffectiveTo),
			CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return res, nil
}

// --- Helpers ---

func (s *clientService) findClient(ctx context.Context, tenantID uuid.UUID, rawClientID string) (*model.Client, error) {
	id, err := parseID(rawClientID, "Client not found")
	if err != nil {
		return nil, err
	}
	client, err := s.clientRepo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "Client not found", "client")
	}
	return client, nil
}

// findCategory loads a tariff group and checks it belongs to the client.
func (s *clientService) findCategory(ctx context.Context, tenantID uuid.UUID, rawClientID, rawCategoryID string) (*model.TariffGroup, error) {
	client, err := s.findClient(ctx, tenantID, rawClientID)
	if err != nil {
		return nil, err
	}
	id, err := parseID(rawCategoryID, "Tariff group not found")
	if err != nil {
		return nil, err
	}
	group, err := s.groupRepo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "Tariff group not found", "tariff group")
	}
	if group.ClientID == nil || *group.ClientID != client.ID {
		return nil, apperror.NotFound("Tariff group not found")
	}
	return group, nil
}

func (s *clientService) clientResponse(ctx context.Context, c *model.Client, includeInactive bool) (ClientResponse, error) {
	groups, err := s.groupRepo.ListByClient(ctx, c.TenantID, c.ID, includeInactive)
	if err != nil {
		return ClientResponse{}, fmt.Errorf("failed to fetch categories: %w", err)
	}
	res := ClientResponse{ID: c.ID.String(), Name: c.Name, IsActive: c.IsActive, Categories: make([]CategoryResponse, 0, len(groups))}
	for i := range groups {
		cat, err := s.categoryResponse(ctx, &groups[i])
		if err != nil {
			return ClientResponse{}, err
		}
		res.Categories = append(res.Categories, cat)
	}
	return res, nil
}

func (s *clientService) categoryResponse(ctx context.Context, g *model.TariffGroup) (CategoryResponse, error) {
	price, err := s.resolver.Resolve(ctx, g.ID, s.now())
	if err != nil {
		return CategoryResponse{}, err
	}
	return toCategoryResponse(g, price), nil
}

func toCategoryResponse(g *model.TariffGroup, price tariff.Price) CategoryResponse {
	res := CategoryResponse{
		ID:             g.ID.String(),
		Name:           g.DisplayName,
		Unit:           g.Unit,
		Order:          g.Order,
		IsActive:       g.IsActive,
		UnitPriceExVat: money(price.UnitPrice),
		MarginExVat:    money(price.UnitMargin),
	}
	if g.ClientID != nil {
		id := g.ClientID.String()
		res.ClientID = &id
	}
	if price.TariffID != nil {
		id := price.TariffID.String()
		res.TariffID = &id
	}
	return res
}

func validateAmounts(values ...*decimal.Decimal) error {
	for _, v := range values {
		if v != nil && v.IsNegative() {
			return apperror.BadRequest("Amount cannot be negative")
		}
	}
	return nil
}

func decimalOr(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if v == nil {
		return fallback
	}
	return v.Round(2)
}

// categoryCode derives a stable machine code from a display name.
func categoryCode(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), "_"))
}
