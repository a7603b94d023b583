package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"delivops/internal/model"
	"delivops/internal/repository"
	"delivops/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EventPublisher fans tenant scoped live events out to subscribers.
type EventPublisher interface {
	Publish(tenantID uuid.UUID, event string, data interface{})
}

// Recorder receives domain counters.
type Recorder interface {
	TourPickup(parcels int)
	TourDelivery(parcels int)
	DeclarationAdjusted(action string)
}

type nopPublisher struct{}

func (nopPublisher) Publish(uuid.UUID, string, interface{}) {}

type nopRecorder struct{}

func (nopRecorder) TourPickup(int)              {}
func (nopRecorder) TourDelivery(int)            {}
func (nopRecorder) DeclarationAdjusted(string) {}

// placeholderLabel stands in for a missing parent row.
const placeholderLabel = "—"

// Live event names
const (
	EventTourPickup          = "tour.pickup"
	EventTourDelivery        = "tour.delivery"
	EventDeclarationAdjusted = "declaration.adjusted"
)

// lookupErr maps a missing row to NotFound(msg) and wraps anything else.
func lookupErr(err error, msg, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(msg)
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}

// parseID parses a path or body identifier; a malformed id cannot match any row.
func parseID(raw, notFoundMsg string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.NotFound(notFoundMsg)
	}
	return id, nil
}

func parseDate(raw, field string) (time.Time, error) {
	d, err := model.ParseDate(raw)
	if err != nil {
		return time.Time{}, apperror.BadRequest(fmt.Sprintf("invalid %s date format (expected YYYY-MM-DD)", field))
	}
	return d, nil
}

func money(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

func nullMoney(d decimal.NullDecimal) string {
	if !d.Valid {
		return money(decimal.Zero)
	}
	return money(d.Decimal)
}

func formatDate(t time.Time) string {
	return t.Format(model.DateLayout)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// auditTrail writes change entries inside the caller's transaction.
type auditTrail struct {
	auditRepo repository.AuditRepository
	userRepo  repository.UserRepository
}

// actor resolves the audit user for an identity subject, nil when unknown.
func (a auditTrail) actor(ctx context.Context, tenantID uuid.UUID, sub string) *uuid.UUID {
	if sub == "" {
		return nil
	}
	user, err := a.userRepo.FindBySub(ctx, tenantID, sub)
	if err != nil {
		return nil
	}
	return &user.ID
}

func (a auditTrail) write(ctx context.Context, tenantID uuid.UUID, sub, entity, entityID, action string, before, after interface{}) error {
	entry := &model.AuditLog{
		TenantID:   tenantID,
		UserID:     a.actor(ctx, tenantID, sub),
		Entity:     entity,
		EntityID:   entityID,
		Action:     action,
		BeforeJSON: marshalAudit(before),
		AfterJSON:  marshalAudit(after),
	}
	if err := a.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func marshalAudit(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
