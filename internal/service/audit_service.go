package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"delivops/internal/repository"

	"github.com/google/uuid"
)

type AuditLogResponse struct {
	ID        string  `json:"id"`
	UserID    *string `json:"userId"`
	UserEmail string  `json:"userEmail"`
	UserRole  string  `json:"userRole"`
	Entity    string  `json:"entity"`
	EntityID  string  `json:"entityId"`
	Action    string  `json:"action"`
	Before    string  `json:"before,omitempty"`
	After     string  `json:"after,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]AuditLogResponse, int64, error)
	RecordRequest(ctx context.Context, tenantID uuid.UUID, sub, path, method string) error
}

type auditService struct {
	auditRepo repository.AuditRepository
	trail     auditTrail
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository, userRepo repository.UserRepository) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		trail:     auditTrail{auditRepo: auditRepo, userRepo: userRepo},
	}
}

// GetAuditLogs returns a page of the tenant's audit trail, newest first.
func (s *auditService) GetAuditLogs(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.auditRepo.List(ctx, tenantID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		entry := AuditLogResponse{
			ID:        l.ID.String(),
			UserEmail: "System",
			Entity:    l.Entity,
			EntityID:  l.EntityID,
			Action:    l.Action,
			Before:    l.BeforeJSON,
			After:     l.AfterJSON,
			CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
		}
		if l.UserID != nil {
			id := l.UserID.String()
			entry.UserID = &id
		}
		if l.User != nil {
			entry.UserEmail = l.User.Email
			entry.UserRole = l.User.Role
		}
		res = append(res, entry)
	}

	return res, total, nil
}

// RecordRequest logs a tenant request by path and method.
func (s *auditService) RecordRequest(ctx context.Context, tenantID uuid.UUID, sub, path, method string) error {
	return s.trail.write(ctx, tenantID, sub, path, "", strings.ToLower(method), nil, nil)
}

