package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"delivops/internal/model"
	"delivops/internal/repository"

	"github.com/google/uuid"
)

const gdprNotice = "Indicators are aggregated and contain no personal data. API paths are pseudonymised when they carry identifiers."

var (
	uuidSegment    = regexp.MustCompile(`/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}(/|$)`)
	numericSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	tokenSegment   = regexp.MustCompile(`/[0-9a-fA-F-]{8,}(/|$)`)
)

type RoleActivity struct {
	Total          int64   `json:"total"`
	Active         int64   `json:"active"`
	Inactive       int64   `json:"inactive"`
	LastActivityAt *string `json:"lastActivityAt"`
}

type DriverActivity struct {
	RoleActivity
	ActiveLast24h int64 `json:"activeLast24h"`
}

type MonitoringEvent struct {
	Timestamp             string `json:"timestamp"`
	ActorRole             string `json:"actorRole"`
	Entity                string `json:"entity"`
	Action                string `json:"action"`
	HasAuthenticatedActor bool   `json:"hasAuthenticatedActor"`
}

type MonitoringOverview struct {
	Admins       RoleActivity      `json:"admins"`
	Chauffeurs   DriverActivity    `json:"chauffeurs"`
	RecentEvents []MonitoringEvent `json:"recentEvents"`
	GDPRNotice   string            `json:"gdprNotice"`
}

type MonitoringService interface {
	Overview(ctx context.Context, tenantID uuid.UUID, eventLimit int) (MonitoringOverview, error)
}

type monitoringService struct {
	userRepo      repository.UserRepository
	chauffeurRepo repository.ChauffeurRepository
	auditRepo     repository.AuditRepository
	now           func() time.Time
}

func NewMonitoringService(userRepo repository.UserRepository, chauffeurRepo repository.ChauffeurRepository, auditRepo repository.AuditRepository) MonitoringService {
	return &monitoringService{
		userRepo:      userRepo,
		chauffeurRepo: chauffeurRepo,
		auditRepo:     auditRepo,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Overview summarises admin and driver activity without exposing identities.
func (s *monitoringService) Overview(ctx context.Context, tenantID uuid.UUID, eventLimit int) (MonitoringOverview, error) {
	if eventLimit <= 0 {
		eventLimit = 10
	}

	admins, err := s.adminActivity(ctx, tenantID)
	if err != nil {
		return MonitoringOverview{}, err
	}
	drivers, err := s.driverActivity(ctx, tenantID)
	if err != nil {
		return MonitoringOverview{}, err
	}

	logs, err := s.auditRepo.Recent(ctx, tenantID, eventLimit)
	if err != nil {
		return MonitoringOverview{}, fmt.Errorf("failed to fetch recent events: %w", err)
	}
	events := make([]MonitoringEvent, 0, len(logs))
	for _, l := range logs {
		ev := MonitoringEvent{
			Timestamp: l.CreatedAt.UTC().Format(time.RFC3339),
			ActorRole: "ANONYMOUS",
			Entity:    PseudonymizePath(l.Entity),
			Action:    l.Action,
		}
		if l.User != nil && l.User.Role != "" {
			ev.ActorRole = l.User.Role
			ev.HasAuthenticatedActor = true
		}
		events = append(events, ev)
	}

	return MonitoringOverview{
		Admins:       admins,
		Chauffeurs:   drivers,
		RecentEvents: events,
		GDPRNotice:   gdprNotice,
	}, nil
}

func (s *monitoringService) adminActivity(ctx context.Context, tenantID uuid.UUID) (RoleActivity, error) {
	total, err := s.userRepo.CountByRole(ctx, tenantID, model.RoleAdmin, false)
	if err != nil {
		return RoleActivity{}, fmt.Errorf("failed to count admins: %w", err)
	}
	active, err := s.userRepo.CountByRole(ctx, tenantID, model.RoleAdmin, true)
	if err != nil {
		return RoleActivity{}, fmt.Errorf("failed to count active admins: %w", err)
	}
	last, err := s.auditRepo.LastByRole(ctx, tenantID, model.RoleAdmin)
	if err != nil {
		return RoleActivity{}, fmt.Errorf("failed to fetch admin activity: %w", err)
	}

	res := RoleActivity{Total: total, Active: active, Inactive: max(total-active, 0)}
	if last != nil {
		res.LastActivityAt = formatTimePtr(&last.CreatedAt)
	}
	return res, nil
}

func (s *monitoringService) driverActivity(ctx context.Context, tenantID uuid.UUID) (DriverActivity, error) {
	total, err := s.chauffeurRepo.Count(ctx, tenantID, false)
	if err != nil {
		return DriverActivity{}, fmt.Errorf("failed to count drivers: %w", err)
	}
	active, err := s.chauffeurRepo.Count(ctx, tenantID, true)
	if err != nil {
		return DriverActivity{}, fmt.Errorf("failed to count active drivers: %w", err)
	}
	lastSeen, err := s.chauffeurRepo.LastSeen(ctx, tenantID)
	if err != nil {
		return DriverActivity{}, fmt.Errorf("failed to fetch driver activity: %w", err)
	}
	recent, err := s.chauffeurRepo.CountSeenSince(ctx, tenantID, s.now().Add(-24*time.Hour))
	if err != nil {
		return DriverActivity{}, fmt.Errorf("failed to count recent drivers: %w", err)
	}

	return DriverActivity{
		RoleActivity: RoleActivity{
			Total:          total,
			Active:         active,
			Inactive:       max(total-active, 0),
			LastActivityAt: formatTimePtr(lastSeen),
		},
		ActiveLast24h: recent,
	}, nil
}

// PseudonymizePath replaces identifier segments of a request path with placeholders.
func PseudonymizePath(path string) string {
	if path == "" {
		return "/"
	}
	path = replaceSegments(uuidSegment, path, "/:id")
	path = replaceSegments(numericSegment, path, "/:id")
	return replaceSegments(tokenSegment, path, "/:token")
}

// replaceSegments loops because adjacent matches share their separating slash.
func replaceSegments(re *regexp.Regexp, path, placeholder string) string {
	for {
		next := re.ReplaceAllString(path, placeholder+"$1")
		if next == path {
			return next
		}
		path = next
	}
}
