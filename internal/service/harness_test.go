package service_test

import (
	"context"
	"sync"
	"testing"

	"delivops/internal/model"
	"delivops/internal/notify"
	"delivops/internal/repository"
	"delivops/internal/service"
	"delivops/internal/tariff"
	"delivops/internal/testutil"
	"delivops/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type published struct {
	tenantID uuid.UUID
	event    string
	data     interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *fakePublisher) Publish(tenantID uuid.UUID, event string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{tenantID: tenantID, event: event, data: data})
}

func (p *fakePublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.event)
	}
	return out
}

type fakeRecorder struct {
	pickups, deliveries int
	adjusted           []string
}

func (r *fakeRecorder) TourPickup(parcels int)             { r.pickups += parcels }
func (r *fakeRecorder) TourDelivery(parcels int)           { r.deliveries += parcels }
func (r *fakeRecorder) DeclarationAdjusted(action string) { r.adjusted = append(r.adjusted, action) }

type fakeMailer struct {
	sent []string
	err  error
}

func (m *fakeMailer) SendActivation(_ context.Context, email, link string) error {
	m.sent = append(m.sent, email+" "+link)
	return m.err
}

var _ notify.Mailer = (*fakeMailer)(nil)

type env struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	fx       *testutil.Fixtures
	tenant   *model.Tenant
	admin    *model.User
	events   *fakePublisher
	recorder *fakeRecorder
	mailer   *fakeMailer

	tours        service.TourService
	declarations service.DeclarationService
	clients      service.ClientService
	chauffeurs   service.ChauffeurService
	audit        service.AuditService
	monitoring   service.MonitoringService
}

func newEnv(t *testing.T) *env {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	tenant := fx.Tenant("acme")

	tenants := repository.NewTenantRepository(db)
	users := repository.NewUserRepository(db)
	chauffeurs := repository.NewChauffeurRepository(db)
	clients := repository.NewClientRepository(db)
	groups := repository.NewTariffGroupRepository(db)
	tariffs := repository.NewTariffRepository(db)
	tours := repository.NewTourRepository(db)
	decls := repository.NewDeclarationRepository(db)
	audits := repository.NewAuditRepository(db)
	tx := repository.NewTransactionManager(db)
	resolver := tariff.NewResolver(tariffs)

	e := &env{
		t:        t,
		ctx:      context.Background(),
		db:       db,
		fx:       fx,
		tenant:   tenant,
		admin:    fx.User(tenant.ID, "admin|1", model.RoleAdmin),
		events:   &fakePublisher{},
		recorder: &fakeRecorder{},
		mailer:   &fakeMailer{},
	}

	e.tours = service.NewTourService(service.TourDeps{
		Tours: tours, Clients: clients, Groups: groups, Chauffeurs: chauffeurs, Users: users,
		TxManager: tx, Resolver: resolver, Events: e.events, Recorder: e.recorder,
	})
	e.declarations = service.NewDeclarationService(service.DeclarationDeps{
		Declarations: decls, Tours: tours, Chauffeurs: chauffeurs, Clients: clients, Groups: groups,
		Users: users, Audit: audits, TxManager: tx, Resolver: resolver, Events: e.events, Recorder: e.recorder,
	})
	e.clients = service.NewClientService(service.ClientDeps{
		Tenants: tenants, Clients: clients, Groups: groups, Tariffs: tariffs, Users: users,
		Audit: audits, TxManager: tx, Resolver: resolver,
	})
	e.chauffeurs = service.NewChauffeurService(service.ChauffeurDeps{
		Tenants: tenants, Chauffeurs: chauffeurs, Tours: tours, Users: users, Audit: audits,
		TxManager: tx, Mailer: e.mailer, ActivationBase: "https://app.example.com/activate",
	})
	e.audit = service.NewAuditService(audits, users)
	e.monitoring = service.NewMonitoringService(users, chauffeurs, audits)
	return e
}

func qty(n int) *int { return &n }

func assertKind(t *testing.T, err error, kind apperror.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected app error, got %v", err)
	assert.Equal(t, kind, appErr.Kind)
	if msg != "" {
		assert.Equal(t, msg, appErr.Message)
	}
}
