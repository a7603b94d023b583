// Package app assembles repositories, services and handlers into the HTTP router.
package app

import (
	_ "delivops/api/swagger" // swagger docs
	"delivops/internal/auth"
	"delivops/internal/config"
	"delivops/internal/handler"
	"delivops/internal/logger"
	"delivops/internal/metrics"
	"delivops/internal/middleware"
	"delivops/internal/notify"
	"delivops/internal/repository"
	"delivops/internal/service"
	"delivops/internal/tariff"
	"delivops/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *gorm.DB
	Verifier auth.Verifier
	Hub      *websocket.Hub
	Metrics  *metrics.Metrics
	Mailer   notify.Mailer
}

// NewRouter wires every layer and returns the gin engine.
func NewRouter(p RouterParams) (*gin.Engine, error) {
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}
	cfg, log := p.Config, p.Logger
	mailer := p.Mailer
	if mailer == nil {
		mailer = notify.NewLogMailer(log)
	}

	// Repositories
	tenantRepo := repository.NewTenantRepository(p.DB)
	userRepo := repository.NewUserRepository(p.DB)
	chauffeurRepo := repository.NewChauffeurRepository(p.DB)
	clientRepo := repository.NewClientRepository(p.DB)
	groupRepo := repository.NewTariffGroupRepository(p.DB)
	tariffRepo := repository.NewTariffRepository(p.DB)
	tourRepo := repository.NewTourRepository(p.DB)
	declarationRepo := repository.NewDeclarationRepository(p.DB)
	auditRepo := repository.NewAuditRepository(p.DB)
	txManager := repository.NewTransactionManager(p.DB)
	resolver := tariff.NewResolver(tariffRepo)

	var events service.EventPublisher
	if p.Hub != nil {
		events = p.Hub
	}
	var recorder service.Recorder
	if p.Metrics != nil {
		recorder = p.Metrics
	}

	// Services
	tourService := service.NewTourService(service.TourDeps{
		Tours: tourRepo, Clients: clientRepo, Groups: groupRepo, Chauffeurs: chauffeurRepo, Users: userRepo,
		TxManager: txManager, Resolver: resolver, Events: events, Recorder: recorder, Logger: log,
	})
	declarationService := service.NewDeclarationService(service.DeclarationDeps{
		Declarations: declarationRepo, Tours: tourRepo, Chauffeurs: chauffeurRepo, Clients: clientRepo,
		Groups: groupRepo, Users: userRepo, Audit: auditRepo, TxManager: txManager, Resolver: resolver,
		Events: events, Recorder: recorder, Logger: log,
	})
	clientService := service.NewClientService(service.ClientDeps{
		Tenants: tenantRepo, Clients: clientRepo, Groups: groupRepo, Tariffs: tariffRepo, Users: userRepo,
		Audit: auditRepo, TxManager: txManager, Resolver: resolver,
	})
	chauffeurService := service.NewChauffeurService(service.ChauffeurDeps{
		Tenants: tenantRepo, Chauffeurs: chauffeurRepo, Tours: tourRepo, Users: userRepo, Audit: auditRepo,
		TxManager: txManager, Mailer: mailer, ActivationBase: cfg.ActivationURL, Logger: log,
	})
	auditService := service.NewAuditService(auditRepo, userRepo)
	monitoringService := service.NewMonitoringService(userRepo, chauffeurRepo, auditRepo)

	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log, cfg.TenantHeader))
	if p.Metrics != nil {
		router.Use(p.Metrics.Middleware())
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept",
		cfg.TenantHeader, middleware.DevRoleHeader, middleware.DevSubHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	handler.NewHealthHandler(p.DB).RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(p.Metrics.Handler()))
	if cfg.SwaggerEnabled {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if p.Hub != nil {
		wsAuth := websocket.Authenticator{Verifier: p.Verifier, DevFakeAuth: cfg.DevFakeAuth}
		router.GET("/ws", func(c *gin.Context) {
			websocket.ServeWs(p.Hub, wsAuth, c)
		})
	}

	api := router.Group("/api")
	api.Use(
		middleware.AuditTrail(auditService, cfg.TenantHeader, log),
		middleware.Tenant(cfg.TenantHeader),
		middleware.Authenticate(p.Verifier, cfg.DevFakeAuth, log),
	)
	handler.NewAuthHandler().RegisterRoutes(api)
	handler.NewTourHandler(tourService, log).RegisterRoutes(api)
	handler.NewReportHandler(declarationService, log).RegisterRoutes(api)
	handler.NewClientHandler(clientService, log).RegisterRoutes(api)
	handler.NewChauffeurHandler(chauffeurService, log).RegisterRoutes(api)
	handler.NewAuditHandler(auditService, log).RegisterRoutes(api)
	handler.NewMonitoringHandler(monitoringService, log).RegisterRoutes(api)

	return router, nil
}
