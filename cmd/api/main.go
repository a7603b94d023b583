package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"delivops/internal/app"
	"delivops/internal/auth"
	"delivops/internal/config"
	"delivops/internal/database"
	"delivops/internal/logger"
	"delivops/internal/metrics"
	"delivops/internal/notify"
	"delivops/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @title           Delivops API
// @version         1.0
// @description     Pickup and delivery reconciliation for parcel operators.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zlog, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DSN(), zlog)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	zlog.Info("connected to postgres")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	hub := websocket.NewHub(zlog, cfg.CORSAllowOrigins)
	go hub.Run(ctx)

	router, err := app.NewRouter(app.RouterParams{
		Config:   cfg,
		Logger:   zlog,
		DB:       db,
		Verifier: newVerifier(cfg, zlog),
		Hub:      hub,
		Metrics:  metrics.New(),
		Mailer:   notify.NewLogMailer(zlog),
	})
	if err != nil {
		zlog.Fatal("router setup failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newVerifier prefers the identity provider's JWKS and falls back to a shared secret.
func newVerifier(cfg *config.Config, zlog *zap.Logger) auth.Verifier {
	switch {
	case cfg.AuthJWKSURL != "":
		keys := auth.NewKeyCache(cfg.AuthJWKSURL, cfg.JWKSTTL)
		return auth.NewJWKSVerifier(keys, cfg.AuthAudience, cfg.AuthIssuer, cfg.AuthAlgorithms)
	case cfg.JWTSecret != "":
		return auth.NewHMACVerifier(cfg.JWTSecret)
	default:
		zlog.Warn("no token verifier configured, relying on dev fake auth")
		return nil
	}
}
