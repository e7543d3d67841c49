package main

import (
	"context"
	"fmt"
	"log"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"provdesk/internal/backend"
	"provdesk/internal/caching"
	"provdesk/internal/config"
	"provdesk/internal/handlers"
	"provdesk/internal/jobs/background"
	"provdesk/internal/middleware"
	"provdesk/internal/services"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: JWT_SECRET not set, using generated secret")
	}
	if cfg.AdminPassword == "" {
		log.Printf("WARNING: ADMIN_PASSWORD not set, admin login is disabled")
	}

	// Backend selection: supabase, firebase or the local demo store
	adapter := backend.Select(cfg)

	// Redis cache (rate limits, refresh tokens, stats)
	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	// Audit archive storage
	archiveSvc, err := services.NewMinioArchive(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		log.Printf("WARN: minio unavailable, activity archive disabled: %v", err)
		archiveSvc = nil
	} else if err := archiveSvc.EnsureBucketExists(context.Background(), cfg.MinioBucket); err != nil {
		log.Printf("WARN: could not ensure archive bucket: %v", err)
	}

	// Google ID-token verification; the local demo store accepts unverified
	// assertions so the flow works without outbound network access
	var verifier services.GoogleVerifier
	if adapter.Name() == config.BackendLocal {
		verifier = services.NewInsecureGoogleVerifier()
	} else {
		verifier, err = services.NewGoogleVerifier(context.Background(), cfg.GoogleJWKSURL)
		if err != nil {
			log.Fatalf("Failed to load Google JWKS: %v", err)
		}
	}

	// Services
	authSvc := services.NewAuthService(cacheSvc, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.AdminSessionTTL)
	activitySvc := services.NewActivityService(adapter.Store().Activities, archiveSvc, cfg.MinioBucket)
	defer activitySvc.Close()
	notifySvc := services.NewNotificationService(adapter.Store().Notifications)
	approvalSvc := services.NewApprovalService(adapter, activitySvc, notifySvc, cacheSvc)
	loginSvc := services.NewLoginService(adapter, authSvc, approvalSvc, activitySvc, verifier, cfg.AdminPassword)

	// Handlers
	authHandlers := handlers.NewAuthHandlers(loginSvc, approvalSvc, cacheSvc)
	usersHandlers := handlers.NewUsersHandlers(approvalSvc, activitySvc)
	notificationHandlers := handlers.NewNotificationHandlers(notifySvc)
	healthHandlers := handlers.NewHealthHandlers(cacheSvc, adapter.Name(), nil)

	// Background jobs
	scheduler := background.NewJobScheduler(authSvc, activitySvc, approvalSvc)
	if err := scheduler.Start(); err != nil {
		log.Printf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Echo instance
	e := echo.New()
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.Health)
	e.GET("/health/ready", healthHandlers.Ready)

	// Auth RPC: login, refresh and request_access are anonymous; admin
	// actions inside the dispatch re-check the role claim themselves, so
	// the endpoint carries optional bearer context
	jwtConfig := middleware.JWTConfig(cfg.JWTSecret)
	jwtConfig.ContinueOnIgnoredError = true
	jwtConfig.ErrorHandler = func(c echo.Context, err error) error {
		return nil // anonymous is fine here, admin actions check the role
	}
	auth := e.Group("/auth")
	auth.Use(echojwt.WithConfig(jwtConfig))
	auth.Use(middleware.OptionalClaims(cacheSvc))
	auth.POST("", authHandlers.Dispatch)

	// Admin RPC (JWT required)
	protected := e.Group("")
	protected.Use(echojwt.WithConfig(middleware.JWTConfig(cfg.JWTSecret)))
	protected.Use(middleware.EnrichClaims(cacheSvc))
	protected.POST("/users", usersHandlers.Dispatch, middleware.AdminOnly())
	protected.GET("/notifications", notificationHandlers.List, middleware.AdminOnly())
	protected.POST("/notifications/read", notificationHandlers.MarkAllRead, middleware.AdminOnly())

	log.Printf("provdesk v%s starting on port %d (backend: %s)", version, cfg.Port, adapter.Name())
	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", cfg.Port)))
}
