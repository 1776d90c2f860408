package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/balkarbucket/backend/internal/config"
	"github.com/balkarbucket/backend/internal/handler"
	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/internal/service"
	"github.com/balkarbucket/backend/pkg/database"
	"github.com/balkarbucket/backend/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const logRetention = 90 * 24 * time.Hour

func main() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}
	logger.Init(logger.Config{
		Level:  logLevel,
		Format: logFormat,
		Output: os.Stdout,
	})

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Configuration error")
	}

	logger.Info().
		Str("bind_address", cfg.Server.BindAddress).
		Str("port", cfg.Server.Port).
		Str("log_level", logLevel).
		Msg("Starting bucketd server")

	db, err := database.Initialize(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	if err := database.InitSchema(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize schema")
	}
	logger.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	// Repositories
	apiKeyRepo := repository.NewAPIKeyRepository(db)
	bucketRepo := repository.NewBucketRepository(db)
	fileRepo := repository.NewFileRepository(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	logRepo := repository.NewLogRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// Services
	accessSvc := service.NewAccessService(apiKeyRepo)
	authSvc := service.NewAuthService(userRepo, cfg)
	apiKeySvc := service.NewAPIKeyService(apiKeyRepo)
	bucketSvc := service.NewBucketService(bucketRepo)
	fileSvc := service.NewFileService(fileRepo, bucketRepo, apiKeyRepo, cfg.Storage.Path, cfg.Storage.MaxUploadSize)
	userSvc := service.NewUserService(userRepo, roleRepo)
	roleSvc := service.NewRoleService(roleRepo)
	permissionSvc := service.NewPermissionService(permissionRepo)
	logSvc := service.NewLogService(logRepo)
	settingsSvc := service.NewSettingsService(settingsRepo)
	webhookSvc := service.NewWebhookService(settingsRepo)
	statsSvc := service.NewStatsService(statsRepo, fileRepo, logRepo)

	// A fresh deployment gets one full-access key so the API is reachable.
	if err := apiKeySvc.EnsureBootstrapKey(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ensure bootstrap api key")
	}

	// Handlers
	apiKeyHandler := handler.NewAPIKeyHandler(apiKeySvc, logSvc)
	bucketHandler := handler.NewBucketHandler(bucketSvc, logSvc, webhookSvc)
	fileHandler := handler.NewFileHandler(fileSvc, logSvc, webhookSvc)
	authHandler := handler.NewAuthHandler(authSvc, logSvc)
	userHandler := handler.NewUserHandler(userSvc)
	roleHandler := handler.NewRoleHandler(roleSvc, permissionSvc)
	logHandler := handler.NewLogHandler(logSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)
	statsHandler := handler.NewStatsHandler(statsSvc)

	app := fiber.New(fiber.Config{
		BodyLimit:               int(cfg.Storage.MaxUploadSize) + 1024*1024,
		ReadTimeout:             10 * time.Second,
		WriteTimeout:            30 * time.Second,
		IdleTimeout:             60 * time.Second,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          cfg.Server.TrustedProxies,
		EnableIPValidation:      true,
	})

	app.Use(recover.New())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelDefault,
	}))
	app.Use(handler.SecurityHeadersMiddleware())
	app.Use(handler.RequestIDMiddleware())
	app.Use(handler.MetricsMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-API-Key",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
		MaxAge:           3600,
	}))
	app.Use(logger.Middleware())

	api := app.Group("/api")

	rateLimiter := handler.NewRateLimiter(db)
	keyAuth := handler.APIKeyAuthMiddleware(accessSvc)
	userAuth := handler.AuthMiddleware(authSvc)
	requires := func(permission string) fiber.Handler {
		return handler.RequirePermission(accessSvc, permission)
	}

	// User session routes
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", userAuth, authHandler.Me)
	auth.Post("/refresh", userAuth, authHandler.Refresh)
	auth.Post("/logout", handler.OptionalAuthMiddleware(authSvc), authHandler.Logout)

	// Bucket routes (API key + permission)
	buckets := api.Group("/buckets", keyAuth, rateLimiter.Middleware())
	buckets.Post("/", requires("buckets.create"), bucketHandler.Create)
	buckets.Get("/", requires("buckets.read"), bucketHandler.List)
	buckets.Get("/:id", requires("buckets.read"), bucketHandler.Get)
	buckets.Put("/:id", requires("buckets.update"), bucketHandler.Update)
	buckets.Delete("/:id", requires("buckets.delete"), bucketHandler.Delete)

	// File routes (API key + permission)
	files := api.Group("/files", keyAuth, rateLimiter.Middleware())
	files.Post("/upload", requires("files.upload"), fileHandler.Upload)
	files.Get("/", requires("files.read"), fileHandler.List)
	files.Get("/:id", requires("files.read"), fileHandler.Get)
	files.Get("/:id/download", requires("files.download"), fileHandler.Download)
	files.Post("/:id/restore", requires("files.delete"), fileHandler.Restore)
	files.Delete("/:id/purge", requires("files.delete"), fileHandler.Purge)
	files.Delete("/:id", requires("files.delete"), fileHandler.Delete)

	// API key management (API key + permission)
	keys := api.Group("/api-keys", keyAuth, rateLimiter.Middleware())
	keys.Post("/", requires("api-keys.create"), apiKeyHandler.Create)
	keys.Get("/", requires("api-keys.read"), apiKeyHandler.List)
	keys.Get("/:id", requires("api-keys.read"), apiKeyHandler.Get)
	keys.Put("/:id", requires("api-keys.update"), apiKeyHandler.Update)
	keys.Post("/:id/revoke", requires("api-keys.update"), apiKeyHandler.Revoke)
	keys.Delete("/:id", requires("api-keys.delete"), apiKeyHandler.Delete)

	// Activity logs and dashboard (API key + permission)
	logs := api.Group("/logs", keyAuth, rateLimiter.Middleware(), requires("logs.read"))
	logs.Get("/", logHandler.List)
	logs.Get("/uploads", logHandler.Uploads)
	logs.Get("/access", logHandler.Access)
	api.Get("/stats/dashboard", keyAuth, rateLimiter.Middleware(), requires("stats.read"), statsHandler.Dashboard)

	// User, role, permission and settings administration (session auth)
	users := api.Group("/users", userAuth)
	users.Post("/", requires("users.create"), userHandler.Create)
	users.Get("/", requires("users.read"), userHandler.List)
	users.Get("/:id", requires("users.read"), userHandler.Get)
	users.Put("/:id", requires("users.update"), userHandler.Update)
	users.Delete("/:id", requires("users.delete"), userHandler.Delete)

	roles := api.Group("/roles", userAuth)
	roles.Post("/", requires("users.create"), roleHandler.Create)
	roles.Get("/", requires("users.read"), roleHandler.List)
	roles.Get("/:id", requires("users.read"), roleHandler.Get)
	roles.Put("/:id", requires("users.update"), roleHandler.Update)
	roles.Delete("/:id", requires("users.delete"), roleHandler.Delete)

	api.Get("/permissions", userAuth, roleHandler.ListPermissions)

	settings := api.Group("/settings", userAuth, requires("settings.update"))
	settings.Get("/", settingsHandler.List)
	settings.Put("/", settingsHandler.Update)
	settings.Get("/:key", settingsHandler.Get)
	settings.Put("/:key", settingsHandler.Set)

	// Health and metrics
	healthHandler := handler.NewHealthHandler(db, cfg.Storage.Path)
	app.Get("/health", healthHandler.Liveness)
	app.Get("/health/ready", healthHandler.Readiness)

	metricsHandler := handler.NewMetricsHandler()
	if cfg.Observability.MetricsEnabled {
		if cfg.IsProduction {
			app.Get("/metrics", handler.MetricsTokenMiddleware(cfg.Observability.MetricsToken), metricsHandler.Handler())
		} else {
			app.Get("/metrics", metricsHandler.Handler())
		}
	} else {
		logger.Info().Msg("Metrics endpoint disabled")
	}

	// Background maintenance: prune old activity logs hourly.
	cleanupStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				pruned, err := logSvc.Prune(logRetention)
				if err != nil {
					logger.Error().Err(err).Msg("Failed to prune activity logs")
				} else if pruned > 0 {
					logger.Info().Int64("pruned", pruned).Msg("Activity log retention applied")
				}
			case <-cleanupStop:
				return
			}
		}
	}()

	go func() {
		addr := net.JoinHostPort(cfg.Server.BindAddress, cfg.Server.Port)
		logger.Info().
			Str("address", addr).
			Bool("metrics_enabled", cfg.Observability.MetricsEnabled).
			Msg("HTTP server listening")
		if err := app.Listen(addr); err != nil {
			logger.Error().Err(err).Msg("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info().Msg("Stopping background jobs...")
	close(cleanupStop)
	rateLimiter.Stop()

	logger.Info().Msg("Shutting down HTTP server...")
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
	}

	logger.Info().Msg("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing database")
	}

	logger.Info().Msg("Server stopped gracefully")
}
