package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/studio-ops-api/api/swagger"
	"github.com/noah-isme/studio-ops-api/internal/handler"
	internalmiddleware "github.com/noah-isme/studio-ops-api/internal/middleware"
	"github.com/noah-isme/studio-ops-api/internal/models"
	"github.com/noah-isme/studio-ops-api/internal/repository"
	"github.com/noah-isme/studio-ops-api/internal/service"
	"github.com/noah-isme/studio-ops-api/pkg/cache"
	"github.com/noah-isme/studio-ops-api/pkg/config"
	"github.com/noah-isme/studio-ops-api/pkg/database"
	"github.com/noah-isme/studio-ops-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/studio-ops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/studio-ops-api/pkg/middleware/requestid"
	"github.com/noah-isme/studio-ops-api/pkg/storage"
)

// @title Studio Operations API
// @version 1.0.0
// @description Subscription lifecycle alerts and class capacity dashboard for studio staff
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient redis.UniversalClient
	client, err := cache.NewRedis(ctx, cfg.Redis)
	switch {
	case errors.Is(err, cache.ErrDisabled):
		logr.Info("redis disabled, dashboard cache off")
	case err != nil:
		logr.Warn("redis unavailable, dashboard cache off", zap.Error(err))
	default:
		redisClient = client
		defer client.Close()
	}

	loc := cfg.Location()
	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	classRepo := repository.NewClassSessionRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	userRepo := repository.NewUserRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, repository.DefaultCachePrefix)

	cacheSvc := service.NewCacheService(service.CacheServiceParams{
		Repo:       cacheRepo,
		Metrics:    metricsSvc,
		Logger:     logr,
		DefaultTTL: cfg.Dashboard.CacheTTL,
		Enabled:    redisClient != nil,
	})

	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)

	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Classes:       classRepo,
		Bookings:      bookingRepo,
		Users:         userRepo,
		Subscriptions: subscriptionRepo,
		Cache:         cacheSvc,
		Metrics:       metricsSvc,
		Logger:        logr,
		Location:      loc,
		Config: service.DashboardServiceConfig{
			CacheTTL:    cfg.Dashboard.CacheTTL,
			LastGoodTTL: cfg.Dashboard.LastGoodTTL,
		},
	})

	subscriptionSvc := service.NewSubscriptionService(service.SubscriptionServiceParams{
		Subscriptions: subscriptionRepo,
		Users:         userRepo,
		Validator:     validate,
		Logger:        logr,
		Location:      loc,
	})

	refreshSvc := service.NewRefreshService(service.RefreshServiceParams{
		Dashboard: dashboardSvc,
		Metrics:   metricsSvc,
		Logger:    logr,
		Interval:  cfg.Dashboard.RefreshInterval,
		Workers:   cfg.Dashboard.RefreshWorkers,
		Retries:   cfg.Dashboard.RefreshRetries,
		Location:  loc,
	})
	refreshSvc.Start(ctx)
	defer refreshSvc.Stop()

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	exportSvc := service.NewExportService(service.ExportServiceParams{
		Alerts:    subscriptionSvc,
		Classes:   classRepo,
		Bookings:  bookingRepo,
		Users:     userRepo,
		Storage:   exportStore,
		Signer:    storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
		Location:  loc,
		Config: service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		},
	})
	go exportSvc.RunCleanup(ctx, cfg.Exports.CleanupInterval)

	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, refreshSvc)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/exports/:token", exportHandler.Download)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(tokenSvc))

	staff := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleReception)

	secured.GET("/dashboard/operations",
		internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleReception, models.RoleInstructor),
		dashboardHandler.Operations)
	secured.POST("/dashboard/refresh", internalmiddleware.RequireRoles(models.RoleAdmin), dashboardHandler.Refresh)
	secured.GET("/metrics/summary", internalmiddleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)

	subscriptions := secured.Group("/subscriptions", staff)
	subscriptions.GET("/alerts", subscriptionHandler.Alerts)
	subscriptions.GET("/:id/status", subscriptionHandler.Status)
	subscriptions.POST("/end-date", subscriptionHandler.EndDate)
	subscriptions.POST("/end-date/preview", subscriptionHandler.PreviewEndDates)

	secured.POST("/exports", staff, exportHandler.Create)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
