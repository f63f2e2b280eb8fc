package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/snackpdf/pdf-api/api/swagger"
	"github.com/snackpdf/pdf-api/internal/handler"
	"github.com/snackpdf/pdf-api/internal/middleware"
	"github.com/snackpdf/pdf-api/internal/pdf"
	"github.com/snackpdf/pdf-api/internal/repository"
	"github.com/snackpdf/pdf-api/internal/service"
	"github.com/snackpdf/pdf-api/pkg/cache"
	"github.com/snackpdf/pdf-api/pkg/config"
	"github.com/snackpdf/pdf-api/pkg/database"
	"github.com/snackpdf/pdf-api/pkg/logger"
	corsmiddleware "github.com/snackpdf/pdf-api/pkg/middleware/cors"
	reqidmiddleware "github.com/snackpdf/pdf-api/pkg/middleware/requestid"
	"github.com/snackpdf/pdf-api/pkg/storage"
	"github.com/snackpdf/pdf-api/pkg/tasks"
)

const version = "0.1.0"

// @title SnackPDF Processing API
// @version 0.1.0
// @description PDF merge and split pipeline with usage quotas
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	jobRepo := repository.NewJobRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	var cacheService *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, usage stats cache disabled", "error", err)
		cacheService = service.NewCacheService(nil, cfg.Usage.CacheTTL, logr, false)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, cfg.Usage.CacheTTL, logr, true)
	}

	store, filesHandler, err := buildStorage(cfg)
	if err != nil {
		logr.Sugar().Fatalw("failed to init storage", "error", err)
	}

	metricsService := service.NewMetricsService()

	usageService := service.NewUsageService(userRepo, activityRepo, logr, service.UsageConfig{GuestDailyLimit: cfg.Quota.GuestDailyLimit})

	sideEffects := service.NewSideEffectsService(activityRepo, usageService, logr)
	queue := tasks.NewQueue("side-effects", sideEffects.Handle, tasks.QueueConfig{
		Workers:    cfg.Tasks.Workers,
		BufferSize: cfg.Tasks.BufferSize,
		MaxRetries: cfg.Tasks.MaxRetries,
		RetryDelay: cfg.Tasks.RetryDelay,
		Logger:     logr,
	})
	queue.Start(context.Background())
	defer queue.Stop()

	authService := service.NewAuthService(userRepo, logr, service.AuthConfig{TokenSecret: cfg.JWT.Secret})
	jobService := service.NewJobService(jobRepo, logr)
	pdfService := service.NewPDFService(usageService, jobService, pdf.NewEngine(), store, queue, metricsService, validator.New(), logr)
	usageStatsService := service.NewUsageStatsService(userRepo, jobRepo, cacheService, logr, cfg.Usage.CacheTTL)

	pdfHandler := handler.NewPDFHandler(pdfService, handler.UploadLimits{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		MaxFilesPerJob:   cfg.Uploads.MaxFilesPerJob,
	}, metricsService)
	usageHandler := handler.NewUsageHandler(usageStatsService)
	statusHandler := handler.NewStatusHandler(metricsService, version)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsService))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", statusHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", statusHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		pdfGroup := api.Group("/pdf")
		pdfGroup.POST("/merge", middleware.OptionalAuth(authService), pdfHandler.Merge)
		pdfGroup.POST("/split", middleware.OptionalAuth(authService), pdfHandler.Split)
		pdfGroup.GET("/jobs/:jobId", middleware.Auth(authService), pdfHandler.GetJob)
		pdfGroup.GET("/status", statusHandler.Status)

		api.GET("/users/usage", middleware.Auth(authService), usageHandler.Usage)

		if filesHandler != nil {
			api.GET("/files/:name", filesHandler.Download)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "storage", cfg.Storage.Backend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}

// buildStorage selects the artifact store backend. The files handler is only
// returned for the local backend; S3 deployments hand out storage URLs
// directly.
func buildStorage(cfg *config.Config) (storage.ObjectStore, *handler.FilesHandler, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendS3:
		store, err := storage.NewS3Store(context.Background(), cfg.Storage)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case config.StorageBackendLocal:
		signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
		urlBase := strings.TrimRight(cfg.APIPrefix, "/") + "/files"
		store, err := storage.NewLocalStorage(cfg.Storage.LocalDir, signer, urlBase)
		if err != nil {
			return nil, nil, err
		}
		return store, handler.NewFilesHandler(store, signer), nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
