package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/padma-edu/timetable-api/api/swagger"
	"github.com/padma-edu/timetable-api/internal/handler"
	"github.com/padma-edu/timetable-api/internal/middleware"
	"github.com/padma-edu/timetable-api/internal/models"
	"github.com/padma-edu/timetable-api/internal/repository"
	"github.com/padma-edu/timetable-api/internal/service"
	"github.com/padma-edu/timetable-api/pkg/cache"
	"github.com/padma-edu/timetable-api/pkg/config"
	"github.com/padma-edu/timetable-api/pkg/database"
	"github.com/padma-edu/timetable-api/pkg/jobs"
	"github.com/padma-edu/timetable-api/pkg/logger"
	corsmiddleware "github.com/padma-edu/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/padma-edu/timetable-api/pkg/middleware/requestid"
	"github.com/padma-edu/timetable-api/pkg/storage"
)

// @title Timetable API
// @version 1.0.0
// @description Multi-tenant school timetable scheduling service
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, timetable caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	timeSlotRepo := repository.NewTimeSlotRepository(db)
	entryRepo := repository.NewEntryRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	exportRepo := repository.NewExportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT.Secret)
	timeSlotSvc := service.NewTimeSlotService(timeSlotRepo, entryRepo, validate, logr)
	entrySvc := service.NewEntryService(entryRepo, timeSlotRepo, cacheRepo, metricsSvc, cfg.Timetable.CacheTTL, validate, logr)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, timeSlotRepo, validate, logr)

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(exportRepo, entrySvc, exportStore, signer, cfg.APIPrefix, validate, logr)

	exportQueue := jobs.NewQueue("timetable-exports", exportSvc.Process, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})
	exportQueue.Start(context.Background())
	defer exportQueue.Stop()
	exportSvc.SetQueue(exportQueue)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepExports(sweepCtx, exportStore, 2*cfg.Exports.SignedURLTTL, logr)

	timeSlotHandler := handler.NewTimeSlotHandler(timeSlotSvc)
	entryHandler := handler.NewEntryHandler(entrySvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	writers := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleScheduler)

	api.GET("/time-slots", timeSlotHandler.List)
	api.POST("/time-slots", writers, timeSlotHandler.Create)
	api.PUT("/time-slots/:id", writers, timeSlotHandler.Update)
	api.DELETE("/time-slots/:id", writers, timeSlotHandler.Delete)
	api.GET("/time-slots/:id/available-teachers", availabilityHandler.AvailableTeachers)

	api.POST("/entries", writers, entryHandler.Create)
	api.POST("/entries/bulk", writers, entryHandler.BulkImport)
	api.PUT("/entries/:id", writers, entryHandler.Update)
	api.DELETE("/entries/:id", writers, entryHandler.Delete)

	api.GET("/classes/:id/timetable", entryHandler.TimetableByClass)
	api.GET("/teachers/:id/timetable", entryHandler.TimetableByTeacher)
	api.GET("/rooms/:id/timetable", entryHandler.TimetableByRoom)

	api.GET("/teachers/:id/availability", availabilityHandler.Get)
	api.PUT("/teachers/:id/availability", writers, availabilityHandler.Set)

	api.POST("/timetable-exports", writers, exportHandler.Create)
	api.GET("/timetable-exports/:id", exportHandler.Get)
	api.GET("/timetable-exports/download", exportHandler.Download)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down", zap.String("addr", addr))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

// sweepExports periodically removes rendered export files older than the
// retention window. Expired download links cannot be refreshed, so the files
// only consume disk once the window passes.
func sweepExports(ctx context.Context, store *storage.LocalStorage, retention time.Duration, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.Sweep(retention)
			if err != nil {
				logr.Warn("export sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logr.Info("export sweep removed stale files", zap.Int("removed", removed))
			}
		}
	}
}
