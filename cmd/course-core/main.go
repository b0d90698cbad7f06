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
	"go.uber.org/zap"

	"github.com/noah-isme/lms-course-core/internal/middleware"
	"github.com/noah-isme/lms-course-core/internal/models"
	"github.com/noah-isme/lms-course-core/internal/repository"
	"github.com/noah-isme/lms-course-core/internal/service"
	"github.com/noah-isme/lms-course-core/pkg/cache"
	"github.com/noah-isme/lms-course-core/pkg/config"
	"github.com/noah-isme/lms-course-core/pkg/database"
	"github.com/noah-isme/lms-course-core/pkg/logger"
	reqidmiddleware "github.com/noah-isme/lms-course-core/pkg/middleware/requestid"
)

const metricsPath = "/metrics"

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis, cfg.Cache)
	if err != nil {
		logr.Warn("course cache disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, "lms", logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	courses := service.NewCourseService(
		repository.NewContentRepository(db),
		repository.NewAttributeRepository(db),
		repository.NewTermRepository(db),
		cacheSvc,
		metricsSvc,
		validator.New(),
		logr,
		service.CourseOptions{
			DefaultCategoryID: cfg.Course.DefaultCategoryID,
			PageSize:          cfg.Course.PageSize,
		},
	)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc, metricsPath))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness runs a one-row course query so a missing schema fails the probe.
	r.GET("/ready", func(c *gin.Context) {
		probeCtx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if _, _, err := courses.Query(probeCtx, models.CourseQuery{PageSize: 1}); err != nil {
			logr.Warn("readiness probe failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "cache": cacheSvc.Enabled()})
	})

	r.GET(metricsPath, gin.WrapH(metricsSvc.Handler()))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
