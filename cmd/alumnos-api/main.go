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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/alumnos-api/api/swagger"
	"github.com/noah-isme/alumnos-api/internal/handler"
	internalmiddleware "github.com/noah-isme/alumnos-api/internal/middleware"
	"github.com/noah-isme/alumnos-api/internal/repository"
	"github.com/noah-isme/alumnos-api/internal/service"
	"github.com/noah-isme/alumnos-api/pkg/cache"
	"github.com/noah-isme/alumnos-api/pkg/config"
	"github.com/noah-isme/alumnos-api/pkg/database"
	appErrors "github.com/noah-isme/alumnos-api/pkg/errors"
	"github.com/noah-isme/alumnos-api/pkg/export"
	"github.com/noah-isme/alumnos-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/alumnos-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/alumnos-api/pkg/middleware/requestid"
	"github.com/noah-isme/alumnos-api/pkg/response"
)

// @title Alumnos API
// @version 1.0.0
// @description Student registry protected by HTTP Basic authentication.
// @BasePath /api
// @schemes http https
// @securityDefinitions.basic BasicAuth

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		logr.Info("database migrated", zap.String("driver", cfg.Database.Driver))
	}

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			// Reads fall back to the database when Redis is unavailable.
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, true)
		}
	}

	credentials, err := service.NewStaticCredentialStore(cfg.Auth)
	if err != nil {
		return fmt.Errorf("configure auth: %w", err)
	}
	authSvc := service.NewAuthService(credentials, logr)
	studentRepo := repository.NewStudentRepository(db)
	studentSvc := service.NewStudentService(studentRepo, cacheSvc, metrics, logr)
	exportSvc := service.NewExportService(studentSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logr.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "internal server error"))
		c.Abort()
	}))
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, studentRepo, logr)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		swagger.SwaggerInfo.BasePath = cfg.APIPrefix
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	alumnos := api.Group("/alumnos", internalmiddleware.BasicAuth(authSvc, cfg.Auth.Realm))
	handler.NewStudentHandler(studentSvc, exportSvc).RegisterRoutes(alumnos)

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no route for "+c.Request.Method+" "+c.Request.URL.Path))
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logr.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
