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

	_ "github.com/noah-isme/civreg-api/api/swagger"
	"github.com/noah-isme/civreg-api/internal/handler"
	"github.com/noah-isme/civreg-api/internal/middleware"
	"github.com/noah-isme/civreg-api/internal/repository"
	"github.com/noah-isme/civreg-api/internal/service"
	"github.com/noah-isme/civreg-api/pkg/cache"
	"github.com/noah-isme/civreg-api/pkg/config"
	"github.com/noah-isme/civreg-api/pkg/database"
	"github.com/noah-isme/civreg-api/pkg/jobs"
	"github.com/noah-isme/civreg-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/civreg-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/civreg-api/pkg/middleware/requestid"
	"github.com/noah-isme/civreg-api/pkg/storage"
)

const (
	jobCitizenRebuild = "citizens:rebuild"
	jobExportCleanup  = "exports:cleanup"

	exportCleanupInterval = time.Hour
	exportRetention       = 24 * time.Hour
)

// @title Civil Registration API
// @version 1.0.0
// @description Registration and certification of births, marriages, and deaths.
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, response caching disabled", zap.Error(err))
		redisClient = nil
	}

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to init export storage", zap.Error(err))
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Statistics.CacheTTL, logr, redisClient != nil)

	sequenceRepo := repository.NewSequenceRepository(db, logr)
	birthRepo := repository.NewBirthRepository(db, sequenceRepo)
	marriageRepo := repository.NewMarriageRepository(db, sequenceRepo)
	deathRepo := repository.NewDeathRepository(db, sequenceRepo)
	officeRepo := repository.NewOfficeRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)
	citizenRepo := repository.NewCitizenRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	auditSvc := service.NewAuditService(auditRepo, logr)
	birthSvc := service.NewBirthService(birthRepo, officeRepo, auditSvc, validate, logr)
	marriageSvc := service.NewMarriageService(marriageRepo, birthRepo, officeRepo, auditSvc, validate, logr)
	deathSvc := service.NewDeathService(deathRepo, birthRepo, officeRepo, auditSvc, validate, logr)
	officeSvc := service.NewOfficeService(officeRepo, auditSvc, validate, logr)
	certificateSvc := service.NewCertificateService(certificateRepo, auditSvc, validate, logr)
	citizenSvc := service.NewCitizenService(citizenRepo, logr)
	statsSvc := service.NewStatsService(statsRepo, officeRepo, cacheSvc, cfg.Statistics.CacheTTL, logr)
	userSvc := service.NewUserService(userRepo, officeRepo, auditSvc, validate, logr)
	xmlSvc := service.NewXMLReportService(birthRepo, marriageRepo, deathRepo, officeRepo, statsRepo, logr)
	importSvc := service.NewImportService(birthSvc, marriageSvc, deathSvc, validate, logr)

	authSvc := service.NewAuthService(userRepo, auditSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "civreg-api",
		Audience:           []string{"civreg-clients"},
	})

	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(service.ExportServiceParams{
		Births:       birthRepo,
		Marriages:    marriageRepo,
		Deaths:       deathRepo,
		Certificates: certificateRepo,
		Storage:      exportStorage,
		Signer:       signer,
		Logger:       logr,
		Config:       service.ExportConfig{APIPrefix: cfg.APIPrefix},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	maintenance := jobs.NewQueue("maintenance", func(ctx context.Context, job jobs.Job) error {
		switch job.Type {
		case jobCitizenRebuild:
			started := time.Now()
			count, err := citizenSvc.Rebuild(ctx)
			if err != nil {
				return err
			}
			metrics.ObserveCitizenRebuild(time.Since(started))
			statsSvc.Invalidate(ctx)
			logr.Info("citizens projection rebuilt", zap.Int("citizens", count))
			return nil
		case jobExportCleanup:
			removed, err := exportSvc.Cleanup(exportRetention)
			if err != nil {
				return err
			}
			if len(removed) > 0 {
				logr.Info("expired exports removed", zap.Int("files", len(removed)))
			}
			return nil
		default:
			return fmt.Errorf("unknown job type %q", job.Type)
		}
	}, jobs.QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 30 * time.Second, Logger: logr})
	maintenance.Start(ctx)
	defer maintenance.Stop()

	go schedule(ctx, exportCleanupInterval, func() {
		enqueue(maintenance, jobExportCleanup, logr)
	})
	if cfg.CitizenSync.Enabled {
		go schedule(ctx, cfg.CitizenSync.Interval, func() {
			enqueue(maintenance, jobCitizenRebuild, logr)
		})
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Routes{
		Auth:         handler.NewAuthHandler(authSvc),
		Births:       handler.NewBirthHandler(birthSvc, metrics),
		Marriages:    handler.NewMarriageHandler(marriageSvc, metrics),
		Deaths:       handler.NewDeathHandler(deathSvc, metrics),
		Certificates: handler.NewCertificateHandler(certificateSvc, exportSvc),
		Offices:      handler.NewOfficeHandler(officeSvc),
		Users:        handler.NewUserHandler(userSvc),
		Citizens:     handler.NewCitizenHandler(citizenSvc, statsSvc, metrics),
		Stats:        handler.NewStatsHandler(statsSvc),
		XMLReports:   handler.NewXMLReportHandler(xmlSvc),
		Exports:      handler.NewExportHandler(exportSvc, importSvc),
		Audit:        handler.NewAuditHandler(auditSvc),
		Metrics:      handler.NewMetricsHandler(metrics),

		AuthService: authSvc,
		UserRepo:    userRepo,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// schedule invokes fn every interval until ctx is cancelled.
func schedule(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func enqueue(q *jobs.Queue, jobType string, logr *zap.Logger) {
	job := jobs.Job{ID: fmt.Sprintf("%s-%d", jobType, time.Now().UnixNano()), Type: jobType}
	if err := q.Enqueue(job); err != nil {
		logr.Warn("failed to enqueue job", zap.String("type", jobType), zap.Error(err))
	}
}
