package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"farmfi-backend/internal/auth"
	"farmfi-backend/internal/cache"
	"farmfi-backend/internal/config"
	"farmfi-backend/internal/db"
	"farmfi-backend/internal/handlers"
	"farmfi-backend/internal/health"
	h "farmfi-backend/internal/http"
	"farmfi-backend/internal/inference"
	"farmfi-backend/internal/logging"
	"farmfi-backend/internal/middleware"
	"farmfi-backend/internal/notify"
	"farmfi-backend/internal/repositories"
	"farmfi-backend/internal/services"
	"farmfi-backend/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// locationCacheTTL bounds how stale the mandal/village/crop lists may be.
const locationCacheTTL = 10 * time.Minute

func serveCmd() *cobra.Command {
	var skipMigrations bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on startup")
	return cmd
}

func serve(parent context.Context, skipMigrations bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	log.Info("connected to database")

	if !skipMigrations {
		if err := runMigrations(ctx, pool, log); err != nil {
			return err
		}
	}

	if err := cache.Init(cfg); err != nil {
		log.Warn("redis unavailable, analytics caching disabled", zap.Error(err))
	} else {
		log.Info("connected to redis")
	}
	defer cache.Close()

	// Optional integrations stay true nil interfaces when unconfigured so
	// the prediction flow answers 502 instead of dereferencing nil.
	checker := health.NewHealthChecker(pool)
	var objects services.ObjectStore
	if cfg.Storage.Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, cfg)
		if err != nil {
			return fmt.Errorf("init object storage: %w", err)
		}
		objects = s3Store
		checker.WithStorage(s3Store)
	} else {
		log.Warn("S3 bucket not configured, image uploads disabled")
	}
	var predictor services.Predictor
	if cfg.Inference.URL != "" {
		predictor = inference.NewClient(cfg.Inference.URL, cfg.Inference.Mode, cfg.InferenceTimeout())
	} else {
		log.Warn("inference endpoint not configured, disease prediction disabled")
	}

	hub := notify.NewHub(log)
	defer hub.Close()

	// Repositories
	farmerRepo := repositories.NewFarmerRepository(pool)
	staffRepo := repositories.NewStaffRepository(pool)
	locationRepo := repositories.NewLocationRepository(pool)
	loginLogRepo := repositories.NewLoginLogRepository(pool)
	fieldRepo := repositories.NewFieldRepository(pool)
	cropRepo := repositories.NewCropDataRepository(pool)
	imageRepo := repositories.NewFieldImageRepository(pool)
	analyticsRepo := repositories.NewAnalyticsRepository(pool)
	approvalRepo := repositories.NewApprovalLogRepository(pool)

	// Services
	jwtManager := auth.NewJWTManager(cfg)
	totpService := services.NewTOTPService(staffRepo)
	authService := services.NewAuthService(farmerRepo, staffRepo, locationRepo, loginLogRepo, totpService, jwtManager, log)
	locationService := services.NewLocationService(locationRepo, cache.NewLocal(locationCacheTTL), log)
	fieldService := services.NewFieldService(fieldRepo, locationRepo, hub, log)
	cropService := services.NewCropService(cropRepo, fieldRepo, hub, log)
	importService := services.NewCropImportService(cropService, log)
	predictionService := services.NewPredictionService(fieldRepo, cropRepo, imageRepo, objects, predictor, cfg.Upload.MaxBytes, log)
	analyticsService := services.NewAnalyticsService(analyticsRepo, log)
	reportService := services.NewReportService(farmerRepo, fieldRepo, cropRepo, imageRepo)

	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	router := h.NewRouter(h.Handlers{
		Auth:      handlers.NewAuthHandler(authService, locationService, log),
		TOTP:      handlers.NewTOTPHandler(totpService, log),
		Employees: handlers.NewEmployeeHandler(authService, log),
		LoginLogs: handlers.NewLoginLogHandler(loginLogRepo, log),
		Fields:    handlers.NewFieldHandler(fieldService, approvalRepo, log),
		Crops:     handlers.NewCropHandler(cropService, importService, locationService, approvalRepo, log),
		Images:    handlers.NewFieldImageHandler(predictionService, cfg.Upload.MaxBytes, log),
		Analytics: handlers.NewAnalyticsHandler(analyticsService, log),
		Reports:   handlers.NewReportHandler(reportService, log),
		WS:        handlers.NewWSHandler(ctx, hub, authMiddleware, cfg.Server.CorsAllowedOrigins, log),
		Health:    handlers.NewHealthHandler(checker),
	}, authMiddleware, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           middleware.NewCORS(cfg)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		// websocket clients are hijacked and not tracked by Shutdown
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
