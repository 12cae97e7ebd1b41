package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/campus-nfc/card-service/internal/api/http"
	"github.com/campus-nfc/card-service/internal/api/http/handlers"
	"github.com/campus-nfc/card-service/internal/auth"
	"github.com/campus-nfc/card-service/internal/config"
	"github.com/campus-nfc/card-service/internal/events"
	"github.com/campus-nfc/card-service/internal/mq"
	"github.com/campus-nfc/card-service/internal/observability"
	"github.com/campus-nfc/card-service/internal/persistence"
	"github.com/campus-nfc/card-service/internal/ratelimit"
	"github.com/campus-nfc/card-service/internal/repository"
	"github.com/campus-nfc/card-service/internal/service"
	"github.com/campus-nfc/card-service/internal/storage"
	"github.com/campus-nfc/card-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	photos, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to init object storage", zap.Error(err))
	}
	if err := photos.EnsureBucket(ctx); err != nil {
		logger.Warn("ensure photo bucket", zap.String("bucket", photos.Bucket()), zap.Error(err))
	}

	broker, err := mq.NewBackend(ctx, cfg.MQ, logger)
	if err != nil {
		logger.Fatal("failed to init message broker", zap.Error(err))
	}
	defer broker.Close() //nolint:errcheck

	userRepo := repository.NewUserRepository(pg.Pool)
	departmentRepo := repository.NewDepartmentRepository(pg.Pool)
	resetRepo := repository.NewPasswordResetRepository(pg.Pool)
	historyRepo := repository.NewAccountHistoryRepository(pg.Pool)
	revocations := auth.NewRedisRevocationStore(redis.Client)
	loginLimiter := ratelimit.New(redis.Client, "login:", cfg.RateLimit.LoginMax, cfg.RateLimit.LoginWindow())

	dispatcher := events.NewInMemoryDispatcher()
	directory := service.NewDirectoryService(userRepo, photos, logger)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		DepartmentRepo:    departmentRepo,
		PasswordResetRepo: resetRepo,
		Revocations:       revocations,
		LoginLimiter:      loginLimiter,
		Photos:            photos,
		Dispatcher:        dispatcher,
		Metrics:           metrics,
		Logger:            logger,
	})
	approvalService := service.NewApprovalService(service.ApprovalDependencies{
		Directory:   directory,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
		MaxParallel: cfg.Approval.MaxParallel,
	})
	adminService := service.NewAdminService(*cfg, service.AdminDependencies{
		Directory:      directory,
		UserRepo:       userRepo,
		DepartmentRepo: departmentRepo,
		Photos:         photos,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	staffService := service.NewStaffService(directory)
	historyService := service.NewHistoryService(historyRepo, dispatcher, logger)
	historyService.RegisterHandlers()
	cardService := service.NewCardService(photos, logger)

	worker.StartNotificationWorker(service.NewNotificationService(*cfg, service.NotificationDependencies{
		Dispatcher: dispatcher,
		Publisher:  broker,
		Metrics:    metrics,
		Logger:     logger,
	}))

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, revocations)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             2*cfg.Storage.MaxPhotoBytes + 64<<10,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          30 * time.Second,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Me:             handlers.NewMeHandler(cardService),
		Staff:          handlers.NewStaffHandler(staffService, approvalService),
		Admin:          handlers.NewAdminHandler(adminService, approvalService),
		Departments:    handlers.NewDepartmentHandler(adminService),
		History:        handlers.NewHistoryHandler(historyService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics.Handler(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
