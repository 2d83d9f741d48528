package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignatzorin/localhelp-backend/internal/config"
	"github.com/ignatzorin/localhelp-backend/internal/db"
	"github.com/ignatzorin/localhelp-backend/internal/gateway"
	"github.com/ignatzorin/localhelp-backend/internal/geo"
	"github.com/ignatzorin/localhelp-backend/internal/http/handlers"
	"github.com/ignatzorin/localhelp-backend/internal/http/router"
	"github.com/ignatzorin/localhelp-backend/internal/logger"
	"github.com/ignatzorin/localhelp-backend/internal/repository"
	"github.com/ignatzorin/localhelp-backend/internal/service"
	"github.com/ignatzorin/localhelp-backend/internal/storage"
	"github.com/ignatzorin/localhelp-backend/internal/ws"
)

const accessTokenTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info")
		logger.Log.Fatalf("не удалось загрузить конфигурацию: %v", err)
	}

	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres и миграции
	pg, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("postgres: %v", err)
	}
	defer pg.Close()

	if err := db.RunMigrations(ctx, pg, cfg.MigrationsPath); err != nil {
		logger.Log.Fatalf("миграции: %v", err)
	}

	// Redis необязателен: без него подбор исполнителей идёт по базе.
	rdb, err := db.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		logger.Log.Fatalf("redis: %v", err)
	}
	var locator service.Locator
	if rdb != nil {
		defer rdb.Close()
		locator = geo.NewHelperLocator(rdb)
	}

	// Репозитории
	userRepo := repository.NewUserRepository(pg)
	jobRepo := repository.NewJobRepository(pg)
	paymentRepo := repository.NewPaymentRepository(pg)
	reviewRepo := repository.NewReviewRepository(pg)
	notificationRepo := repository.NewNotificationRepository(pg)
	mediaRepo := repository.NewMediaRepository(pg)

	// WebSocket hub
	hub := ws.NewHub(ctx)
	go hub.Run()

	// Сервисы
	notificationService := service.NewNotificationService(notificationRepo)
	notificationService.SetHub(hub)

	tokenManager := service.NewTokenManager(cfg.JWTSecret, accessTokenTTL)

	matcherService := service.NewMatcherService(userRepo, jobRepo, locator, cfg.NearbyRadiusKm, cfg.NearbyMaxHelpers)

	ratingAggregator := service.NewRatingAggregator(reviewRepo, userRepo)
	reviewService := service.NewReviewService(reviewRepo, jobRepo, userRepo, ratingAggregator, notificationService)

	jobService := service.NewJobService(jobRepo, userRepo, notificationService)
	jobService.SetMatcher(matcherService)
	jobService.SetReviewCreator(reviewService)

	gatewayClient := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayTimeout)
	paymentService := service.NewPaymentService(paymentRepo, jobRepo, userRepo, gatewayClient, notificationService, int64(cfg.PlatformFeePercent))

	photoStorage, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		logger.Log.Fatalf("хранилище медиа: %v", err)
	}

	var seedHandler *handlers.SeedHandler
	if cfg.Env == "development" {
		seedService := service.NewSeedService(userRepo, jobRepo, matcherService)
		seedHandler = handlers.NewSeedHandler(seedService, userRepo, tokenManager)
	}

	// HTTP
	r := router.SetupRouter(
		cfg,
		handlers.NewJobHandler(jobService, matcherService),
		handlers.NewPaymentHandler(paymentService),
		handlers.NewReviewHandler(reviewService),
		handlers.NewUserHandler(userRepo, matcherService),
		handlers.NewNotificationHandler(notificationService),
		handlers.NewMediaHandler(mediaRepo, photoStorage),
		handlers.NewWSHandler(hub, tokenManager),
		handlers.NewHealthHandler(pg),
		seedHandler,
		tokenManager,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("сервер запущен на порту %s (env=%s)", cfg.HTTPPort, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("http сервер: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Log.Info("получен сигнал остановки, завершаем работу")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("не удалось корректно остановить сервер: %v", err)
	}

	logger.Log.Info("сервер остановлен")
}
