package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adilbek99/volunteer-system/config"
	"github.com/Adilbek99/volunteer-system/db"
	"github.com/Adilbek99/volunteer-system/handlers"
	"github.com/Adilbek99/volunteer-system/middleware"
	"github.com/Adilbek99/volunteer-system/notifications"
	"github.com/Adilbek99/volunteer-system/repositories"
	api "github.com/Adilbek99/volunteer-system/routes"
	"github.com/Adilbek99/volunteer-system/services"
	"github.com/Adilbek99/volunteer-system/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

const schedulerInterval = 30 * time.Second // How often the scheduler runs

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})) // Default to Info level
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Применение миграций
	if err := db.Migrate(dbConn); err != nil {
		logger.Error("failed to apply database migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	// Инициализация загрузчика файлов (Cloudflare R2 или inline data-URL)
	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		uploader = storage.NewDataURIUploader()
		logger.Warn("R2 is not configured, using inline data-URL uploader")
	}

	// Инициализация WebSocket Hub
	wsHub := notifications.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	categoryRepo := repositories.NewPostgresCategoryRepository(dbConn)
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	memberRepo := repositories.NewPostgresTeamMemberRepository(dbConn)
	inviteRepo := repositories.NewPostgresInviteRepository(dbConn)
	evaluationRepo := repositories.NewPostgresEvaluationRepository(dbConn)
	notificationRepo := repositories.NewPostgresNotificationRepository(dbConn)
	termsRepo := repositories.NewPostgresTermsRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	emailService := services.NewEmailService(cfg)
	notificationService := services.NewNotificationService(notificationRepo, wsHub, logger)
	authService := services.NewAuthService(userRepo)
	userService := services.NewUserService(userRepo, uploader, logger)
	categoryService := services.NewCategoryService(categoryRepo, uploader, logger)
	eventService := services.NewEventService(
		eventRepo,
		registrationRepo,
		teamRepo,
		categoryRepo,
		termsRepo,
		notificationService,
		uploader,
		logger,
	)
	registrationService := services.NewRegistrationService(
		registrationRepo,
		eventRepo,
		termsRepo,
		notificationService,
		logger,
	)
	teamService := services.NewTeamService(
		dbConn, // Pass dbConn for transaction management
		teamRepo,
		memberRepo,
		eventRepo,
		userRepo,
		notificationService,
		logger,
	)
	inviteService := services.NewInviteService(inviteRepo, teamRepo, memberRepo, notificationService, emailService, cfg.PublicURL, logger)
	termsService := services.NewTermsService(termsRepo, eventRepo, userRepo, logger)
	evaluationService := services.NewEvaluationService(
		evaluationRepo,
		eventRepo,
		registrationRepo,
		notificationService,
		logger,
	)
	adminService := services.NewAdminService(dbConn, userRepo, teamService, emailService, logger)
	dashboardService := services.NewDashboardService(userRepo, eventRepo, registrationRepo, teamRepo)
	logger.Info("Services initialized")

	// Запуск планировщика: автопереходы статусов событий по датам и
	// очистка истёкших приглашений
	go func() {
		ticker := time.NewTicker(schedulerInterval)
		defer ticker.Stop()
		logger.Info("Event status update scheduler started", slog.Duration("interval", schedulerInterval))

		runOnce := func() {
			if err := eventService.AutoUpdateEventStatusesByDates(context.Background()); err != nil {
				logger.Error("Scheduler: event status update failed", slog.Any("error", err))
			}
			if removed, err := inviteService.CleanupExpired(context.Background()); err != nil {
				logger.Error("Scheduler: invite cleanup failed", slog.Any("error", err))
			} else if removed > 0 {
				logger.Info("Scheduler: expired invites removed", slog.Int64("count", removed))
			}
		}

		// Run once immediately at startup, then on ticker
		runOnce()
		for range ticker.C {
			runOnce()
		}
	}()

	// Инициализация обработчиков HTTP
	auth := middleware.NewAuth(cfg.JWTSecretKey)
	authHandler := handlers.NewAuthHandler(authService, userService, emailService, auth)
	userHandler := handlers.NewUserHandler(userService)
	eventHandler := handlers.NewEventHandler(eventService, registrationService)
	registrationHandler := handlers.NewRegistrationHandler(registrationService)
	teamHandler := handlers.NewTeamHandler(teamService)
	inviteHandler := handlers.NewInviteHandler(inviteService)
	termsHandler := handlers.NewTermsHandler(termsService)
	evaluationHandler := handlers.NewEvaluationHandler(evaluationService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	adminHandler := handlers.NewAdminHandler(adminService, dashboardService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, auth)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		auth,
		authHandler,
		userHandler,
		eventHandler,
		registrationHandler,
		teamHandler,
		inviteHandler,
		termsHandler,
		evaluationHandler,
		notificationHandler,
		categoryHandler,
		adminHandler,
		webSocketHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		// Create a context with timeout for shutdown.
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			// If shutdown fails, force close.
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
