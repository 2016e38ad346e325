package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend_realty/api"
	"backend_realty/config"
	"backend_realty/database"
	"backend_realty/middleware"
	"backend_realty/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Время на завершение активных запросов при остановке
const shutdownTimeout = 15 * time.Second

// initDB подключается к MongoDB и создает индексы
func initDB(ctx context.Context, cfg *config.Config, logger *logrus.Logger) *database.Manager {
	logger.Info("🔧 Инициализация базы данных...")

	manager := database.NewManager(cfg.Database, logger)
	db, err := manager.Database(ctx)
	if err != nil {
		logger.WithError(err).Fatal("❌ Ошибка подключения к базе данных")
	}

	if err := database.EnsureIndexes(ctx, db, logger); err != nil {
		logger.WithError(err).Warn("⚠️  Не удалось создать индексы")
	}

	logger.Info("✅ База данных успешно инициализирована")
	return manager
}

// initNotifier подключает Telegram, если он включен
func initNotifier(cfg *config.Config, admins *services.AdminService, logger *logrus.Logger) services.DealNotifier {
	if !cfg.Telegram.Enabled || cfg.Telegram.BotToken == "" {
		return services.NoopNotifier{}
	}

	notifier, err := services.NewTelegramNotifier(cfg.Telegram.BotToken, admins, logger)
	if err != nil {
		logger.WithError(err).Warn("⚠️  Telegram недоступен, уведомления отключены")
		return services.NoopNotifier{}
	}
	return notifier
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	cfg.LogConfig()

	logger := cfg.NewLogger()
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	manager := initDB(startCtx, cfg, logger)
	redisClient := database.NewRedisClient(startCtx, cfg, logger)
	cancel()

	cache := services.NewListingCache(redisClient, cfg.Redis.ListingTTL, logger)
	admins := services.NewAdminService(manager, logger)
	properties := services.NewPropertyService(manager, cache, logger)
	migrations := services.NewMigrationService(manager, logger)
	scheduler := services.NewMigrationSchedulerService(migrations, cfg.Migration.Collection, cfg.Migration.DateFields, logger)

	if cfg.Migration.Schedule != "" {
		if err := scheduler.Start(cfg.Migration.Schedule); err != nil {
			logger.WithError(err).Fatal("❌ Некорректное расписание миграции")
		}
		defer scheduler.Stop()
	}

	router := api.NewRouter(api.Dependencies{
		Config:     cfg,
		Logger:     logger,
		DB:         manager,
		Redis:      redisClient,
		Tokens:     middleware.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.ExpiresIn, cfg.JWT.Issuer),
		Properties: properties,
		Clients:    services.NewClientService(manager, logger),
		Deals:      services.NewDealService(manager, initNotifier(cfg, admins, logger), logger),
		Calendar:   services.NewCalendarService(manager, logger),
		Admins:     admins,
		Reports:    services.NewReportService(properties, logger),
		Migrations: scheduler,
	})

	server := &http.Server{
		Addr:         cfg.App.Host + ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.Security.RequestTimeout,
		WriteTimeout: cfg.Security.ResponseTimeout,
	}

	go func() {
		logger.Infof("🚀 Сервер запущен на порту %s", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("❌ Ошибка HTTP сервера")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Остановка сервера...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := manager.Close(shutdownCtx); err != nil {
		logger.WithError(err).Error("database disconnect failed")
	}
}
