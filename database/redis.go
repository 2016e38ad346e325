package database

import (
	"context"

	"backend_realty/config"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// NewRedisClient создает клиент Redis с пулом подключений.
// Если Redis недоступен, возвращает nil и приложение работает без кэша.
func NewRedisClient(ctx context.Context, cfg *config.Config, logger *logrus.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.MaxConns,
		MinIdleConns: 2,
		DialTimeout:  cfg.Redis.Timeout,
		ReadTimeout:  cfg.Redis.Timeout,
		WriteTimeout: cfg.Redis.Timeout,
	})

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("⚠️  Redis недоступен, кэширование отключено")
		_ = client.Close()
		return nil
	}

	logger.WithField("addr", cfg.GetRedisAddr()).Info("✅ Успешно подключено к Redis")
	return client
}
