package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimitConfig конфигурация rate limiting
type RateLimitConfig struct {
	Requests       int                       // Количество запросов
	Window         time.Duration             // Временное окно
	SkipSuccessful bool                      // Пропускать успешные запросы
	KeyGenerator   func(*gin.Context) string // Генератор ключей
	Prefix         string                    // Префикс ключа в Redis
}

// DefaultKeyGenerator генерирует ключ на основе IP адреса
func DefaultKeyGenerator(c *gin.Context) string {
	return c.ClientIP()
}

// RateLimit создает middleware для ограничения частоты запросов.
// Без Redis или при ошибке Redis запросы пропускаются.
func RateLimit(redisClient *redis.Client, config RateLimitConfig, logger *logrus.Logger) gin.HandlerFunc {
	if config.KeyGenerator == nil {
		config.KeyGenerator = DefaultKeyGenerator
	}
	if config.Prefix == "" {
		config.Prefix = "rate_limit:"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return func(c *gin.Context) {
		if redisClient == nil || config.Requests <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := config.Prefix + config.KeyGenerator(c)

		current, err := redisClient.Get(ctx, key).Int()
		if err != nil && err != redis.Nil {
			logger.WithError(err).Warn("rate limit check skipped")
			c.Next()
			return
		}

		if current >= config.Requests {
			c.Header("X-RateLimit-Limit", strconv.Itoa(config.Requests))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(config.Window).Unix(), 10))

			c.JSON(http.StatusTooManyRequests, gin.H{
				"status": "error",
				"error": fmt.Sprintf("Too many requests. Limit: %d requests per %v",
					config.Requests, config.Window),
				"retry_after": config.Window.Seconds(),
			})
			c.Abort()
			return
		}

		pipe := redisClient.Pipeline()
		pipe.Incr(ctx, key)
		if current == 0 {
			// TTL только для первого запроса в окне
			pipe.Expire(ctx, key, config.Window)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			logger.WithError(err).Warn("rate limit counter not updated")
			c.Next()
			return
		}

		remaining := config.Requests - current - 1
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(config.Window).Unix(), 10))

		c.Next()

		if config.SkipSuccessful && c.Writer.Status() < 400 {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			redisClient.Decr(ctx, key)
		}
	}
}

// LoginRateLimit ограничение попыток входа: успешный вход не расходует лимит
func LoginRateLimit(redisClient *redis.Client, requests int, window time.Duration, logger *logrus.Logger) gin.HandlerFunc {
	return RateLimit(redisClient, RateLimitConfig{
		Requests:       requests,
		Window:         window,
		SkipSuccessful: true,
		KeyGenerator:   DefaultKeyGenerator,
		Prefix:         "rate_limit:login:",
	}, logger)
}
