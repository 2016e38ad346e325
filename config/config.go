package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	// Основные настройки приложения
	App AppConfigStruct `json:"app"`

	// База данных (MongoDB)
	Database DatabaseConfig `json:"database"`

	// Redis
	Redis RedisConfig `json:"redis"`

	// JWT
	JWT JWTConfig `json:"jwt"`

	// CORS
	CORS CORSConfig `json:"cors"`

	// Безопасность
	Security SecurityConfig `json:"security"`

	// Логирование
	Logging LoggingConfig `json:"logging"`

	// Telegram уведомления
	Telegram TelegramConfig `json:"telegram"`

	// Миграции данных
	Migration MigrationConfig `json:"migration"`
}

type AppConfigStruct struct {
	Env     string `json:"env"`
	Port    string `json:"port"`
	Host    string `json:"host"`
	Version string `json:"version"`
	Debug   bool   `json:"debug"`
}

// DatabaseConfig настройки пула подключений к MongoDB
type DatabaseConfig struct {
	URI                    string        `json:"uri"`
	Name                   string        `json:"name"`
	MaxPoolSize            uint64        `json:"max_pool_size"`
	MinPoolSize            uint64        `json:"min_pool_size"`
	MaxConnIdleTime        time.Duration `json:"max_conn_idle_time"`
	ServerSelectionTimeout time.Duration `json:"server_selection_timeout"`
	SocketTimeout          time.Duration `json:"socket_timeout"`
	PingTimeout            time.Duration `json:"ping_timeout"`
}

type RedisConfig struct {
	Host       string        `json:"host"`
	Port       string        `json:"port"`
	Password   string        `json:"password"`
	DB         int           `json:"db"`
	URL        string        `json:"url"`
	Timeout    time.Duration `json:"timeout"`
	MaxConns   int           `json:"max_connections"`
	ListingTTL time.Duration `json:"listing_ttl"`
}

type JWTConfig struct {
	Secret    string        `json:"secret"`
	ExpiresIn time.Duration `json:"expires_in"`
	Issuer    string        `json:"issuer"`
}

type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

type SecurityConfig struct {
	// AuthRequired закрывает CRM маршруты для запросов без валидного токена
	AuthRequired    bool          `json:"auth_required"`
	LoginRateLimit  int           `json:"login_rate_limit"`
	LoginRateWindow time.Duration `json:"login_rate_window"`
	RequestTimeout  time.Duration `json:"request_timeout"`
	ResponseTimeout time.Duration `json:"response_timeout"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type TelegramConfig struct {
	BotToken string `json:"bot_token"`
	Enabled  bool   `json:"enabled"`
}

// MigrationConfig настройки нормализации дат
type MigrationConfig struct {
	Schedule   string   `json:"schedule"`
	Collection string   `json:"collection"`
	DateFields []string `json:"date_fields"`
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() (*Config, error) {
	// Загружаем .env файл если он существует
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	config := &Config{
		App: AppConfigStruct{
			Env:     getEnv("APP_ENV", "development"),
			Port:    getEnv("APP_PORT", "8080"),
			Host:    getEnv("APP_HOST", "0.0.0.0"),
			Version: getEnv("API_VERSION", "v1"),
			Debug:   getEnvBool("DEBUG_MODE", false),
		},
		Database: DatabaseConfig{
			URI:                    getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Name:                   getEnv("MONGO_DB", "realty"),
			MaxPoolSize:            uint64(getEnvInt("MONGO_MAX_POOL_SIZE", 10)),
			MinPoolSize:            uint64(getEnvInt("MONGO_MIN_POOL_SIZE", 2)),
			MaxConnIdleTime:        getEnvDuration("MONGO_MAX_IDLE_TIME", 30*time.Second),
			ServerSelectionTimeout: getEnvDuration("MONGO_SERVER_SELECTION_TIMEOUT", 5*time.Second),
			SocketTimeout:          getEnvDuration("MONGO_SOCKET_TIMEOUT", 45*time.Second),
			PingTimeout:            getEnvDuration("MONGO_PING_TIMEOUT", 2*time.Second),
		},
		Redis: RedisConfig{
			Host:       getEnv("REDIS_HOST", "localhost"),
			Port:       getEnv("REDIS_PORT", "6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvInt("REDIS_DB", 0),
			URL:        getEnv("REDIS_URL", ""),
			Timeout:    getEnvDuration("REDIS_TIMEOUT", 5*time.Second),
			MaxConns:   getEnvInt("REDIS_MAX_CONNECTIONS", 10),
			ListingTTL: getEnvDuration("LISTING_CACHE_TTL", 2*time.Minute),
		},
		JWT: JWTConfig{
			Secret:    getEnv("JWT_SECRET", ""),
			ExpiresIn: getEnvDuration("JWT_EXPIRES_IN", 24*time.Hour),
			Issuer:    getEnv("JWT_ISSUER", "realty-crm"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods:   getEnvSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders:   getEnvSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin", "X-Request-ID"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvInt("CORS_MAX_AGE", 86400),
		},
		Security: SecurityConfig{
			AuthRequired:    getEnvBool("AUTH_REQUIRED", false),
			LoginRateLimit:  getEnvInt("LOGIN_RATE_LIMIT", 5),
			LoginRateWindow: getEnvDuration("LOGIN_RATE_WINDOW", 1*time.Minute),
			RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
			ResponseTimeout: getEnvDuration("RESPONSE_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			Enabled:  getEnvBool("TELEGRAM_ENABLED", false),
		},
		Migration: MigrationConfig{
			Schedule:   getEnv("MIGRATION_SCHEDULE", ""),
			Collection: getEnv("MIGRATION_COLLECTION", "calendar_events"),
			DateFields: getEnvSlice("MIGRATION_DATE_FIELDS", []string{"start_date", "end_date"}),
		},
	}

	// Валидация критически важных настроек
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	// Проверяем обязательные поля для продакшена
	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
		}
	}

	// Проверяем в любом окружении
	if c.Database.URI == "" {
		return fmt.Errorf("MONGO_URI cannot be empty")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("MONGO_DB cannot be empty")
	}
	if c.Database.MinPoolSize > c.Database.MaxPoolSize {
		return fmt.Errorf("MONGO_MIN_POOL_SIZE (%d) exceeds MONGO_MAX_POOL_SIZE (%d)",
			c.Database.MinPoolSize, c.Database.MaxPoolSize)
	}
	if c.Security.AuthRequired && c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_REQUIRED is enabled")
	}

	return nil
}

// Вспомогательные функции для получения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Printf("Warning: Invalid integer value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		log.Printf("Warning: Invalid boolean value for %s: %s, using default: %t", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: Invalid duration value for %s: %s, using default: %v", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// IsDevelopment проверяет, запущено ли приложение в режиме разработки
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction проверяет, запущено ли приложение в продакшене
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// GetRedisAddr возвращает адрес Redis
func (c *Config) GetRedisAddr() string {
	if c.Redis.URL != "" {
		return c.Redis.URL
	}
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// LogConfig выводит конфигурацию в лог (без секретных данных)
func (c *Config) LogConfig() {
	log.Printf("=== Application Configuration ===")
	log.Printf("Environment: %s", c.App.Env)
	log.Printf("Port: %s", c.App.Port)
	log.Printf("Database: %s (pool %d..%d)", c.Database.Name, c.Database.MinPoolSize, c.Database.MaxPoolSize)
	log.Printf("Redis Host: %s", c.GetRedisAddr())
	log.Printf("JWT Issuer: %s", c.JWT.Issuer)
	log.Printf("Auth Required: %t", c.Security.AuthRequired)
	log.Printf("Telegram Enabled: %t", c.Telegram.Enabled)
	log.Printf("Migration Schedule: %q", c.Migration.Schedule)
	log.Printf("Log Level: %s", c.Logging.Level)
	log.Printf("Debug Mode: %t", c.App.Debug)
	log.Printf("================================")
}
