package testutils

import (
	"io"
	"testing"

	"backend_realty/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// Секрет подписи токенов в тестах
const TestJWTSecret = "test-secret-key-for-testing-only-0123456789"

// SetupTestConfig настраивает тестовую конфигурацию
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	t.Setenv("APP_ENV", "test")
	t.Setenv("MONGO_URI", "mongodb://127.0.0.1:1")
	t.Setenv("MONGO_DB", "realty_test")
	t.Setenv("JWT_SECRET", TestJWTSecret)
	t.Setenv("TELEGRAM_ENABLED", "false")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	return cfg
}

// NewTestLogger возвращает логгер, который ничего не выводит
func NewTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
