package config

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger создает logrus логгер по настройкам логирования
func (c *Config) NewLogger() *logrus.Logger {
	return NewLogger(c.Logging)
}

// NewLogger создает logrus логгер с заданным уровнем и форматом (json|text)
func NewLogger(cfg LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}
