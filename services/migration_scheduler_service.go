package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Предельное время одного запуска миграции
const scheduledMigrationTimeout = 10 * time.Minute

// dateNormalizer часть MigrationService, которую вызывает планировщик
type dateNormalizer interface {
	NormalizeDateFields(ctx context.Context, collection string, fields []string) (*MigrationResult, error)
}

// MigrationSchedulerService запускает нормализацию дат по cron-расписанию
type MigrationSchedulerService struct {
	migrations dateNormalizer
	collection string
	fields     []string
	cron       *cron.Cron
	logger     *logrus.Logger

	mu      sync.Mutex
	running bool
	last    *MigrationResult
}

// NewMigrationSchedulerService создает новый экземпляр MigrationSchedulerService
func NewMigrationSchedulerService(migrations dateNormalizer, collection string, fields []string, logger *logrus.Logger) *MigrationSchedulerService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MigrationSchedulerService{
		migrations: migrations,
		collection: collection,
		fields:     fields,
		cron:       cron.New(cron.WithSeconds()),
		logger:     logger,
	}
}

// Start регистрирует задачу с выражением schedule (с секундами) и запускает планировщик
func (s *MigrationSchedulerService) Start(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("empty migration schedule")
	}

	if _, err := s.cron.AddFunc(schedule, s.runScheduled); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"schedule":   schedule,
		"collection": s.collection,
	}).Info("migration scheduler started")
	return nil
}

// Stop останавливает планировщик и ждет завершения текущего запуска
func (s *MigrationSchedulerService) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("migration scheduler stopped")
}

// NextRun время следующего запуска, nil если задач нет
func (s *MigrationSchedulerService) NextRun() *time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

// LastResult итог последнего завершенного запуска
func (s *MigrationSchedulerService) LastResult() *MigrationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *MigrationSchedulerService) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), scheduledMigrationTimeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.WithError(err).Error("scheduled date normalization failed")
	}
}

// ErrMigrationRunning миграция уже выполняется
var ErrMigrationRunning = fmt.Errorf("migration already running")

// RunOnce выполняет нормализацию, не допуская параллельных запусков
func (s *MigrationSchedulerService) RunOnce(ctx context.Context) (*MigrationResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrMigrationRunning
	}
	s.running = true
	s.mu.Unlock()

	result, err := s.migrations.NormalizeDateFields(ctx, s.collection, s.fields)

	s.mu.Lock()
	s.running = false
	if err == nil {
		s.last = result
	}
	s.mu.Unlock()

	return result, err
}
