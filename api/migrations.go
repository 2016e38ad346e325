package api

import (
	"net/http"

	"backend_realty/middleware"
	"backend_realty/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MigrationHandler ручной запуск и состояние нормализации дат
type MigrationHandler struct {
	scheduler *services.MigrationSchedulerService
	logger    *logrus.Logger
}

// NewMigrationHandler создает новый экземпляр MigrationHandler
func NewMigrationHandler(scheduler *services.MigrationSchedulerService, logger *logrus.Logger) *MigrationHandler {
	return &MigrationHandler{scheduler: scheduler, logger: logger}
}

// Run POST /api/admin/migrations/calendar-dates
func (h *MigrationHandler) Run(c *gin.Context) {
	result, err := h.scheduler.RunOnce(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"collection": result.Collection,
		"migrated":   result.Migrated,
		"skipped":    result.Skipped,
		"request_id": middleware.GetRequestID(c),
	}).Info("date normalization triggered manually")

	respondSuccess(c, http.StatusOK, result)
}

// Status GET /api/admin/migrations/calendar-dates
func (h *MigrationHandler) Status(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{
		"next_run":    h.scheduler.NextRun(),
		"last_result": h.scheduler.LastResult(),
	})
}
