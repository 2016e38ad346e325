package api

import (
	"net/http"
	"strings"
	"time"

	"backend_realty/middleware"
	"backend_realty/models"
	"backend_realty/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CalendarHandler обработчики календаря агентов
type CalendarHandler struct {
	calendar *services.CalendarService
	authors  authorResolver
	logger   *logrus.Logger
}

// NewCalendarHandler создает новый экземпляр CalendarHandler
func NewCalendarHandler(calendar *services.CalendarService, admins *services.AdminService, logger *logrus.Logger) *CalendarHandler {
	return &CalendarHandler{
		calendar: calendar,
		authors:  newAuthorResolver(admins, logger),
		logger:   logger,
	}
}

// queryDate читает дату в формате RFC3339 или YYYY-MM-DD
func queryDate(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	value, ok := services.ParseDate(raw)
	if !ok {
		return nil, services.NewValidationError(key, "некорректная дата")
	}
	return &value, nil
}

// List GET /api/admin/calendar-events?from=...&to=...
func (h *CalendarHandler) List(c *gin.Context) {
	var (
		rng services.CalendarRange
		err error
	)
	if rng.From, err = queryDate(c, "from"); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if rng.To, err = queryDate(c, "to"); err != nil {
		respondError(c, h.logger, err)
		return
	}

	events, err := h.calendar.List(c.Request.Context(), middleware.ResolveScope(c), rng)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, events)
}

// Create POST /api/admin/calendar-events
func (h *CalendarHandler) Create(c *gin.Context) {
	var event models.CalendarEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		respondMessage(c, http.StatusBadRequest, "Некорректный формат данных: "+err.Error())
		return
	}

	if err := h.calendar.Create(c.Request.Context(), &event, h.authors.resolve(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusCreated, event)
}
