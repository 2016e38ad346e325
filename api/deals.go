package api

import (
	"net/http"
	"strings"

	"backend_realty/middleware"
	"backend_realty/models"
	"backend_realty/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DealHandler обработчики сделок
type DealHandler struct {
	deals   *services.DealService
	authors authorResolver
	logger  *logrus.Logger
}

// NewDealHandler создает новый экземпляр DealHandler
func NewDealHandler(deals *services.DealService, admins *services.AdminService, logger *logrus.Logger) *DealHandler {
	return &DealHandler{
		deals:   deals,
		authors: newAuthorResolver(admins, logger),
		logger:  logger,
	}
}

// List GET /api/admin/deals?status=...
func (h *DealHandler) List(c *gin.Context) {
	deals, err := h.deals.List(c.Request.Context(), middleware.ResolveScope(c), strings.TrimSpace(c.Query("status")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, deals)
}

// Get GET /api/admin/deals/:id
func (h *DealHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	deal, err := h.deals.Get(c.Request.Context(), middleware.ResolveScope(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, deal)
}

// Create POST /api/admin/deals
func (h *DealHandler) Create(c *gin.Context) {
	var deal models.Deal
	if err := c.ShouldBindJSON(&deal); err != nil {
		respondMessage(c, http.StatusBadRequest, "Некорректный формат данных: "+err.Error())
		return
	}

	if err := h.deals.Create(c.Request.Context(), &deal, h.authors.resolve(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusCreated, deal)
}

type dealStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus PUT /api/admin/deals/:id/status
func (h *DealHandler) UpdateStatus(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req dealStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "status: обязательное поле")
		return
	}

	deal, err := h.deals.UpdateStatus(c.Request.Context(), middleware.ResolveScope(c), id, req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, deal)
}

// AppendEvent POST /api/admin/deals/:id/events
// Тело сохраняется как есть, схема события не проверяется.
func (h *DealHandler) AppendEvent(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var event models.DealEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		respondMessage(c, http.StatusBadRequest, "Событие должно быть JSON объектом")
		return
	}

	deal, err := h.deals.AppendEvent(c.Request.Context(), middleware.ResolveScope(c), id, event)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusCreated, deal)
}
