package api

import (
	"net/http"
	"strings"

	"backend_realty/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AdminHandler управление сотрудниками CRM
type AdminHandler struct {
	admins *services.AdminService
	logger *logrus.Logger
}

// NewAdminHandler создает новый экземпляр AdminHandler
func NewAdminHandler(admins *services.AdminService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{admins: admins, logger: logger}
}

// List GET /api/admin/admins?role=agent
func (h *AdminHandler) List(c *gin.Context) {
	admins, err := h.admins.List(c.Request.Context(), strings.TrimSpace(c.Query("role")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, admins)
}

// Get GET /api/admin/admins/:id
func (h *AdminHandler) Get(c *gin.Context) {
	admin, err := h.admins.GetByHex(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, admin)
}

// Create POST /api/admin/admins
func (h *AdminHandler) Create(c *gin.Context) {
	var input services.AdminInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondMessage(c, http.StatusBadRequest, "Некорректный формат данных: "+err.Error())
		return
	}

	admin, err := h.admins.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusCreated, admin)
}
