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

// ClientHandler обработчики клиентов CRM
type ClientHandler struct {
	clients *services.ClientService
	authors authorResolver
	logger  *logrus.Logger
}

// NewClientHandler создает новый экземпляр ClientHandler
func NewClientHandler(clients *services.ClientService, admins *services.AdminService, logger *logrus.Logger) *ClientHandler {
	return &ClientHandler{
		clients: clients,
		authors: newAuthorResolver(admins, logger),
		logger:  logger,
	}
}

// List GET /api/admin/clients?type=buyer&search=...
func (h *ClientHandler) List(c *gin.Context) {
	filter := services.ClientFilter{
		Type:   strings.TrimSpace(c.Query("type")),
		Search: strings.TrimSpace(c.Query("search")),
	}

	clients, err := h.clients.List(c.Request.Context(), middleware.ResolveScope(c), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, clients)
}

// Get GET /api/admin/clients/:id
func (h *ClientHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	client, err := h.clients.Get(c.Request.Context(), middleware.ResolveScope(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, client)
}

// Create POST /api/admin/clients
func (h *ClientHandler) Create(c *gin.Context) {
	var client models.Client
	if err := c.ShouldBindJSON(&client); err != nil {
		respondMessage(c, http.StatusBadRequest, "Некорректный формат данных: "+err.Error())
		return
	}

	if err := h.clients.Create(c.Request.Context(), &client, h.authors.resolve(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusCreated, client)
}

// Update PUT /api/admin/clients/:id
func (h *ClientHandler) Update(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil || len(patch) == 0 {
		respondMessage(c, http.StatusBadRequest, "Нет данных для обновления")
		return
	}

	scope := middleware.ResolveScope(c)
	if err := h.clients.Update(c.Request.Context(), scope, id, patch); err != nil {
		respondError(c, h.logger, err)
		return
	}

	client, err := h.clients.Get(c.Request.Context(), scope, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, client)
}

// Delete DELETE /api/admin/clients/:id
func (h *ClientHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.clients.Delete(c.Request.Context(), middleware.ResolveScope(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"id": id.Hex()})
}
