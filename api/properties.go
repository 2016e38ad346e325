package api

import (
	"encoding/json"
	"net/http"

	"backend_realty/middleware"
	"backend_realty/models"
	"backend_realty/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PropertyHandler обработчики объектов недвижимости
type PropertyHandler struct {
	properties *services.PropertyService
	admins     *services.AdminService
	authors    authorResolver
	logger     *logrus.Logger
}

// NewPropertyHandler создает новый экземпляр PropertyHandler
func NewPropertyHandler(properties *services.PropertyService, admins *services.AdminService, logger *logrus.Logger) *PropertyHandler {
	return &PropertyHandler{
		properties: properties,
		admins:     admins,
		authors:    newAuthorResolver(admins, logger),
		logger:     logger,
	}
}

// ListPublic GET /api/public/properties
func (h *PropertyHandler) ListPublic(c *gin.Context) {
	filter, err := parsePropertyFilter(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	items, err := h.properties.ListPublic(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, items)
}

// GetPublic GET /api/public/properties/:id
func (h *PropertyHandler) GetPublic(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	property, err := h.properties.GetActive(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, services.ToPublicShape(property))
}

// RegisterView POST /api/public/properties/:id/view
func (h *PropertyHandler) RegisterView(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.properties.IncrementViewCount(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"id": id.Hex()})
}

// List GET /api/admin/properties
func (h *PropertyHandler) List(c *gin.Context) {
	scope, opts := parseAdminListing(c)

	filter, err := parsePropertyFilter(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	page, err := parseListOptions(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.properties.List(c.Request.Context(), scope, opts, filter, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, result)
}

// Get GET /api/admin/properties/:id
func (h *PropertyHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	property, err := h.properties.Get(c.Request.Context(), middleware.ResolveScope(c), id, queryBool(c, "showArchived"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, property)
}

// Create POST /api/admin/properties
func (h *PropertyHandler) Create(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "Не удалось прочитать тело запроса")
		return
	}
	if err := services.ValidatePropertyPayload(body); err != nil {
		respondError(c, h.logger, err)
		return
	}

	var property models.Property
	if err := json.Unmarshal(body, &property); err != nil {
		respondMessage(c, http.StatusBadRequest, "Некорректный формат данных")
		return
	}

	if err := h.properties.Create(c.Request.Context(), &property, h.authors.resolve(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusCreated, property)
}

// Update PUT /api/admin/properties/:id
func (h *PropertyHandler) Update(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "Не удалось прочитать тело запроса")
		return
	}
	if err := services.ValidatePropertyPayload(body); err != nil {
		respondError(c, h.logger, err)
		return
	}

	var patch map[string]interface{}
	if err := json.Unmarshal(body, &patch); err != nil || len(patch) == 0 {
		respondMessage(c, http.StatusBadRequest, "Нет данных для обновления")
		return
	}

	scope := middleware.ResolveScope(c)
	if err := h.properties.Update(c.Request.Context(), scope, id, patch); err != nil {
		respondError(c, h.logger, err)
		return
	}

	property, err := h.properties.Get(c.Request.Context(), scope, id, true)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, property)
}

// Delete DELETE /api/admin/properties/:id
func (h *PropertyHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.properties.SoftDelete(c.Request.Context(), middleware.ResolveScope(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"id": id.Hex(), "is_active": false})
}

// Restore PUT /api/admin/properties/:id/restore
func (h *PropertyHandler) Restore(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.properties.Restore(c.Request.Context(), middleware.ResolveScope(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"id": id.Hex(), "is_active": true})
}

// reassignRequest тело запроса массовой передачи объектов
type reassignRequest struct {
	PropertyIDs   []string `json:"property_ids"`
	TargetAdminID string   `json:"target_admin_id" binding:"required"`
}

// Reassign POST /api/admin/properties/reassign
func (h *PropertyHandler) Reassign(c *gin.Context) {
	var req reassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "Некорректный формат данных: "+err.Error())
		return
	}

	ids, err := services.ParseObjectIDs(req.PropertyIDs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	target, err := h.admins.GetByHex(c.Request.Context(), req.TargetAdminID)
	if err != nil {
		if services.IsNotFound(err) {
			respondMessage(c, http.StatusBadRequest, "target_admin_id: сотрудник не найден")
			return
		}
		respondError(c, h.logger, err)
		return
	}

	result, err := h.properties.BulkReassignOwner(c.Request.Context(), middleware.ResolveScope(c), ids, target)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, result)
}
