package api

import (
	"net/http"
	"time"

	"backend_realty/middleware"
	"backend_realty/models"
	"backend_realty/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthHandler вход сотрудников в CRM
type AuthHandler struct {
	admins *services.AdminService
	tokens *middleware.TokenIssuer
	logger *logrus.Logger
}

// NewAuthHandler создает новый экземпляр AuthHandler
func NewAuthHandler(admins *services.AdminService, tokens *middleware.TokenIssuer, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{admins: admins, tokens: tokens, logger: logger}
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Admin     *models.Admin `json:"admin"`
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	if !h.tokens.Enabled() {
		respondMessage(c, http.StatusServiceUnavailable, "Авторизация не настроена")
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "Укажите логин и пароль")
		return
	}

	admin, err := h.admins.Authenticate(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(admin)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"admin_id":   admin.ID.Hex(),
		"role":       admin.Role,
		"request_id": middleware.GetRequestID(c),
	}).Info("admin logged in")

	respondSuccess(c, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Admin:     admin,
	})
}

// Me GET /api/admin/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		respondMessage(c, http.StatusUnauthorized, "Требуется авторизация")
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"admin_id": claims.AdminID,
		"role":     claims.Role,
		"name":     claims.Name,
		"email":    claims.Email,
	})
}
