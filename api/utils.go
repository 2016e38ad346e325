package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"backend_realty/database"
	"backend_realty/middleware"
	"backend_realty/models"
	"backend_realty/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// respondSuccess отправляет успешный ответ
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"status": "success",
		"data":   data,
	})
}

// respondMessage отправляет ответ об ошибке с заданным текстом
func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"status": "error",
		"error":  message,
	})
}

// respondError переводит ошибку сервиса в HTTP ответ.
// Текст ошибок драйвера наружу не отдается.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var connErr *database.ConnectivityError

	switch {
	case services.IsValidation(err):
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	case services.IsNotFound(err):
		respondMessage(c, http.StatusNotFound, "Запись не найдена")
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		respondMessage(c, http.StatusUnauthorized, "Неверный логин или пароль")
		return
	case errors.Is(err, services.ErrMigrationRunning):
		respondMessage(c, http.StatusConflict, "Миграция уже выполняется")
		return
	}

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"request_id": middleware.GetRequestID(c),
		"path":       c.FullPath(),
	})

	if errors.As(err, &connErr) || mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		entry.Error("database unavailable")
		respondMessage(c, http.StatusServiceUnavailable, "База данных недоступна")
		return
	}

	entry.Error("request failed")
	respondMessage(c, http.StatusInternalServerError, "Внутренняя ошибка сервера")
}

// parseIDParam разбирает id из пути запроса
func parseIDParam(c *gin.Context) (primitive.ObjectID, error) {
	return services.ParseObjectID(c.Param("id"))
}

// queryBool читает булев параметр, "1" и "true" считаются истиной
func queryBool(c *gin.Context, key string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return err == nil && value
}

// queryFloat читает необязательный числовой параметр
func queryFloat(c *gin.Context, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, services.NewValidationError(key, "ожидается число")
	}
	return &value, nil
}

// queryInt читает необязательный целочисленный параметр
func queryInt(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, services.NewValidationError(key, "ожидается неотрицательное целое")
	}
	return value, nil
}

// parsePropertyFilter собирает фильтр выдачи из параметров запроса
func parsePropertyFilter(c *gin.Context) (services.PropertyFilter, error) {
	filter := services.PropertyFilter{
		TransactionType: strings.TrimSpace(c.Query("transaction_type")),
		PropertyType:    strings.TrimSpace(c.Query("property_type")),
		City:            strings.TrimSpace(c.Query("city")),
		FeaturedOnly:    queryBool(c, "featured"),
	}

	var err error
	if filter.MinPrice, err = queryFloat(c, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryFloat(c, "max_price"); err != nil {
		return filter, err
	}
	return filter, nil
}

// parseListOptions читает page и limit
func parseListOptions(c *gin.Context) (services.ListOptions, error) {
	page, err := queryInt(c, "page")
	if err != nil {
		return services.ListOptions{}, err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return services.ListOptions{}, err
	}
	return services.ListOptions{Page: page, Limit: limit}, nil
}

// parseAdminListing читает область видимости и параметры административной выдачи.
// Для ролей owner и admin параметр agent_id сужает выдачу до записей этого агента.
func parseAdminListing(c *gin.Context) (services.Scope, services.ScopeOptions) {
	scope := middleware.ResolveScope(c)
	opts := services.ScopeOptions{ShowArchived: queryBool(c, "showAll")}
	if !scope.IsAgent() {
		opts.AgentID = strings.TrimSpace(c.Query("agent_id"))
	}
	return scope, opts
}

// authorResolver формирует атрибуцию автора новой записи
type authorResolver struct {
	admins services.AdminDirectory
	logger *logrus.Logger
}

func newAuthorResolver(admins *services.AdminService, logger *logrus.Logger) authorResolver {
	r := authorResolver{logger: logger}
	if admins != nil {
		r.admins = admins
	}
	return r
}

// resolve возвращает снимок профиля вызывающего.
// Если профиль недоступен, используется то, что известно из запроса.
func (r authorResolver) resolve(c *gin.Context) *models.CreatedBy {
	if claims := middleware.GetClaims(c); claims != nil {
		return &models.CreatedBy{
			AdminID: claims.AdminID,
			Name:    claims.Name,
			Email:   claims.Email,
			Role:    claims.Role,
		}
	}

	scope := middleware.ResolveScope(c)
	if scope.AdminID == "" {
		return nil
	}

	if r.admins != nil {
		admin, err := r.admins.GetByHex(c.Request.Context(), scope.AdminID)
		if err == nil {
			snapshot := admin.Snapshot()
			return &snapshot
		}
		if !services.IsNotFound(err) && !services.IsValidation(err) {
			r.logger.WithError(err).Warn("author lookup failed")
		}
	}

	return &models.CreatedBy{AdminID: scope.AdminID, Role: scope.Role}
}
