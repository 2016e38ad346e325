package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend_realty/database"
	"backend_realty/services"
	"backend_realty/testutils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", services.NewValidationError("title", "обязательное поле"), http.StatusBadRequest, "title: обязательное поле"},
		{"not found", fmt.Errorf("wrapped: %w", services.ErrNotFound), http.StatusNotFound, "Запись не найдена"},
		{"credentials", services.ErrInvalidCredentials, http.StatusUnauthorized, "Неверный логин или пароль"},
		{"migration running", services.ErrMigrationRunning, http.StatusConflict, "Миграция уже выполняется"},
		{"connectivity", &database.ConnectivityError{Op: "ping", Err: errors.New("timeout")}, http.StatusServiceUnavailable, "База данных недоступна"},
		{"unknown", errors.New("disk full on db-3"), http.StatusInternalServerError, "Внутренняя ошибка сервера"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, testutils.NewTestLogger(), tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.message, resp.Error)
		})
	}
}

func TestParsePropertyFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?transaction_type=rent&city=Astana&min_price=100&max_price=2500.5&featured=1", nil)

	filter, err := parsePropertyFilter(c)
	require.NoError(t, err)

	assert.Equal(t, "rent", filter.TransactionType)
	assert.Equal(t, "Astana", filter.City)
	assert.True(t, filter.FeaturedOnly)
	require.NotNil(t, filter.MinPrice)
	require.NotNil(t, filter.MaxPrice)
	assert.Equal(t, 100.0, *filter.MinPrice)
	assert.Equal(t, 2500.5, *filter.MaxPrice)
}

func TestParseAdminListing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	build := func(query string) (services.Scope, services.ScopeOptions) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/"+query, nil)
		return parseAdminListing(c)
	}

	scope, opts := build("?role=agent&admin_id=a1&agent_id=a2&showAll=true")
	assert.Equal(t, services.Scope{Role: "agent", AdminID: "a1"}, scope)
	assert.Equal(t, services.ScopeOptions{ShowArchived: true}, opts)

	scope, opts = build("?role=owner&admin_id=o1&agent_id=a2")
	assert.Equal(t, "owner", scope.Role)
	assert.Equal(t, services.ScopeOptions{AgentID: "a2"}, opts)
}
