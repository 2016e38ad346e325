package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend_realty/testutils"

	"github.com/gin-gonic/gin"
	redis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

func setupRateLimitRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/login", handler, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
	return router
}

func TestRateLimit_WithoutRedisPassesThrough(t *testing.T) {
	router := setupRateLimitRouter(LoginRateLimit(nil, 1, time.Minute, testutils.NewTestLogger()))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_RedisFailureFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	router := setupRateLimitRouter(RateLimit(client, RateLimitConfig{Requests: 1, Window: time.Minute}, testutils.NewTestLogger()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDefaultKeyGenerator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "10.1.2.3:5555"

	assert.Equal(t, "10.1.2.3", DefaultKeyGenerator(c))
}
