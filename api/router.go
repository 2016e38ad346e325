package api

import (
	"context"
	"net/http"
	"time"

	"backend_realty/config"
	"backend_realty/middleware"
	"backend_realty/models"
	"backend_realty/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Pinger проверка доступности базы данных
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies зависимости HTTP слоя
type Dependencies struct {
	Config *config.Config
	Logger *logrus.Logger
	DB     Pinger
	Redis  *redis.Client
	Tokens *middleware.TokenIssuer

	Properties *services.PropertyService
	Clients    *services.ClientService
	Deals      *services.DealService
	Calendar   *services.CalendarService
	Admins     *services.AdminService
	Reports    *services.ReportService
	Migrations *services.MigrationSchedulerService
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	result := cors.Config{
		AllowMethods:     cfg.AllowedMethods,
		AllowHeaders:     cfg.AllowedHeaders,
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           time.Duration(cfg.MaxAge) * time.Second,
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			result.AllowAllOrigins = true
			result.AllowCredentials = false
			return result
		}
	}
	result.AllowOrigins = cfg.AllowedOrigins
	return result
}

// requestTimeout ограничивает время обработки запроса через контекст
func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// NewRouter собирает gin.Engine со всеми маршрутами
func NewRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.New(corsConfig(cfg.CORS)))
	r.Use(requestTimeout(cfg.Security.RequestTimeout))

	properties := NewPropertyHandler(deps.Properties, deps.Admins, logger)
	clients := NewClientHandler(deps.Clients, deps.Admins, logger)
	deals := NewDealHandler(deps.Deals, deps.Admins, logger)
	calendar := NewCalendarHandler(deps.Calendar, deps.Admins, logger)
	admins := NewAdminHandler(deps.Admins, logger)
	auth := NewAuthHandler(deps.Admins, deps.Tokens, logger)
	reports := NewReportHandler(deps.Reports, logger)
	migrations := NewMigrationHandler(deps.Migrations, logger)

	// Проверка доступности
	r.GET("/ping", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Database.PingTimeout)
		defer cancel()

		if err := deps.DB.Ping(ctx); err != nil {
			logger.WithError(err).Error("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "error",
				"error":    "База данных недоступна",
				"database": "disconnected",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "success",
			"message":  "pong",
			"database": "connected",
		})
	})

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	{
		authGroup.POST("/login",
			middleware.LoginRateLimit(deps.Redis, cfg.Security.LoginRateLimit, cfg.Security.LoginRateWindow, logger),
			auth.Login)
	}

	// Публичный сайт
	public := apiGroup.Group("/public")
	{
		public.GET("/properties", properties.ListPublic)
		public.GET("/properties/:id", properties.GetPublic)
		public.POST("/properties/:id/view", properties.RegisterView)
	}

	// CRM
	authMiddleware := middleware.NewAuthMiddleware(deps.Tokens, cfg.Security.AuthRequired)
	managers := middleware.RequireRole(models.RoleOwner, models.RoleAdmin)

	admin := apiGroup.Group("/admin")
	admin.Use(authMiddleware.CRM())
	{
		admin.GET("/me", auth.Me)

		admin.GET("/properties", properties.List)
		admin.POST("/properties", properties.Create)
		admin.POST("/properties/reassign", managers, properties.Reassign)
		admin.GET("/properties/:id", properties.Get)
		admin.PUT("/properties/:id", properties.Update)
		admin.DELETE("/properties/:id", properties.Delete)
		admin.PUT("/properties/:id/restore", properties.Restore)

		admin.GET("/reports/properties.xlsx", reports.ExportProperties)
		admin.GET("/reports/properties/:id/sheet.pdf", reports.PropertySheet)

		admin.GET("/clients", clients.List)
		admin.POST("/clients", clients.Create)
		admin.GET("/clients/:id", clients.Get)
		admin.PUT("/clients/:id", clients.Update)
		admin.DELETE("/clients/:id", clients.Delete)

		admin.GET("/deals", deals.List)
		admin.POST("/deals", deals.Create)
		admin.GET("/deals/:id", deals.Get)
		admin.PUT("/deals/:id/status", deals.UpdateStatus)
		admin.POST("/deals/:id/events", deals.AppendEvent)

		admin.GET("/calendar-events", calendar.List)
		admin.POST("/calendar-events", calendar.Create)

		admin.GET("/admins", managers, admins.List)
		admin.POST("/admins", managers, admins.Create)
		admin.GET("/admins/:id", managers, admins.Get)

		admin.GET("/migrations/calendar-dates", managers, migrations.Status)
		admin.POST("/migrations/calendar-dates", managers, migrations.Run)
	}

	return r
}
