package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jengzang/gobike-dashboard/internal/config"
	"github.com/jengzang/gobike-dashboard/internal/handler"
	"github.com/jengzang/gobike-dashboard/internal/middleware"
	"github.com/jengzang/gobike-dashboard/internal/service"
	"github.com/jengzang/gobike-dashboard/pkg/response"
)

// Handlers groups the HTTP handlers served by the router
type Handlers struct {
	Dashboard *handler.DashboardHandler
	Stations  *handler.StationHandler
	Dataset   *handler.DatasetHandler
	WS        *handler.WSHandler
}

// NewHandlers wires every handler to the dashboard service
func NewHandlers(svc *service.DashboardService) *Handlers {
	return &Handlers{
		Dashboard: handler.NewDashboardHandler(svc),
		Stations:  handler.NewStationHandler(svc),
		Dataset:   handler.NewDatasetHandler(svc),
		WS:        handler.NewWSHandler(svc),
	}
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h *Handlers, limiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger("/health", "/metrics"))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Bikeshare dashboard API is running",
		})
	})

	// Prometheus 指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API 路由组
	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(limiter))
	{
		// 看板
		dashboard := api.Group("/dashboard")
		{
			dashboard.GET("", h.Dashboard.GetDashboard)
			dashboard.GET("/options", h.Dashboard.GetOptions)
			dashboard.GET("/export", h.Dashboard.Export)
			dashboard.GET("/ws", h.WS.Serve)
		}

		// 站点搜索
		api.GET("/stations/search", h.Stations.Search)

		// 数据集
		api.GET("/dataset", h.Dataset.GetInfo)

		// 管理接口, 仅在配置 JWT_SECRET 时开放
		if cfg.AdminEnabled() {
			admin := api.Group("/admin")
			admin.Use(middleware.RequireRole(cfg.JWTSecret, middleware.RoleAdmin))
			{
				admin.POST("/dataset/reload", h.Dataset.Reload)
			}
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Route not found")
	})

	return r
}
