package router

import (
	"luckyDraw/internal/rest"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupLotteryRoutes(api *echo.Group, handler *rest.LotteryHandler) {
	lottery := api.Group("/lottery")

	lottery.POST("/events/:id/draw", handler.Draw)
	lottery.GET("/events/:id/active", handler.EventActive)
	lottery.GET("/users/:uid/wins", handler.UserWinRecords)
}

// SetupAdminRoutes mounts the management endpoints behind mw.
func SetupAdminRoutes(api *echo.Group, handler *rest.AdminHandler, mw ...echo.MiddlewareFunc) {
	admin := api.Group("/admin/events", mw...)

	admin.GET("", handler.GetAllEvents)
	admin.PUT("/:id", handler.UpdateEvent)
	admin.PUT("/:id/prizes/:pid/rate", handler.UpdatePrizeRate)
	admin.GET("/:id/status", handler.GetStatus)
	admin.POST("/:id/init", handler.InitStock)
	admin.POST("/:id/refresh", handler.RefreshCache)
	admin.DELETE("/:id/cache", handler.ClearCache)
	admin.POST("/:id/sync", handler.SyncEvent)
	admin.POST("/:id/users/:uid/sync", handler.SyncUserQuota)
	admin.GET("/:id/sync-history", handler.SyncHistory)
}

func SetupOpsRoutes(e *echo.Echo, health *rest.HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
