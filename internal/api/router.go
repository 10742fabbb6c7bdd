// Package api exposes simulation runs over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"sandquake/internal/config"
)

// SetupRouter builds the gin engine. When a JWT secret is configured every
// /api/v1 route requires a bearer token.
func SetupRouter(cfg *config.Config, h *RunHandler, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.MaxMultipartMemory = cfg.Server.MaxUploadMB << 20
	r.Use(gin.Recovery(), Logger(logger), CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "sandquake API is running",
		})
	})

	api := r.Group("/api/v1")
	if cfg.Server.JWTSecret != "" {
		api.Use(Auth(cfg.Server.JWTSecret))
	}
	{
		runs := api.Group("/runs")
		{
			runs.GET("", h.ListRuns)
			runs.POST("", h.CreateRun)
			runs.GET("/:id", h.GetRun)
			runs.DELETE("/:id", h.DeleteRun)
			runs.GET("/:id/frames/:idx", h.GetFrame)
			runs.GET("/:id/trace", h.GetTrace)
		}
	}
	return r
}
