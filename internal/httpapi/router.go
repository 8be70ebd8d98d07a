// Package httpapi exposes the chat service over HTTP.
package httpapi

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with all routes registered.
func NewRouter(api *API) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(api.logger))
	RegisterRoutes(router, api)
	return router
}

// RegisterRoutes registers all the routes of the chat API.
func RegisterRoutes(router *gin.Engine, api *API) {
	router.GET("/healthz", api.HealthHandler)

	v := router.Group("/api")
	{
		v.POST("/documents", api.UploadHandler)
		v.POST("/ask", api.AskHandler)
		v.POST("/ask/stream", api.AskStreamHandler)
		v.GET("/session", api.SessionHandler)
		v.GET("/history", api.HistoryHandler)
		v.DELETE("/history", api.ClearHistoryHandler)
		v.DELETE("/history/:index", api.DeleteHistoryHandler)
		v.GET("/history/export", api.ExportHandler)
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
