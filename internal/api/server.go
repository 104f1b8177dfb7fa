// Package api exposes the reconciliation reports over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"catalogsync/internal/observability"
)

// NewServer creates the gin engine with every route configured.
func NewServer(handler *Handler, log *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(requestLogger(log))
	r.Use(gin.Recovery())

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/healthz", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	api := r.Group("/api")
	{
		api.GET("/novelty", handler.GetNovelty)
		api.GET("/summary", handler.GetSummary)
		api.GET("/catalogs/:catalog", handler.GetCatalog)
		api.GET("/export/:kind", handler.Export)
		api.POST("/refresh", handler.Refresh)
		api.GET("/runs", handler.ListRuns)
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}

		log.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// NewHTTPServer wraps engine in an http.Server listening on addr.
func NewHTTPServer(addr string, engine *gin.Engine) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
