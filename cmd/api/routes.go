package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/zoheir79/whispey-sub004/internal/auth"
	"github.com/zoheir79/whispey-sub004/internal/guard"
	"github.com/zoheir79/whispey-sub004/internal/httpapi"
	"github.com/zoheir79/whispey-sub004/internal/metrics"
	"github.com/zoheir79/whispey-sub004/pkg/logger"

	"github.com/gin-gonic/gin"
)

// newRouter wires middleware and routes.
// Keep this file free of business logic. Handlers delegate to internal modules.
func newRouter(log *slog.Logger, m *metrics.Metrics, v *auth.Verifier, h *httpapi.Handlers, ready func(context.Context) error) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(m.Middleware())
	r.Use(guard.New(v, m).Middleware())

	// public
	r.GET("/healthz", func(c *gin.Context) {
		if ready != nil {
			if err := ready(c.Request.Context()); err != nil {
				logger.FromGin(c).Warn("readiness check failed", "err", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	h.Mount(r.Group("/api"))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Not found"})
	})
	return r
}
