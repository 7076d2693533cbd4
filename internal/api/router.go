// internal/api/router.go
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"blood-alert-workers/internal/common/database"
	"blood-alert-workers/internal/common/logger"
)

const readinessTimeout = 3 * time.Second

// NewRouter wires the blood request API, health probes and the Prometheus endpoint.
func NewRouter(h *Handler, serviceName string, deps []database.Pinger, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(log))
	r.Use(RequestLogger(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})
	r.GET("/ready", readiness(deps))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		requests := api.Group("/blood-requests")
		{
			requests.POST("", h.SubmitRequest)
			requests.GET("", h.ListRequests)
			requests.GET("/:id", h.GetRequest)
			requests.PATCH("/:id/status", h.UpdateStatus)
		}
		api.POST("/trigger-alert", h.TriggerAlert)
		api.GET("/donors", h.ListDonors)
	}

	return r
}

func readiness(deps []database.Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		failures := database.CheckAll(ctx, readinessTimeout, deps...)
		if len(failures) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failures": failures})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

// NewServer wraps the router in an http.Server with the service timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
