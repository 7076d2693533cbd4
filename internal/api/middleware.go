// internal/api/middleware.go
package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "blood-alert-workers/internal/common/errors"
	"blood-alert-workers/internal/common/logger"
)

// RequestLogger logs one line per request through the service logger.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"clientIP": c.ClientIP(),
		}
		switch {
		case c.Writer.Status() >= 500:
			log.Error("http request", fields)
		case c.Writer.Status() >= 400:
			log.Warn("http request", fields)
		default:
			log.Debug("http request", fields)
		}
	}
}

// Recovery converts a handler panic into an INTERNAL_ERROR response.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic in http handler", map[string]interface{}{
					"path":  c.Request.URL.Path,
					"panic": fmt.Sprint(r),
				})
				respondError(c, apperrors.AsStandard(fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}
