package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"nooveria/internal/auth"
	"nooveria/internal/logger"
)

// RequestLoggingMiddleware logs one line per request. Bodies are never logged:
// charge requests may carry chat metadata.
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if userID, ok := auth.GetUserID(c); ok {
			fields = append(fields, "user_id", userID)
		}

		if status >= 500 {
			logger.Warn("HTTP request failed", fields...)
			return
		}
		logger.Info("HTTP request", fields...)
	}
}
