package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs each request with the request_id. Health and metrics
// probes log at debug level.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := GetRequestLogger(c).WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    SanitizePath(c.Request.URL.Path),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		switch p := c.FullPath(); {
		case p == "/api/v1/health" || p == "/metrics":
			entry.Debug("handled request")
		case c.Writer.Status() >= 500:
			entry.Error("handled request")
		default:
			entry.Info("handled request")
		}
	}
}
