// Package middleware provides shared Gin middleware for the HTTP server.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"advisorhub_backend/platform/logger"
)

// RequestLogger emits one structured log line per request.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.HTTPRequest(
			c.Request.Method,
			c.FullPath(),
			c.Writer.Status(),
			float64(time.Since(start).Microseconds())/1000.0,
			c.ClientIP(),
		)
	}
}
