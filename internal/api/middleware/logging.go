package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"zawaj/backend/internal/api/response"
	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/logger"

	"github.com/gin-gonic/gin"
)

// Logging writes one line per request with its status and latency.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Str("user_id", Session(c).UserID).
			Int("body_size", c.Writer.Size()).
			Msg("request")
	}
}

// Recovery turns a panic into a logged 500 envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")
				response.Error(c, apperr.Internal(fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}
