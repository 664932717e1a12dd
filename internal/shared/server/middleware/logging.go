package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"content-dumper/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      status,
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"user_id":     UserIDFromContext(c),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if domain := c.GetString("contentDomain"); domain != "" {
			fields["domain"] = domain
		}
		if id := c.GetString("contentId"); id != "" {
			fields["content_id"] = id
		}
		if transition := c.GetString("statusTransition"); transition != "" {
			fields["status_transition"] = transition
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		telemetry.Info("request.complete", fields)
	}
}
