package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"content-dumper/internal/shared/telemetry"
)

// Error aborts with an unsuccessful ActionResult carrying a machine-readable
// code. It is used outside the action template: auth flows, middleware and
// panics.
func Error(c *gin.Context, status int, code, message string) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}
	c.AbortWithStatusJSON(status, ActionResult{Success: false, Code: code, Message: message})
}

// OK writes a 200 JSON body. Listings use it with pagination.Response.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
