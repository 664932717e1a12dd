package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"content-dumper/internal/shared/apperr"
	"content-dumper/internal/shared/telemetry"
)

// ActionResult is returned by every dumper mutation.
type ActionResult struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Success writes a successful ActionResult.
func Success(c *gin.Context, status int, message string, data any) {
	c.JSON(status, ActionResult{Success: true, Message: message, Data: data})
}

// Failure converts err into an ActionResult with the mapped status code.
// Unexpected errors are logged and never leak their cause.
func Failure(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		fields := map[string]any{
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"request_id": c.GetString("requestId"),
			"err":        err,
		}
		var unx *apperr.UnexpectedError
		if errors.As(err, &unx) {
			fields["op"] = unx.Op
		}
		if userID := c.GetString("userId"); userID != "" {
			fields["user_id"] = userID
		}
		telemetry.Error("action.failed", fields)
	}
	c.AbortWithStatusJSON(status, ActionResult{Success: false, Message: apperr.Message(err)})
}

// Denied writes a permission failure as an unsuccessful ActionResult.
func Denied(c *gin.Context, status int, message string) {
	telemetry.Warn("http.denied", map[string]any{
		"status":     status,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
		"user_id":    c.GetString("userId"),
	})
	c.AbortWithStatusJSON(status, ActionResult{Success: false, Message: message})
}
