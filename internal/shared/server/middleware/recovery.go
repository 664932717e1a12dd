package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"content-dumper/internal/shared/server/respond"
	"content-dumper/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 ActionResult. A panic after the
// response was written only gets logged.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			telemetry.L().Error("panic",
				zap.String("request_id", RequestIDFromContext(c)),
				zap.String("user_id", UserIDFromContext(c)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("error", fmt.Sprint(rec)),
				zap.Stack("stack"),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal", "unexpected error occurred")
		}()
		c.Next()
	}
}
