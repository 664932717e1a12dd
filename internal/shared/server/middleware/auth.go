package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"content-dumper/internal/shared/auth"
	"content-dumper/internal/shared/server/respond"
)

// SessionCookie carries the session JWT for browser clients.
const SessionCookie = "session"

const (
	userIDKey          = "userId"
	userEmailKey       = "userEmail"
	userNameKey        = "userName"
	userPictureKey     = "userPicture"
	userPermissionsKey = "userPermissions"
)

// Auth validates the session JWT from the Authorization header or the session
// cookie and stores identity in context. Paths under publicPrefixes pass through.
func Auth(publicPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		for _, prefix := range publicPrefixes {
			if path == prefix || strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		token, ok := tokenFromRequest(c)
		if !ok {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}

		claims, err := auth.VerifyJWT(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}

		c.Set(userIDKey, claims.Subject)
		if claims.Email != "" {
			c.Set(userEmailKey, claims.Email)
		}
		if claims.Name != "" {
			c.Set(userNameKey, claims.Name)
		}
		if claims.Picture != "" {
			c.Set(userPictureKey, claims.Picture)
		}
		c.Set(userPermissionsKey, auth.Normalize(claims.Permissions))
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) (string, bool) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return "", false
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		return token, token != ""
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

// Require rejects callers lacking any of perms. Missing identity is 401,
// missing permission 403; both respond with success=false.
func Require(perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserIDFromContext(c) == "" {
			respond.Denied(c, http.StatusUnauthorized, "authentication required")
			return
		}
		have := PermissionsFromContext(c)
		for _, p := range perms {
			if !auth.HasPermission(have, p) {
				respond.Denied(c, http.StatusForbidden, "permission denied: "+p+" is required")
				return
			}
		}
		c.Next()
	}
}

// RequireAny passes callers holding at least one of perms.
func RequireAny(perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserIDFromContext(c) == "" {
			respond.Denied(c, http.StatusUnauthorized, "authentication required")
			return
		}
		have := PermissionsFromContext(c)
		for _, p := range perms {
			if auth.HasPermission(have, p) {
				c.Next()
				return
			}
		}
		respond.Denied(c, http.StatusForbidden, "permission denied: one of "+strings.Join(perms, ", ")+" is required")
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userEmailKey)
}

// UserNameFromContext fetches the user name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userNameKey)
}

// UserPictureFromContext fetches the user picture set by the auth middleware.
func UserPictureFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userPictureKey)
}

// PermissionsFromContext fetches the permissions granted in the session token.
func PermissionsFromContext(c *gin.Context) []string {
	if c == nil {
		return nil
	}
	val, _ := c.Get(userPermissionsKey)
	perms, _ := val.([]string)
	return perms
}
