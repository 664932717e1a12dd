package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func corsRouter(origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(origins))
	r.POST("/api/v1/dumper/notes/:id/revert", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func corsRequest(r http.Handler, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/dumper/notes/123/revert", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSPreflight(t *testing.T) {
	w := corsRequest(corsRouter("http://localhost:5173/"), http.MethodOptions, "http://localhost:5173")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
}

func TestCORSSimpleRequest(t *testing.T) {
	w := corsRequest(corsRouter("http://localhost:5173"), http.MethodPost, "http://localhost:5173")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Request-Id")
	assert.Empty(t, w.Header().Get("Access-Control-Max-Age"))
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	w := corsRequest(corsRouter("http://localhost:5173"), http.MethodPost, "http://evil.example")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
}

func TestCORSWildcardReflectsOrigin(t *testing.T) {
	w := corsRequest(corsRouter("*"), http.MethodPost, "http://anything.test")
	assert.Equal(t, "http://anything.test", w.Header().Get("Access-Control-Allow-Origin"))
}
