package notes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-dumper/internal/shared/pagination"
	"content-dumper/internal/shared/server/respond"
)

func newRouter(t *testing.T, perms ...string) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", "u1")
		c.Set("userPermissions", perms)
		c.Next()
	})
	h := NewHandler(f.svc)
	h.RegisterDumperRoutes(r.Group("/api/v1/dumper"))
	h.RegisterViewerRoutes(r.Group("/api/v1/viewer"))
	return r, f
}

func TestCreateAcceptsFormAndJSON(t *testing.T) {
	r, _ := newRouter(t, "dump")

	form := url.Values{"title": {"From form"}, "markdown": {"body"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/dumper/notes", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/v1/dumper/notes", bytes.NewBufferString(`{"title":"","markdown":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var res respond.ActionResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "title")
}

func TestDeleteWithoutDeletePermissionFails(t *testing.T) {
	r, _ := newRouter(t, "dump")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/dumper/notes/n1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusForbidden, resp.Code)

	var res respond.ActionResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.False(t, res.Success)
}

func TestViewerListReturnsPagination(t *testing.T) {
	r, f := newRouter(t, "view", "dump")

	for _, title := range []string{"alpha", "beta", "gamma"} {
		body, _ := json.Marshal(Input{Title: title, Markdown: "text " + title})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/dumper/notes", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		require.Equal(t, http.StatusCreated, resp.Code)
	}
	f.export(t, "u1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/viewer/notes?page=1&limit=2&q=A", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var body pagination.Response[Note]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
	assert.Equal(t, int64(3), body.Pagination.Total)
	assert.True(t, body.Pagination.HasNext)
	assert.Equal(t, "gamma", body.Data[0].Title)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/viewer/notes?page=0", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
