package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedauth "content-dumper/internal/shared/auth"
	"content-dumper/internal/shared/server/middleware"
	"content-dumper/internal/users"
)

func newIdP(t *testing.T, perms any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var issuer string
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":                 issuer,
			"authorization_endpoint": issuer + "/oauth2/v1/authorize",
			"token_endpoint":         issuer + "/oauth2/v1/token",
			"userinfo_endpoint":      issuer + "/oauth2/v1/userinfo",
		})
	})
	mux.HandleFunc("/oauth2/v1/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/oauth2/v1/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":     "abc",
			"email":   "me@example.com",
			"name":    "Me",
			"picture": "https://example.com/me.png",
			"roles":   perms,
		})
	})
	srv := httptest.NewServer(mux)
	issuer = srv.URL
	t.Cleanup(srv.Close)
	return srv
}

func newAuthRouter(t *testing.T, idp *httptest.Server) (*gin.Engine, *users.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")
	svc := users.NewService(users.NewMemoryRepo())
	oidc := NewOIDCService(Config{
		Issuer:           idp.URL + "/",
		ClientID:         "client",
		ClientSecret:     "secret",
		RedirectURL:      "http://localhost/api/auth/callback",
		PermissionsClaim: "roles",
		UIRedirectURL:    "http://localhost:5173/",
	}, svc)
	r := gin.New()
	oidc.RegisterRoutes(r.Group("/api"))
	return r, svc
}

func signin(t *testing.T, r *gin.Engine) string {
	t.Helper()
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/signin", nil))
	require.Equal(t, http.StatusFound, resp.Code)
	loc, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/oauth2/v1/authorize", loc.Path)
	assert.Equal(t, "client", loc.Query().Get("client_id"))
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestCallbackIssuesSessionCookie(t *testing.T) {
	idp := newIdP(t, []string{"Dump", "view", "dump"})
	r, svc := newAuthRouter(t, idp)
	state := signin(t, r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/callback?state="+state+"&code=good-code", nil))
	require.Equal(t, http.StatusFound, resp.Code, resp.Body.String())
	assert.Equal(t, "http://localhost:5173/", resp.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range resp.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	claims, err := sharedauth.VerifyJWT(session.Value)
	require.NoError(t, err)
	host := strings.TrimPrefix(idp.URL, "http://")
	assert.Equal(t, host+":abc", claims.Subject)
	assert.Equal(t, []string{"dump", "view"}, claims.Permissions)

	u, err := svc.GetByID(context.Background(), host+":abc")
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", u.Email)
}

func TestCallbackAcceptsStringPermissions(t *testing.T) {
	idp := newIdP(t, "view delete")
	r, _ := newAuthRouter(t, idp)
	state := signin(t, r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/callback?state="+state+"&code=good-code", nil))
	require.Equal(t, http.StatusFound, resp.Code)
	cookies := resp.Result().Cookies()
	require.NotEmpty(t, cookies)
	claims, err := sharedauth.VerifyJWT(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, []string{"view", "delete"}, claims.Permissions)
}

func TestCallbackStateIsSingleUse(t *testing.T) {
	idp := newIdP(t, nil)
	r, _ := newAuthRouter(t, idp)
	state := signin(t, r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/callback?state="+state+"&code=bad-code", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/callback?state="+state+"&code=good-code", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "invalid or expired state")
}

func TestCallbackRejectsIdPError(t *testing.T) {
	idp := newIdP(t, nil)
	r, _ := newAuthRouter(t, idp)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/callback?error=access_denied", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSignoutClearsCookie(t *testing.T) {
	idp := newIdP(t, nil)
	r, _ := newAuthRouter(t, idp)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	cookies := resp.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestStateExpires(t *testing.T) {
	s := newStateStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.put("a", now, time.Minute)
	assert.False(t, s.consume("a", now.Add(2*time.Minute)))
	s.put("b", now, time.Minute)
	assert.True(t, s.consume("b", now.Add(time.Second)))
	assert.False(t, s.consume("b", now.Add(time.Second)))
}

func TestSigninFailsWithoutDiscoveryDocument(t *testing.T) {
	var hits atomic.Int32
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	t.Cleanup(idp.Close)
	r, _ := newAuthRouter(t, idp)

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/signin", nil))
		assert.Equal(t, http.StatusBadGateway, resp.Code)
	}
	assert.EqualValues(t, 2, hits.Load(), "failed discovery is retried")
}

func TestDiscoveryRejectsIssuerMismatch(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":                 "https://evil.example",
			"authorization_endpoint": "https://evil.example/authorize",
			"token_endpoint":         "https://evil.example/token",
			"userinfo_endpoint":      "https://evil.example/userinfo",
		})
	}))
	t.Cleanup(idp.Close)
	r, _ := newAuthRouter(t, idp)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/signin", nil))
	assert.Equal(t, http.StatusBadGateway, resp.Code)
}
