package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	sharedauth "content-dumper/internal/shared/auth"
	"content-dumper/internal/shared/server/middleware"
	"content-dumper/internal/shared/server/respond"
	"content-dumper/internal/shared/telemetry"
	"content-dumper/internal/users"
)

// Config describes the identity provider and where to send the browser after sign-in.
type Config struct {
	Issuer           string
	ClientID         string
	ClientSecret     string
	RedirectURL      string
	PermissionsClaim string
	UIRedirectURL    string
	SecureCookie     bool
}

// UserStore records identities on sign-in.
type UserStore interface {
	UpsertFromAuth(ctx context.Context, user users.User) error
}

// OIDCService handles the authorization-code flow against an OIDC issuer.
type OIDCService struct {
	oauthConfig      oauth2.Config
	issuer           string
	issuerHost       string
	permissionsClaim string
	uiRedirect       string
	secureCookie     bool
	stateTTL         time.Duration
	stateStore       *stateStore
	users            UserStore
	httpClient       *http.Client
	now              func() time.Time

	// Filled from the issuer's discovery document on first use.
	discoverMu  sync.Mutex
	discovered  bool
	endpoint    oauth2.Endpoint
	userinfoURL string
}

// NewOIDCService builds an OIDCService. Endpoints are read from
// <issuer>/.well-known/openid-configuration the first time they are needed.
func NewOIDCService(cfg Config, store UserStore) *OIDCService {
	issuer := strings.TrimRight(cfg.Issuer, "/")
	host := issuer
	if u, err := url.Parse(issuer); err == nil && u.Host != "" {
		host = u.Host
	}
	claim := strings.TrimSpace(cfg.PermissionsClaim)
	if claim == "" {
		claim = "permissions"
	}
	return &OIDCService{
		oauthConfig: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "profile", "email"},
		},
		issuer:           issuer,
		issuerHost:       host,
		permissionsClaim: claim,
		uiRedirect:       cfg.UIRedirectURL,
		secureCookie:     cfg.SecureCookie,
		stateTTL:         5 * time.Minute,
		stateStore:       newStateStore(),
		users:            store,
		httpClient:       &http.Client{Timeout: 10 * time.Second},
		now:              time.Now,
	}
}

type discoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
}

// provider returns the oauth2 config with discovered endpoints and the
// userinfo URL. A failed lookup is retried on the next call.
func (s *OIDCService) provider(ctx context.Context) (oauth2.Config, string, error) {
	s.discoverMu.Lock()
	defer s.discoverMu.Unlock()
	if !s.discovered {
		doc, err := s.discover(ctx)
		if err != nil {
			return oauth2.Config{}, "", err
		}
		s.endpoint = oauth2.Endpoint{AuthURL: doc.AuthorizationEndpoint, TokenURL: doc.TokenEndpoint}
		s.userinfoURL = doc.UserinfoEndpoint
		s.discovered = true
		telemetry.Info("auth.discovered", map[string]any{
			"issuer":        s.issuer,
			"authorization": doc.AuthorizationEndpoint,
			"token":         doc.TokenEndpoint,
			"userinfo":      doc.UserinfoEndpoint,
		})
	}
	cfg := s.oauthConfig
	cfg.Endpoint = s.endpoint
	return cfg, s.userinfoURL, nil
}

func (s *OIDCService) discover(ctx context.Context) (discoveryDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.issuer+"/.well-known/openid-configuration", nil)
	if err != nil {
		return discoveryDocument{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return discoveryDocument{}, fmt.Errorf("oidc discovery: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return discoveryDocument{}, fmt.Errorf("oidc discovery status %d", resp.StatusCode)
	}

	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return discoveryDocument{}, fmt.Errorf("oidc discovery: %w", err)
	}
	if strings.TrimRight(doc.Issuer, "/") != s.issuer {
		return discoveryDocument{}, fmt.Errorf("oidc discovery: issuer %q does not match %q", doc.Issuer, s.issuer)
	}
	if doc.AuthorizationEndpoint == "" || doc.TokenEndpoint == "" || doc.UserinfoEndpoint == "" {
		return discoveryDocument{}, fmt.Errorf("oidc discovery: document is missing endpoints")
	}
	return doc, nil
}

// RegisterRoutes attaches the sign-in routes. rg must be public.
func (s *OIDCService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/signin", s.signin)
	rg.GET("/auth/callback", s.callback)
	rg.POST("/auth/signout", s.signout)
}

func (s *OIDCService) configured() bool {
	return s.oauthConfig.ClientID != "" && s.oauthConfig.RedirectURL != "" && s.issuer != ""
}

func (s *OIDCService) signin(c *gin.Context) {
	if !s.configured() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "OIDC auth not configured")
		return
	}
	cfg, _, err := s.provider(c.Request.Context())
	if err != nil {
		telemetry.Error("auth.discovery_failed", map[string]any{"err": err.Error(), "issuer": s.issuer})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "identity provider unavailable")
		return
	}
	state := uuid.NewString()
	s.stateStore.put(state, s.now(), s.stateTTL)
	c.Redirect(http.StatusFound, cfg.AuthCodeURL(state))
}

func (s *OIDCService) callback(c *gin.Context) {
	if idpErr := c.Query("error"); idpErr != "" {
		respond.Error(c, http.StatusUnauthorized, "auth_failed", "sign-in was rejected: "+idpErr)
		return
	}
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code")
		return
	}
	if !s.stateStore.consume(state, s.now()) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state")
		return
	}

	ctx := c.Request.Context()
	cfg, userinfoURL, err := s.provider(ctx)
	if err != nil {
		telemetry.Error("auth.discovery_failed", map[string]any{"err": err.Error(), "issuer": s.issuer})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "identity provider unavailable")
		return
	}
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		telemetry.Warn("auth.exchange_failed", map[string]any{"err": err.Error(), "request_id": c.GetString("requestId")})
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code")
		return
	}

	info, err := s.fetchUserInfo(ctx, &cfg, userinfoURL, token)
	if err != nil {
		telemetry.Warn("auth.userinfo_failed", map[string]any{"err": err.Error(), "request_id": c.GetString("requestId")})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile")
		return
	}
	if info.Sub == "" || info.Email == "" {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "invalid user profile")
		return
	}

	user := users.User{
		ID:          s.issuerHost + ":" + info.Sub,
		Email:       info.Email,
		Name:        info.Name,
		PictureURL:  info.Picture,
		Permissions: info.Permissions,
	}
	if s.users != nil {
		if err := s.users.UpsertFromAuth(ctx, user); err != nil {
			telemetry.Error("auth.user_upsert_failed", map[string]any{"err": err.Error(), "user_id": user.ID})
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to record user")
			return
		}
	}

	var claims sharedauth.Claims
	claims.Subject = user.ID
	claims.Email = user.Email
	claims.Name = user.Name
	claims.Picture = user.PictureURL
	claims.Permissions = user.Permissions
	jwt, err := sharedauth.SignJWT(claims)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token")
		return
	}

	telemetry.Info("auth.signed_in", map[string]any{"user_id": user.ID, "permissions": strings.Join(user.Permissions, " ")})
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, jwt, int(sharedauth.SessionTTL.Seconds()), "/", "", s.secureCookie, true)
	target := s.uiRedirect
	if target == "" {
		target = "/"
	}
	c.Redirect(http.StatusFound, target)
}

func (s *OIDCService) signout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", s.secureCookie, true)
	respond.Success(c, http.StatusOK, "signed out", nil)
}

type userInfo struct {
	Sub         string
	Email       string
	Name        string
	Picture     string
	Permissions []string
}

func (s *OIDCService) fetchUserInfo(ctx context.Context, cfg *oauth2.Config, userinfoURL string, token *oauth2.Token) (userInfo, error) {
	client := cfg.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userinfoURL, nil)
	if err != nil {
		return userInfo{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return userInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return userInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return userInfo{}, err
	}
	return userInfo{
		Sub:         stringClaim(raw, "sub"),
		Email:       stringClaim(raw, "email"),
		Name:        stringClaim(raw, "name"),
		Picture:     stringClaim(raw, "picture"),
		Permissions: permissionsClaim(raw[s.permissionsClaim]),
	}, nil
}

func stringClaim(raw map[string]any, key string) string {
	v, _ := raw[key].(string)
	return strings.TrimSpace(v)
}

// permissionsClaim accepts either a JSON array or a space/comma separated string.
func permissionsClaim(v any) []string {
	switch t := v.(type) {
	case string:
		return sharedauth.ParsePermissions(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, p := range t {
			if s, ok := p.(string); ok {
				out = append(out, s)
			}
		}
		return sharedauth.Normalize(out)
	default:
		return []string{}
	}
}

type stateStore struct {
	items map[string]time.Time
	mu    sync.Mutex
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]time.Time)}
}

// put stores state until now+ttl and drops entries that already expired.
func (s *stateStore) put(state string, now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, exp := range s.items {
		if now.After(exp) {
			delete(s.items, k)
		}
	}
	s.items[state] = now.Add(ttl)
}

// consume reports whether state was issued and unexpired. A state is valid once.
func (s *stateStore) consume(state string, now time.Time) bool {
	s.mu.Lock()
	exp, ok := s.items[state]
	if ok {
		delete(s.items, state)
	}
	s.mu.Unlock()
	return ok && !now.After(exp)
}
