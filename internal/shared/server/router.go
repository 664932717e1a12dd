package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"content-dumper/internal/articles"
	oidcauth "content-dumper/internal/auth"
	"content-dumper/internal/books"
	"content-dumper/internal/categories"
	"content-dumper/internal/images"
	"content-dumper/internal/notes"
	"content-dumper/internal/services/health"
	"content-dumper/internal/shared/auth"
	"content-dumper/internal/shared/config"
	"content-dumper/internal/shared/metrics"
	"content-dumper/internal/shared/server/middleware"
	"content-dumper/internal/users"
)

// Paths reachable without a session.
var publicPrefixes = []string{"/api/health", "/api/auth/", "/metrics"}

// RouterDeps carries the handlers the router mounts. Nil handlers are skipped.
type RouterDeps struct {
	Config          config.Config
	Health          *health.Service
	OIDC            *oidcauth.OIDCService
	UserHandler     *users.Handler
	CategoryHandler *categories.Handler
	ArticleHandler  *articles.Handler
	BookHandler     *books.Handler
	NoteHandler     *notes.Handler
	ImageHandler    *images.Handler
	RateLimit       *middleware.RateLimitConfig
}

// DefaultRateLimit allows bursts of reads and throttles writes per user.
func DefaultRateLimit() *middleware.RateLimitConfig {
	return &middleware.RateLimitConfig{
		DefaultGroup: "WRITE",
		GroupFor: func(c *gin.Context) string {
			switch c.Request.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return "READ"
			}
			return "WRITE"
		},
		Rules: map[string]middleware.RateLimitRule{
			"READ":  {Rate: 20, Burst: 40},
			"WRITE": {Rate: 5, Burst: 10},
		},
	}
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		metrics.Middleware(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(publicPrefixes...),
	)
	if deps.RateLimit != nil {
		r.Use(middleware.RateLimit(*deps.RateLimit))
	}

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	hs := deps.Health
	if hs == nil {
		hs = health.NewService(nil)
	}
	api.GET("/health", hs.Handle)
	if deps.OIDC != nil {
		deps.OIDC.RegisterRoutes(api)
	}

	media := api.Group("/images", middleware.RequireAny(auth.PermissionView, auth.PermissionDump))
	if deps.ImageHandler != nil {
		deps.ImageHandler.RegisterStreamRoutes(media)
	}

	v1 := api.Group("/v1")
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(v1)
	}

	dumper := v1.Group("/dumper", middleware.Require(auth.PermissionDump))
	viewer := v1.Group("/viewer", middleware.Require(auth.PermissionView))
	if deps.CategoryHandler != nil {
		deps.CategoryHandler.RegisterDumperRoutes(dumper)
	}
	if h := deps.ArticleHandler; h != nil {
		h.RegisterDumperRoutes(dumper)
		h.RegisterViewerRoutes(viewer)
	}
	if h := deps.BookHandler; h != nil {
		h.RegisterDumperRoutes(dumper)
		h.RegisterViewerRoutes(viewer)
	}
	if h := deps.NoteHandler; h != nil {
		h.RegisterDumperRoutes(dumper)
		h.RegisterViewerRoutes(viewer)
	}
	if h := deps.ImageHandler; h != nil {
		h.RegisterDumperRoutes(dumper)
		h.RegisterViewerRoutes(viewer)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
