package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"content-dumper/internal/articles"
	oidcauth "content-dumper/internal/auth"
	"content-dumper/internal/books"
	"content-dumper/internal/categories"
	"content-dumper/internal/exporter"
	"content-dumper/internal/images"
	"content-dumper/internal/notes"
	"content-dumper/internal/scripts"
	"content-dumper/internal/services/health"
	"content-dumper/internal/shared/cache"
	"content-dumper/internal/shared/config"
	"content-dumper/internal/shared/events"
	"content-dumper/internal/shared/metrics"
	"content-dumper/internal/shared/notify"
	"content-dumper/internal/shared/server"
	"content-dumper/internal/shared/server/middleware"
	"content-dumper/internal/shared/storage/db"
	"content-dumper/internal/shared/storage/object"
	localstore "content-dumper/internal/shared/storage/object/local"
	s3store "content-dumper/internal/shared/storage/object/s3"
	"content-dumper/internal/shared/telemetry"
	"content-dumper/internal/users"
)

// App holds shared dependencies.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Store    object.ObjectStore
	Cache    *cache.Cache
	Events   *events.Dispatcher
	Notifier notify.Notifier
	// Notifications triggered by content events go through this queue so
	// request handlers never wait on the webhook.
	NotifyQueue *notify.Queue

	UsersService      *users.Service
	CategoriesService *categories.Service
	ArticlesService   *articles.Service
	BooksService      *books.Service
	NotesService      *notes.Service
	ImagesService     *images.Service
	Exporter          *exporter.Exporter
	OIDC              *oidcauth.OIDCService
}

// Build prepares the HTTP application.
func Build(cfg config.Config) (*App, error) {
	app, err := build(context.Background(), cfg, db.DefaultServerOptions())
	if err != nil {
		return nil, err
	}

	var rateLimit *middleware.RateLimitConfig
	if cfg.IsProduction() {
		rateLimit = server.DefaultRateLimit()
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		Health:          health.NewService(app.DB),
		OIDC:            app.OIDC,
		UserHandler:     users.NewHandler(app.UsersService),
		CategoryHandler: categories.NewHandler(app.CategoriesService),
		ArticleHandler:  articles.NewHandler(app.ArticlesService),
		BookHandler:     books.NewHandler(app.BooksService),
		NoteHandler:     notes.NewHandler(app.NotesService),
		ImageHandler:    images.NewHandler(app.ImagesService),
		RateLimit:       rateLimit,
	})
	return app, nil
}

// BuildForScripts prepares the services used by the CLI and the worker.
// The router is not built and the pool is sized for one-shot jobs.
func BuildForScripts(ctx context.Context, cfg config.Config) (*App, error) {
	return build(ctx, cfg, db.DefaultScriptOptions())
}

// ScriptDeps adapts the app to the CLI's dependency set.
func (a *App) ScriptDeps() *scripts.Deps {
	return &scripts.Deps{
		Exporter:    a.Exporter,
		Users:       a.UsersService,
		Categories:  a.CategoriesService,
		Images:      a.ImagesService,
		DefaultUser: a.Config.ExportUsername,
		ExportDir:   a.Config.ExportDir,
	}
}

// Close drains pending notifications and releases the database pool.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.NotifyQueue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), notify.DefaultSendTimeout)
		_ = a.NotifyQueue.Close(ctx)
		cancel()
	}
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// ListenForInvalidations keeps the API cache in step with mutations made by
// the CLI and the worker. It blocks until ctx is cancelled and is a no-op
// without a database.
func (a *App) ListenForInvalidations(ctx context.Context) {
	if a.DB == nil {
		return
	}
	l := &cache.Listener{Cache: a.Cache, DatabaseURL: a.Config.DatabaseURL}
	l.Run(ctx)
}

func build(ctx context.Context, cfg config.Config, opts db.Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Store:    store,
		Cache:    cache.New(cfg.CacheSize, cfg.CacheTTL),
		Events:   events.NewDispatcher(),
		Notifier: notify.New(cfg.NotifyKind, cfg.NotifyWebhookURL, cfg.NotifyUsername),
	}
	app.NotifyQueue = notify.NewQueue(app.Notifier, notify.DefaultQueueSize, notify.DefaultSendTimeout)
	registerHandlers(app)

	if err := buildServices(app); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config, defaults db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_url_empty", map[string]any{"fallback": "memory"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(defaults))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_connect_failed", map[string]any{"fallback": "memory", "err": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.S3Prefix,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// registerHandlers subscribes the side effects of content mutations.
func registerHandlers(app *App) {
	app.Events.Register("cache", cache.InvalidationHandler(app.Cache))
	if app.DB != nil {
		app.Events.Register("cache-broadcast", cache.BroadcastHandler(app.DB))
	}
	app.Events.Register("notify", notify.EventHandler(app.NotifyQueue), events.KindCreated)
	app.Events.Register("metrics", metrics.EventHandler())
	app.Events.Register("log", events.LogHandler())
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var (
		userRepo     users.Repo
		categoryRepo categories.Repo
		articleRepo  articles.Repo
		bookRepo     books.Repo
		noteRepo     notes.Repo
		imageRepo    images.Repo
	)
	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		categoryRepo = &categories.PGRepo{DB: app.DB}
		articleRepo = &articles.PGRepo{DB: app.DB}
		bookRepo = &books.PGRepo{DB: app.DB}
		noteRepo = &notes.PGRepo{DB: app.DB}
		imageRepo = &images.PGRepo{DB: app.DB}
	} else {
		userRepo = users.NewMemoryRepo()
		categoryRepo = categories.NewMemoryRepo()
		articleRepo = articles.NewMemoryRepo()
		bookRepo = books.NewMemoryRepo()
		noteRepo = notes.NewMemoryRepo()
		imageRepo = images.NewMemoryRepo()
	}

	app.UsersService = users.NewService(userRepo)
	app.CategoriesService = categories.NewService(categoryRepo, app.Events)
	app.ArticlesService = articles.NewService(articleRepo, app.Events, app.Cache, articles.NewPageTitleFetcher(), app.CategoriesService)
	app.BooksService = books.NewService(bookRepo, app.Events, app.Cache, books.NewGoogleBooks(app.Config.GoogleBooksAPIKey))
	app.NotesService = notes.NewService(noteRepo, app.Events, app.Cache)
	app.ImagesService = images.NewService(imageRepo, app.Store, app.Events, app.Cache)

	app.Exporter = exporter.New(app.Store,
		app.ArticlesService,
		app.BooksService,
		app.NotesService,
		app.ImagesService,
	)

	app.OIDC = oidcauth.NewOIDCService(oidcauth.Config{
		Issuer:           app.Config.OIDCIssuer,
		ClientID:         app.Config.OIDCClientID,
		ClientSecret:     app.Config.OIDCClientSecret,
		RedirectURL:      app.Config.OIDCRedirectURL,
		PermissionsClaim: app.Config.OIDCPermissionsClaim,
		UIRedirectURL:    app.Config.UIRedirectURL,
		SecureCookie:     app.Config.IsProduction(),
	}, app.UsersService)

	if app.ArticlesService == nil || app.ImagesService == nil || app.Exporter == nil {
		return errors.New("failed to initialize services")
	}
	return nil
}
