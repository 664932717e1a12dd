package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"content-dumper/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	DatabaseURL     string
	CORSAllowOrigin []string

	ObjectStoreType string
	LocalStoreDir   string
	S3Endpoint      string
	S3Region        string
	S3Bucket        string
	S3Prefix        string
	S3AccessKey     string
	S3SecretKey     string
	S3UsePathStyle  bool

	OIDCIssuer           string
	OIDCClientID         string
	OIDCClientSecret     string
	OIDCRedirectURL      string
	OIDCPermissionsClaim string
	UIRedirectURL        string
	JWTSecret            string

	NotifyKind       string
	NotifyWebhookURL string
	NotifyUsername   string

	ExportUsername string
	ExportDir      string
	ExportCron     string

	CacheSize         int
	CacheTTL          time.Duration
	GoogleBooksAPIKey string
}

var defaults = map[string]any{
	"PORT":                   "8080",
	"ENV":                    "dev",
	"LOG_LEVEL":              "info",
	"CORS_ALLOW_ORIGINS":     "http://localhost:5173",
	"OBJECT_STORE":           "local",
	"LOCAL_STORE_DIR":        "./data",
	"S3_REGION":              "us-east-1",
	"S3_USE_PATH_STYLE":      false,
	"OIDC_PERMISSIONS_CLAIM": "permissions",
	"NOTIFY_KIND":            "none",
	"NOTIFY_USERNAME":        "content-dumper",
	"EXPORT_DIR":             "./export",
	"EXPORT_CRON":            "0 3 * * *",
	"CACHE_SIZE":             512,
	"CACHE_TTL":              "5m",
}

// keys read from the environment without a default.
var keys = []string{
	"DATABASE_URL",
	"S3_ENDPOINT", "S3_BUCKET", "S3_PREFIX", "S3_ACCESS_KEY", "S3_SECRET_KEY",
	"OIDC_ISSUER", "OIDC_CLIENT_ID", "OIDC_CLIENT_SECRET", "OIDC_REDIRECT_URL",
	"UI_REDIRECT_URL", "JWT_SECRET",
	"NOTIFY_WEBHOOK_URL", "EXPORT_USERNAME", "GOOGLE_BOOKS_API_KEY",
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")
	return FromViper(newViper())
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) Config {
	env := normalizeEnv(v.GetString("ENV"))
	dbURL := strings.TrimSpace(v.GetString("DATABASE_URL"))
	if env == "production" && dbURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": env})
	}

	ttl := v.GetDuration("CACHE_TTL")
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	size := v.GetInt("CACHE_SIZE")
	if size <= 0 {
		size = 512
	}

	return Config{
		Port:            v.GetString("PORT"),
		Env:             env,
		LogLevel:        v.GetString("LOG_LEVEL"),
		DatabaseURL:     dbURL,
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),

		ObjectStoreType: normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:   v.GetString("LOCAL_STORE_DIR"),
		S3Endpoint:      v.GetString("S3_ENDPOINT"),
		S3Region:        v.GetString("S3_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Prefix:        v.GetString("S3_PREFIX"),
		S3AccessKey:     v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:     v.GetString("S3_SECRET_KEY"),
		S3UsePathStyle:  v.GetBool("S3_USE_PATH_STYLE"),

		OIDCIssuer:           strings.TrimRight(v.GetString("OIDC_ISSUER"), "/"),
		OIDCClientID:         v.GetString("OIDC_CLIENT_ID"),
		OIDCClientSecret:     v.GetString("OIDC_CLIENT_SECRET"),
		OIDCRedirectURL:      v.GetString("OIDC_REDIRECT_URL"),
		OIDCPermissionsClaim: v.GetString("OIDC_PERMISSIONS_CLAIM"),
		UIRedirectURL:        v.GetString("UI_REDIRECT_URL"),
		JWTSecret:            v.GetString("JWT_SECRET"),

		NotifyKind:       normalizeNotifyKind(v.GetString("NOTIFY_KIND")),
		NotifyWebhookURL: v.GetString("NOTIFY_WEBHOOK_URL"),
		NotifyUsername:   v.GetString("NOTIFY_USERNAME"),

		ExportUsername: v.GetString("EXPORT_USERNAME"),
		ExportDir:      v.GetString("EXPORT_DIR"),
		ExportCron:     v.GetString("EXPORT_CRON"),

		CacheSize:         size,
		CacheTTL:          ttl,
		GoogleBooksAPIKey: v.GetString("GOOGLE_BOOKS_API_KEY"),
	}
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, def := range defaults {
		v.SetDefault(k, def)
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	v.AutomaticEnv()
	return v
}

// loadEnvFiles loads KEY=VALUE files if they exist. Variables already set in
// the environment win.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if err := godotenv.Load(path); err == nil {
			telemetry.Debug("config.env_file_loaded", map[string]any{"path": path})
		}
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeNotifyKind(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "slack":
		return "slack"
	case "discord":
		return "discord"
	default:
		return "none"
	}
}
