package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("NOTIFY_KIND", "")
	cfg := FromViper(newViper())

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "local", cfg.ObjectStoreType)
	assert.Equal(t, "none", cfg.NotifyKind)
	assert.Equal(t, "0 3 * * *", cfg.ExportCron)
	assert.Equal(t, "permissions", cfg.OIDCPermissionsClaim)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSAllowOrigin)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("OBJECT_STORE", "S3")
	t.Setenv("S3_USE_PATH_STYLE", "true")
	t.Setenv("S3_ENDPOINT", "http://minio:9000")
	t.Setenv("OIDC_ISSUER", "https://idp.example.com/")
	t.Setenv("NOTIFY_KIND", "Discord")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, ,https://b.example")

	cfg := FromViper(newViper())
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "s3", cfg.ObjectStoreType)
	assert.True(t, cfg.S3UsePathStyle)
	assert.Equal(t, "http://minio:9000", cfg.S3Endpoint)
	assert.Equal(t, "https://idp.example.com", cfg.OIDCIssuer)
	assert.Equal(t, "discord", cfg.NotifyKind)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigin)
}

func TestLoadEnvFilesDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("EXPORT_USERNAME=file@example.com\nEXPORT_DIR=/from/file\n"), 0o600))
	t.Setenv("EXPORT_DIR", "/from/env")
	t.Setenv("EXPORT_USERNAME", "")
	os.Unsetenv("EXPORT_USERNAME")

	loadEnvFiles(path)
	t.Cleanup(func() { os.Unsetenv("EXPORT_USERNAME") })

	cfg := FromViper(newViper())
	assert.Equal(t, "file@example.com", cfg.ExportUsername)
	assert.Equal(t, "/from/env", cfg.ExportDir)
}
