package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-dumper/internal/bootstrap"
	"content-dumper/internal/notes"
	"content-dumper/internal/shared/config"
	"content-dumper/internal/users"
)

func testApp(t *testing.T) *bootstrap.App {
	t.Helper()
	dir := t.TempDir()
	app, err := bootstrap.BuildForScripts(context.Background(), config.Config{
		Env:             "test",
		ObjectStoreType: "local",
		LocalStoreDir:   filepath.Join(dir, "objects"),
		ExportUsername:  "me@example.com",
		ExportDir:       "/export",
		NotifyKind:      "none",
		CacheSize:       16,
		CacheTTL:        time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestJobExportsPendingNotes(t *testing.T) {
	app := testApp(t)
	app.Exporter.FS = afero.NewMemMapFs()
	ctx := context.Background()

	require.NoError(t, app.UsersService.UpsertFromAuth(ctx, users.User{ID: "idp:u1", Email: "me@example.com"}))
	n, err := app.NotesService.Create(ctx, "idp:u1", notes.Input{Title: "Groceries", Markdown: "- eggs"})
	require.NoError(t, err)

	report, err := newJob(app).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Moved())

	ok, err := afero.Exists(app.Exporter.FS, filepath.Join("/export", "notes", n.ID+".md"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJobFailsForUnknownUser(t *testing.T) {
	app := testApp(t)
	_, err := newJob(app).Run(context.Background())
	assert.Error(t, err)
}

func TestRunRejectsBadSchedule(t *testing.T) {
	app := testApp(t)
	err := run(context.Background(), "not a cron", newJob(app), time.Second)
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	app := testApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, run(ctx, "0 3 * * *", newJob(app), time.Second))
}

func TestEnvInt(t *testing.T) {
	t.Setenv("WORKER_TEST_INT", "")
	assert.Equal(t, 7, envInt("WORKER_TEST_INT", 7))
	t.Setenv("WORKER_TEST_INT", "12")
	assert.Equal(t, 12, envInt("WORKER_TEST_INT", 7))
	t.Setenv("WORKER_TEST_INT", "nope")
	assert.Equal(t, 7, envInt("WORKER_TEST_INT", 7))
}
