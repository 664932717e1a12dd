package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"content-dumper/internal/bootstrap"
	"content-dumper/internal/exporter"
	"content-dumper/internal/shared/config"
	"content-dumper/internal/shared/telemetry"
)

const (
	defaultJobTimeoutSec      = 600
	defaultShutdownTimeoutSec = 30
)

func main() {
	once := flag.Bool("once", false, "run the export job once and exit")
	flag.Parse()

	cfg := config.Load()
	if err := telemetry.Init(cfg.LogLevel); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildForScripts(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	job := newJob(app)
	if *once {
		if _, err := job.Run(ctx); err != nil {
			telemetry.Error("worker.export.failed", map[string]any{"err": err.Error()})
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg.ExportCron, job, shutdownTimeout()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func newJob(app *bootstrap.App) *exporter.Job {
	return &exporter.Job{
		Exporter: app.Exporter,
		Users:    app.UsersService,
		Notifier: app.Notifier,
		UserRef:  app.Config.ExportUsername,
		Dir:      app.Config.ExportDir,
		Timeout:  time.Duration(envInt("EXPORT_JOB_TIMEOUT_SECONDS", defaultJobTimeoutSec)) * time.Second,
	}
}

// run blocks until ctx is cancelled, then waits up to timeout for a running
// job to finish.
func run(ctx context.Context, spec string, job *exporter.Job, timeout time.Duration) error {
	if strings.TrimSpace(job.UserRef) == "" {
		telemetry.Warn("worker.export_username_empty", map[string]any{"hint": "set EXPORT_USERNAME"})
	}
	c, err := exporter.NewScheduler(spec, job)
	if err != nil {
		return err
	}
	c.Start()
	telemetry.Info("worker.started", map[string]any{"schedule": spec, "dir": job.Dir})

	<-ctx.Done()
	telemetry.Info("worker.shutdown_requested", map[string]any{"timeout": timeout.String()})
	stopped := c.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(timeout):
		telemetry.Warn("worker.shutdown_timeout", nil)
	}
	return nil
}

func shutdownTimeout() time.Duration {
	return time.Duration(envInt("SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return def
	}
	return val
}
