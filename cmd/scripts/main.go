package main

// Operator commands:
//   go run ./cmd/scripts fetch
//   go run ./cmd/scripts --help

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"content-dumper/internal/bootstrap"
	"content-dumper/internal/scripts"
	"content-dumper/internal/shared/config"
	"content-dumper/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	// Command output shares stdout with the logger; only warnings interleave.
	if err := telemetry.Init("warn"); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var app *bootstrap.App
	load := func(ctx context.Context) (*scripts.Deps, error) {
		var err error
		app, err = bootstrap.BuildForScripts(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return app.ScriptDeps(), nil
	}

	err := scripts.Execute(ctx, load)
	if app != nil {
		_ = app.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}
