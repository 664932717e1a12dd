package main

// Run database migrations:
//   go run ./cmd/migrate          # apply pending migrations
//   go run ./cmd/migrate down     # roll back the latest migration
//   go run ./cmd/migrate status

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"content-dumper/internal/shared/config"
	"content-dumper/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	run, err := command(cmd)
	if err != nil {
		log.Print(err)
		os.Exit(2)
	}

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := run(ctx, sqlDB); err != nil {
		log.Printf("migrate %s failed: %v", cmd, err)
		os.Exit(1)
	}
}

func command(name string) (func(context.Context, *sql.DB) error, error) {
	switch name {
	case "up":
		return db.RunMigrations, nil
	case "down":
		return db.RollbackMigration, nil
	case "status":
		return db.MigrationStatus, nil
	}
	return nil, fmt.Errorf("unknown command %q (want up, down or status)", name)
}
