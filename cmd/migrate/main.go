package main

// Manage database migrations:
//   go run ./cmd/migrate [up|down|status]

import (
	"context"
	"log"
	"os"

	"study-backend/internal/shared/config"
	"study-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()
	dialect := db.DialectFor(cfg.DatabaseURL)

	switch command {
	case "up":
		err = db.RunMigrations(ctx, sqlDB, dialect)
	case "down":
		err = db.RollbackLast(ctx, sqlDB, dialect)
	case "status":
		err = db.MigrationStatus(ctx, sqlDB, dialect)
	default:
		log.Printf("unknown command %q (want up, down or status)", command)
		os.Exit(2)
	}
	if err != nil {
		log.Printf("migrate %s failed: %v", command, err)
		os.Exit(1)
	}
}
