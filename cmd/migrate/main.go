package main

// Run database migrations for the configured backend:
//   go run ./cmd/migrate

import (
	"context"
	"database/sql"
	"log"
	"os"

	"revops-backend/internal/shared/config"
	"revops-backend/internal/shared/storage/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()

	var (
		sqlDB   *sql.DB
		dialect db.Dialect
	)
	switch cfg.StoreBackend {
	case "postgres":
		opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
		dialect = db.Postgres
	case "sqlite":
		sqlDB, err = db.OpenSQLite(ctx, cfg.DatabasePath)
		dialect = db.SQLite
	default:
		log.Printf("STORE_BACKEND=%s has no schema to migrate", cfg.StoreBackend)
		return
	}
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
		log.Printf("failed to run migrations: %v", err)
		os.Exit(1)
	}
	log.Printf("migrations applied (%s)", dialect)
}
