package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"mediafolders/internal/config"
	"mediafolders/internal/repository/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	if cfg.Environment == "prod" && os.Getenv("CONFIRM_DROP") != "yes" {
		log.Fatal("refusing to drop production tables without CONFIRM_DROP=yes")
	}

	tables := postgres.NewTableNames(cfg.TablePrefix)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = db.Close() }() // Error ignored: script exiting

	// Files reference folders, so they go first
	dropSQL := fmt.Sprintf(`
		DROP TABLE IF EXISTS %s CASCADE;
		DROP TABLE IF EXISTS %s CASCADE;
		DROP TABLE IF EXISTS %sgoose_db_version CASCADE;
	`, tables.Files, tables.Folders, tables.Prefix)

	if _, err := db.Exec(dropSQL); err != nil {
		log.Fatalf("Failed to drop tables: %v", err)
	}

	fmt.Printf("All explorer tables dropped successfully (prefix: %s)\n", tables.Prefix)
}
