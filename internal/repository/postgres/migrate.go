package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"mediafolders/internal/repository/postgres/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations for the given table prefix.
// The SQL files reference ${TABLE_PREFIX}, and goose keeps one version table per prefix.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, logger *slog.Logger) error {
	if err := os.Setenv("TABLE_PREFIX", tables.Prefix); err != nil {
		return fmt.Errorf("set table prefix for migrations: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.Migrations)
	goose.SetTableName(tables.Prefix + "goose_db_version")
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("migrations applied", "table_prefix", tables.Prefix)
	return nil
}
