package db

import (
	"context"
	"database/sql"
	"embed"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

func prepareGoose(dialect Dialect) (string, error) {
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(string(dialect)); err != nil {
		return "", err
	}
	if dialect == SQLite {
		return "migrations/sqlite", nil
	}
	return "migrations/postgres", nil
}

// RunMigrations applies embedded SQL migrations via goose. If database is nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sql.DB, dialect Dialect) error {
	if database == nil {
		return nil
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()
	dir, err := prepareGoose(dialect)
	if err != nil {
		return err
	}
	return goose.UpContext(ctx, database, dir)
}

// RollbackLast reverts the most recent migration.
func RollbackLast(ctx context.Context, database *sql.DB, dialect Dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	dir, err := prepareGoose(dialect)
	if err != nil {
		return err
	}
	return goose.DownContext(ctx, database, dir)
}

// MigrationStatus logs the applied state of every migration.
func MigrationStatus(ctx context.Context, database *sql.DB, dialect Dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	dir, err := prepareGoose(dialect)
	if err != nil {
		return err
	}
	return goose.StatusContext(ctx, database, dir)
}
