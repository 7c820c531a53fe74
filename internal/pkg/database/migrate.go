package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"gowatch/internal/pkg/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func gooseDialect(d Dialect) string {
	if d == SQLite {
		return "sqlite3"
	}
	return "postgres"
}

func prepareGoose(d Dialect) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gooseDialect(d)); err != nil {
		return fmt.Errorf("falha ao definir dialeto do goose: %w", err)
	}
	return nil
}

// Migrate aplica todas as migrações pendentes.
func Migrate(ctx context.Context, db *DB, log logger.Logger) error {
	if err := prepareGoose(db.Dialect); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		return fmt.Errorf("falha ao aplicar migrações: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, db.DB)
	if err == nil {
		log.Info("Migrações aplicadas.", map[string]interface{}{"version": version})
	}
	return nil
}

// RunCommand executa um comando do goose (up, down, status, version, redo, reset...).
func RunCommand(ctx context.Context, db *sql.DB, dialect Dialect, command string, args ...string) error {
	if err := prepareGoose(dialect); err != nil {
		return err
	}
	return goose.RunContext(ctx, command, db, "migrations", args...)
}
