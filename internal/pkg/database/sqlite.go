package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"gowatch/internal/pkg/logger"
)

// NewSQLiteDB abre (ou cria) o banco SQLite. ":memory:" gera um banco efêmero,
// útil em testes; o pool é limitado a uma conexão para que todas as queries
// enxerguem o mesmo banco.
func NewSQLiteDB(path string, log logger.Logger) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("caminho do SQLite vazio")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("falha ao criar diretório do DB: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir o SQLite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// com uma única conexão os PRAGMAs valem para todo o pool
	for _, pragma := range []string{`PRAGMA foreign_keys = ON;`, `PRAGMA busy_timeout = 5000;`} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("falha ao aplicar %s: %w", pragma, err)
		}
	}

	log.Info("Banco SQLite aberto.", map[string]interface{}{"path": path})
	return db, nil
}
