// Package database abre as conexões (PostgreSQL ou SQLite) e aplica as migrações.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"gowatch/internal/pkg/logger"
)

// Dialect identifica o banco em uso.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DB agrupa o pool e o dialeto, usado pelos repositórios para reescrever placeholders.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open escolhe o driver pela URL: postgres:// ou postgresql:// usam lib/pq;
// sqlite:///<caminho> (ou sqlite::memory:) usa modernc.org/sqlite.
func Open(url string, log logger.Logger) (*DB, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		db, err := NewPostgresDB(url, log)
		if err != nil {
			return nil, err
		}
		return &DB{DB: db, Dialect: Postgres}, nil
	case strings.HasPrefix(url, "sqlite:"):
		db, err := NewSQLiteDB(sqlitePath(url), log)
		if err != nil {
			return nil, err
		}
		return &DB{DB: db, Dialect: SQLite}, nil
	default:
		return nil, fmt.Errorf("DATABASE_URL com esquema não suportado: %q", url)
	}
}

// sqlitePath segue a convenção sqlite:///relativo e sqlite:////absoluto.
func sqlitePath(url string) string {
	path := strings.TrimPrefix(url, "sqlite:")
	if strings.HasPrefix(path, "///") {
		return strings.TrimPrefix(path, "///")
	}
	return strings.TrimPrefix(path, "//")
}

// Rebind converte placeholders $N para o formato do dialeto.
// Para SQLite cada $N vira '?', então cada parâmetro deve aparecer uma vez e em ordem.
func (d *DB) Rebind(query string) string {
	if d.Dialect != SQLite {
		return query
	}
	return rebindQuestion(query)
}

func rebindQuestion(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		if j == i+1 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('?')
		i = j - 1
	}
	return b.String()
}

// IsUniqueViolation reconhece violação de UNIQUE nos dois drivers.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		// sem extended result codes o código é apenas SQLITE_CONSTRAINT
		return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}
