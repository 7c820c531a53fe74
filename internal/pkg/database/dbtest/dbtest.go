// Package dbtest cria bancos SQLite em memória já migrados para os testes.
package dbtest

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"gowatch/internal/pkg/database"
	"gowatch/internal/pkg/logger"
)

// New abre um banco efêmero com o schema aplicado; é fechado no fim do teste.
func New(t testing.TB) *database.DB {
	t.Helper()
	log := logger.NewLoggerWithOutput("error", io.Discard)

	db, err := database.Open("sqlite::memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db, log))
	return db
}
