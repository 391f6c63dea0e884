// Package dbtest abre bases SQLite en memoria migradas para tests.
package dbtest

import (
	"testing"

	"github.com/JulioAnalista/vendas-audit/internal/database"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// New retorna una base en memoria con el esquema aplicado. Se cierra al
// terminar el test.
func New(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Open(database.DriverSQLite, ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger, _ := test.NewNullLogger()
	require.NoError(t, database.Migrate(db, logger))
	return db
}
