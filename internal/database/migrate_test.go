package database

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Los campos copiados de la NFe no tienen límite de largo: un valor fuera de
// formato no debe abortar el import en PostgreSQL.
func TestMigrationsBoundOnlyInternalColumns(t *testing.T) {
	bounded := map[string]bool{
		"tax_id_kind":    true,
		"operation_type": true,
		"state":          true,
	}
	varchar := regexp.MustCompile(`^\s*(\w+)\s+VARCHAR\(`)

	files, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, name := range files {
		data, err := migrationsFS.ReadFile(name)
		require.NoError(t, err)

		table := ""
		for _, line := range strings.Split(string(data), "\n") {
			if strings.HasPrefix(line, "CREATE TABLE") {
				table = strings.Fields(line)[5]
			}
			m := varchar.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			column := m[1]
			assert.True(t, bounded[column], "%s: %s.%s has a length limit", name, table, column)
			if column == "state" {
				assert.Equal(t, "invoices", table, "%s: only the invoice lifecycle state is bounded", name)
			}
		}
	}
}
