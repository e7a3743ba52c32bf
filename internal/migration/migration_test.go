package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := Files()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, name := range names {
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	assert.Equal(t, ups, downs)
}

func TestCoreSchemaCarriesIntegrityRules(t *testing.T) {
	raw, err := fs.ReadFile(embeddedMigrations, "sql/000001_core_schema.up.sql")
	require.NoError(t, err)
	body := string(raw)

	assert.Contains(t, body, "UNIQUE (member_id, contribution_month)")
	assert.Contains(t, body, "ON payments (claim_id) WHERE status <> 'FAILED'")
	assert.Contains(t, body, "BEFORE UPDATE OR DELETE ON audit_logs")
	assert.Contains(t, body, "PRIMARY KEY (family, year)")
}

func TestSQLiteSchemaDropsPostgresOnlyBlocks(t *testing.T) {
	schema, err := SQLiteSchema()
	require.NoError(t, err)

	assert.NotContains(t, schema, "plpgsql")
	assert.NotContains(t, schema, "TIMESTAMPTZ")
	assert.NotContains(t, schema, "NOW()")
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS reference_sequences")
}
