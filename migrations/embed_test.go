package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaDeclaresLedgerGuards(t *testing.T) {
	names, err := Files()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])

	sql, err := Read(names[0])
	require.NoError(t, err)
	assert.Contains(t, sql, "transaction_id TEXT          PRIMARY KEY")
	assert.Contains(t, sql, "UNIQUE (transaction_id, side)")
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS audit_logs")
}
