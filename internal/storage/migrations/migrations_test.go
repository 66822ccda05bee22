package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := sqlFiles(PostgresFS, "postgres")
	require.NoError(t, err)
	assert.Contains(t, pg, "001_match_journal.sql")

	ch, err := sqlFiles(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	assert.Contains(t, ch, "001_match_journal.sql")

	for _, file := range ch {
		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+file)
		require.NoError(t, err)
		assert.NoError(t, validateNoSemicolonInStrings(string(data)), file)

		stmts := splitStatements(string(data))
		require.NotEmpty(t, stmts, file)
		assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE"), file)
	}
}

func TestSplitStatements(t *testing.T) {
	input := `-- header comment
CREATE TABLE a (x Int32);

-- second
CREATE TABLE b (y String);
`
	stmts := splitStatements(input)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x Int32)", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y String)", stmts[1])
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT 'it''s'; SELECT 1;`))
	assert.Error(t, validateNoSemicolonInStrings(`SELECT 'a;b'`))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://localhost:9000/scanner")
	require.NoError(t, err)
	assert.Equal(t, "scanner", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}
