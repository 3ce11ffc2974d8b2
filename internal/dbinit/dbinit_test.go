package dbinit

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceDBName(t *testing.T) {
	got, err := replaceDBName("postgres://u:p@db:5432/postgres?sslmode=disable", "aircraftconsole")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/aircraftconsole?sslmode=disable", got)

	got, err = replaceDBName("postgres://db/postgres", "x")
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/x", got)

	_, err = replaceDBName("nodb", "x")
	assert.Error(t, err)
}

func TestMigrationFilesSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_b.sql":   {Data: []byte("select 2")},
		"migrations/0001_a.sql":   {Data: []byte("select 1")},
		"migrations/README.md":    {Data: []byte("notes")},
		"migrations/sub/0003.sql": {Data: []byte("select 3")},
	}
	files, err := migrationFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a.sql", "0002_b.sql"}, files)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	files, err := migrationFiles(migrationsFS)
	require.NoError(t, err)
	assert.Contains(t, files, "0001_console_storage.sql")
}

type execRecorder struct {
	sql  string
	args []any
	err  error
}

func (e *execRecorder) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.sql, e.args = sql, args
	if e.err != nil {
		return pgconn.CommandTag{}, e.err
	}
	return pgconn.NewCommandTag("DELETE 3"), nil
}

func TestPurgeStaleStorage(t *testing.T) {
	rec := &execRecorder{}
	n, err := PurgeStaleStorage(context.Background(), rec, 2*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Contains(t, rec.sql, "console_storage")
	assert.Equal(t, []any{7200.0}, rec.args)

	rec.err = errors.New("down")
	_, err = PurgeStaleStorage(context.Background(), rec, time.Hour)
	assert.ErrorContains(t, err, "down")
}
