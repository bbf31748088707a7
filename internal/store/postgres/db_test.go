package postgres

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStatementTimeoutMS(t *testing.T) {
	resolved, err := resolveStatementTimeoutMS(Config{StatementTimeoutMS: 45000})
	require.NoError(t, err)
	assert.Equal(t, 45000, resolved)

	_, err = resolveStatementTimeoutMS(Config{StatementTimeoutMS: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of allowed range")
}

func TestResolveStatementTimeoutMS_Env(t *testing.T) {
	t.Setenv("DB_STATEMENT_TIMEOUT_MS", "")
	resolved, err := resolveStatementTimeoutMS(Config{})
	require.NoError(t, err)
	assert.Equal(t, dbStatementTimeoutDefaultMS, resolved)

	t.Setenv("DB_STATEMENT_TIMEOUT_MS", "1500")
	resolved, err = resolveStatementTimeoutMS(Config{})
	require.NoError(t, err)
	assert.Equal(t, 1500, resolved)

	t.Setenv("DB_STATEMENT_TIMEOUT_MS", "invalid")
	_, err = resolveStatementTimeoutMS(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_STATEMENT_TIMEOUT_MS")
}

func TestAppendStatementTimeout(t *testing.T) {
	assert.Equal(t,
		"postgres://u@h/db?options=-c%20statement_timeout%3D500",
		appendStatementTimeout("postgres://u@h/db", 500))
	assert.Equal(t,
		"postgres://u@h/db?sslmode=disable&options=-c%20statement_timeout%3D500",
		appendStatementTimeout("postgres://u@h/db?sslmode=disable", 500))
}

func TestRunMigrations(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0002_b.up.sql"), []byte("CREATE TABLE b ();"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001_a.up.sql"), []byte("CREATE TABLE a ();"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001_a.down.sql"), []byte("DROP TABLE a;"), 0o600))

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db := &DB{sqlDB}

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))

	// 0001 already applied by another process
	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs("0001_a.up.sql").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs("0002_b.up.sql").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`CREATE TABLE b`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, db.RunMigrations(context.Background(), dir))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_EmptyDir(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	err = (&DB{sqlDB}).RunMigrations(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no migrations")
}
