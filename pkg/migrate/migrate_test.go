package migrate

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestMigrationsApplyOnSQLite(t *testing.T) {
	sqlDB := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, Run(ctx, sqlDB, Dialect("sqlite"), "migrations", "up"))

	for _, table := range []string{"pins", "auction_events"} {
		var name string
		err := sqlDB.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	require.NoError(t, MigrateToVersion(ctx, sqlDB, Dialect("sqlite"), "migrations", "20260301120000"))
	var count int
	require.NoError(t, sqlDB.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='auction_events'`).Scan(&count))
	require.Zero(t, count)
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestCreateThenValidate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "Add Pin Notes!", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260301120000_add_pin_notes.sql"), path)
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "add pin notes", now)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("-- +goose Up"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestDialect(t *testing.T) {
	require.Equal(t, "sqlite3", Dialect("SQLite"))
	require.Equal(t, "postgres", Dialect("postgres"))
}
