package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Health(context.Background()))
}

func TestInitSchema(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.InitSchema())

	// Applying twice is a no-op.
	require.NoError(t, db.InitSchema())

	version, err := NewMigrator(db).CurrentVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	// Core tables exist.
	for _, table := range []string{"principals", "users", "tenants", "roles", "datasets", "acl_entries", "pipeline_runs", "data_items"} {
		var name string
		err := db.QueryRowContext(context.Background(),
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s missing", table)
	}
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.InitSchema())
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO principals (id, kind) VALUES ('p1', 'user')"); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM principals").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTx_Commit(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.InitSchema())
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO principals (id, kind) VALUES ('p1', 'user')")
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM principals").Scan(&count))
	assert.Equal(t, 1, count)
}
