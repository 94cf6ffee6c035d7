// Package dbtest prepares migrated sqlite databases for tests.
package dbtest

import (
	"context"
	"testing"

	"schoollibrary/util/database"

	"github.com/stretchr/testify/require"
)

// New returns a fresh in-memory database with every migration applied.
func New(t testing.TB) *database.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return db
}
