package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mybiom/biom/internal/store"
	"github.com/mybiom/biom/internal/store/sqlstore"
	"github.com/mybiom/biom/internal/store/storetest"
)

func makeSQLiteStore(t *testing.T, opts ...sqlstore.Option) store.Store {
	t.Helper()
	s, err := Bootstrap(context.Background(), filepath.Join(t.TempDir(), "biom.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_Compliance(t *testing.T) {
	storetest.Run(t, makeSQLiteStore)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "nested", "biom.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, EnsureSchema(ctx, db))
	require.NoError(t, EnsureSchema(ctx, db))
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", DSN(":memory:"))
	assert.Equal(t, "file:data/biom.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", DSN("data/biom.db"))
	assert.Equal(t, "file:x.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", DSN("x.db?mode=rwc"))
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}
