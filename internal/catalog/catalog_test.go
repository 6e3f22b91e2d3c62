package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Embucket/embucket-sub001/internal/metastore"
	"github.com/Embucket/embucket-sub001/internal/volume"
)

func newTestCatalog(t *testing.T) (*CachingCatalog, metastore.Metastore) {
	t.Helper()
	ctx := context.Background()
	store := metastore.NewInMemory(5, 30)
	require.NoError(t, store.CreateVolume(ctx, volume.Volume{Ident: "v1", Type: volume.TypeMemory}))
	require.NoError(t, store.CreateDatabase(ctx, metastore.Database{Ident: "embucket", VolumeName: "v1"}))
	return NewCachingCatalog(store, nil, "embucket"), store
}

func TestCaseInsensitiveTableResolve(t *testing.T) {
	ctx := context.Background()
	cat, store := newTestCatalog(t)

	require.NoError(t, cat.RegisterSchema(ctx, "tests", nil))
	require.NoError(t, store.CreateTable(ctx, metastore.Table{Database: "embucket", Schema: "tests", Ident: "t"}))

	for _, n := range []string{"t", "T", "tEsT"[:1]} {
		tbl, err := cat.Table(ctx, "tests", n)
		require.NoError(t, err)
		assert.Equal(t, "T", tbl.Table().Ident)
	}
	for _, schemaName := range []string{"tests", "TESTS", "Tests"} {
		tbl, err := cat.Table(ctx, schemaName, "t")
		require.NoError(t, err)
		assert.Equal(t, "T", tbl.Table().Ident)
	}
}

func TestCatalogCacheCoherenceAfterDeregister(t *testing.T) {
	ctx := context.Background()
	cat, store := newTestCatalog(t)

	require.NoError(t, cat.RegisterSchema(ctx, "tests", nil))
	require.NoError(t, store.CreateTable(ctx, metastore.Table{Database: "embucket", Schema: "tests", Ident: "t"}))

	_, err := cat.Table(ctx, "tests", "t")
	require.NoError(t, err)
	assert.True(t, cat.TableExists(ctx, "tests", "t"))

	require.NoError(t, cat.DeregisterTable(ctx, "tests", "t", false))
	assert.False(t, cat.TableExists(ctx, "tests", "t"))

	_, err = cat.Table(ctx, "tests", "t")
	assert.Error(t, err)
}

func TestTableExistsIsCacheMembershipOnly(t *testing.T) {
	ctx := context.Background()
	cat, store := newTestCatalog(t)

	require.NoError(t, cat.RegisterSchema(ctx, "tests", nil))
	require.NoError(t, store.CreateTable(ctx, metastore.Table{Database: "embucket", Schema: "tests", Ident: "t"}))

	// Exists in the metastore, but never resolved through the cache yet.
	assert.False(t, cat.TableExists(ctx, "tests", "t"))

	_, err := cat.Table(ctx, "tests", "t")
	require.NoError(t, err)
	assert.True(t, cat.TableExists(ctx, "tests", "t"))
}

func TestSchemaNamesEvictsDroppedSchemas(t *testing.T) {
	ctx := context.Background()
	cat, store := newTestCatalog(t)

	require.NoError(t, cat.RegisterSchema(ctx, "tests", nil))
	names, err := cat.SchemaNames(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "TESTS")

	require.NoError(t, store.DeleteSchema(ctx, "embucket", "tests"))
	names, err = cat.SchemaNames(ctx)
	require.NoError(t, err)
	assert.NotContains(t, names, "TESTS")
}
