package metastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Embucket/embucket-sub001/internal/apierr"
	"github.com/Embucket/embucket-sub001/internal/volume"
)

func newTestMetastore(t *testing.T) *InMemory {
	t.Helper()
	return NewInMemory(5, 30)
}

func TestCreateDatabaseRequiresExistingVolume(t *testing.T) {
	ctx := context.Background()
	m := newTestMetastore(t)

	err := m.CreateDatabase(ctx, Database{Ident: "db1", VolumeName: "missing"})
	require.Error(t, err)
	apiErr, ok := err.(*apierr.Error)
	require.True(t, ok)
	assert.Equal(t, apierr.KindValidation, apiErr.Kind)
}

func TestVolumeCannotBeDeletedWhileReferenced(t *testing.T) {
	ctx := context.Background()
	m := newTestMetastore(t)

	require.NoError(t, m.CreateVolume(ctx, volume.Volume{Ident: "v1", Type: volume.TypeMemory}))
	require.NoError(t, m.CreateDatabase(ctx, Database{Ident: "db1", VolumeName: "v1"}))

	err := m.DeleteVolume(ctx, "v1")
	require.Error(t, err)
	apiErr, ok := err.(*apierr.Error)
	require.True(t, ok)
	assert.Equal(t, apierr.KindObjectInUse, apiErr.Kind)

	require.NoError(t, m.DeleteDatabase(ctx, "db1"))
	require.NoError(t, m.DeleteVolume(ctx, "v1"))
}

func TestCaseInsensitiveTableLookup(t *testing.T) {
	ctx := context.Background()
	m := newTestMetastore(t)

	require.NoError(t, m.CreateVolume(ctx, volume.Volume{Ident: "v1", Type: volume.TypeMemory}))
	require.NoError(t, m.CreateDatabase(ctx, Database{Ident: "embucket", VolumeName: "v1"}))
	require.NoError(t, m.CreateSchema(ctx, Schema{Database: "embucket", Ident: "tests"}))
	require.NoError(t, m.CreateTable(ctx, Table{Database: "embucket", Schema: "tests", Ident: "t"}))

	for _, ident := range []TableIdent{
		{Database: "embucket", Schema: "tests", Table: "t"},
		{Database: "EMBUCKET", Schema: "TESTS", Table: "T"},
		{Database: "Embucket", Schema: "Tests", Table: "t"},
	} {
		table, err := m.GetTable(ctx, ident)
		require.NoError(t, err)
		assert.Equal(t, "T", table.Ident)
	}
}

func TestSchemaCreateRequiresDatabase(t *testing.T) {
	ctx := context.Background()
	m := newTestMetastore(t)

	err := m.CreateSchema(ctx, Schema{Database: "missing", Ident: "s"})
	require.Error(t, err)
}

func TestTableObjectStoreResolvesMemoryVolume(t *testing.T) {
	ctx := context.Background()
	m := newTestMetastore(t)

	require.NoError(t, m.CreateVolume(ctx, volume.Volume{Ident: "v1", Type: volume.TypeMemory}))
	require.NoError(t, m.CreateDatabase(ctx, Database{Ident: "db1", VolumeName: "v1"}))
	require.NoError(t, m.CreateSchema(ctx, Schema{Database: "db1", Ident: "s1"}))
	require.NoError(t, m.CreateTable(ctx, Table{Database: "db1", Schema: "s1", Ident: "t1"}))

	handle, err := m.TableObjectStore(ctx, TableIdent{Database: "db1", Schema: "s1", Table: "t1"})
	require.NoError(t, err)
	assert.Equal(t, "v1", handle.Volume().Ident)
}
