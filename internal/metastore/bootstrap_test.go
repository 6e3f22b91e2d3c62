package metastore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Embucket/embucket-sub001/internal/embucketlog"
)

const bootstrapYAML = `
volumes:
  - ident: local
    type: memory
databases:
  - ident: embucket
    volume: local
schemas:
  - database: embucket
    schema: tests
`

func TestBootstrapIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "metastore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(bootstrapYAML), 0o644))

	m := newTestMetastore(t)
	log := embucketlog.New(embucketlog.LevelError)

	require.NoError(t, Bootstrap(ctx, m, path, log))
	require.NoError(t, Bootstrap(ctx, m, path, log))

	dbs, err := m.ListDatabases(ctx)
	require.NoError(t, err)
	assert.Len(t, dbs, 1)

	schemas, err := m.ListSchemas(ctx, "embucket")
	require.NoError(t, err)
	assert.Len(t, schemas, 1)
}

func TestResolveConfigPathRelativeToCwd(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	resolved, err := ResolveConfigPath("metastore.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "metastore.yaml"), resolved)

	resolved, err = ResolveConfigPath("/tmp/metastore.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/metastore.yaml", resolved)
}
