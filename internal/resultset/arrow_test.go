package resultset

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Embucket/embucket-sub001/internal/embucketlog"
)

func TestArrowSerializerProducesDecodableBase64Stream(t *testing.T) {
	db := openTestDB(t)
	rows, err := db.Query(`SELECT 1::INTEGER AS i, 'hi'::VARCHAR AS s, true AS b`)
	require.NoError(t, err)

	s := NewArrowSerializer(embucketlog.New(embucketlog.LevelError))
	env, err := s.Serialize(rows)
	require.NoError(t, err)

	require.Len(t, env.RowType, 3)
	assert.Equal(t, RowTypeBoolean, env.RowType[2].Type)

	raw, err := base64.StdEncoding.DecodeString(env.RowSetBase64)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}
