package resultset

import (
	"database/sql"
	"testing"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Embucket/embucket-sub001/internal/embucketlog"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNullDecimalStringRendersOnlyWhenPresent(t *testing.T) {
	var n NullDecimal
	assert.Equal(t, "", n.String())

	nd := n
	nd.Present = true
	assert.NotPanics(t, func() { _ = nd.String() })
}

func TestNullJsonRoundTripsThroughMarshal(t *testing.T) {
	n := NullJson{Present: true, Value: map[string]interface{}{"a": 1}}
	assert.JSONEq(t, `{"a":1}`, n.String())

	var empty NullJson
	assert.Equal(t, "", empty.String())
}

func TestNullArrayRendersCommaSeparatedBraceList(t *testing.T) {
	n := NullArray{Present: true, Value: []interface{}{"x", "y"}}
	assert.Equal(t, "[x,y]", n.String())

	var empty NullArray
	assert.Equal(t, "", empty.String())
}

func TestJSONSerializerRendersMixedColumnTypes(t *testing.T) {
	db := openTestDB(t)
	rows, err := db.Query(`SELECT
		1::INTEGER AS i,
		CAST(NULL AS INTEGER) AS i_null,
		3.5::DOUBLE AS d,
		'hello'::VARCHAR AS s,
		true AS b,
		DATE '2024-01-02' AS dt`)
	require.NoError(t, err)

	s := NewJSONSerializer(embucketlog.New(embucketlog.LevelError))
	env, err := s.Serialize(rows)
	require.NoError(t, err)

	require.Len(t, env.RowType, 6)
	assert.Equal(t, RowTypeFixed, env.RowType[0].Type)
	assert.Equal(t, RowTypeReal, env.RowType[2].Type)
	assert.Equal(t, RowTypeText, env.RowType[3].Type)
	assert.Equal(t, RowTypeBoolean, env.RowType[4].Type)
	assert.Equal(t, RowTypeDate, env.RowType[5].Type)

	require.Len(t, env.Rows, 1)
	row := env.Rows[0]
	require.NotNil(t, row[0])
	assert.Equal(t, "1", *row[0])
	assert.Nil(t, row[1])
	require.NotNil(t, row[3])
	assert.Equal(t, "hello", *row[3])
	require.NotNil(t, row[4])
	assert.Equal(t, "true", *row[4])
	require.NotNil(t, row[5])
	assert.Equal(t, "2024-01-02", *row[5])
}
