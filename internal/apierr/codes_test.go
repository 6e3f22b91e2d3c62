package apierr

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeTableStability(t *testing.T) {
	cases := []struct {
		kind Kind
		code Code
	}{
		{KindUnsupportedFeature, "000002"},
		{KindTimeout, "000630"},
		{KindCancelled, "000684"},
		{KindHistoricalQueryError, "001001"},
		{KindDataFusionSqlParse, "001003"},
		{KindDataFusionSql, "002003"},
		{KindEntityNotFoundTable, "002003"},
		{KindEntityNotFoundSchema, "002043"},
		{KindEntityNotFoundDatabase, "002043"},
		{KindInternal, "010001"},
	}

	for _, c := range cases {
		err := New(c.kind, "x")
		assert.Equal(t, c.code, err.Code())
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, New(KindMissingAuthToken, "x").HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, New(KindInvalidAuthToken, "x").HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, New(KindGZipDecompress, "x").HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, New(KindBodyParse, "x").HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, New(KindInvalidWarehouseId, "x").HTTPStatus())
	assert.Equal(t, http.StatusOK, New(KindTimeout, "x").HTTPStatus())
	assert.Equal(t, http.StatusOK, New(KindCancelled, "x").HTTPStatus())
	assert.Equal(t, http.StatusOK, New(KindDataFusionSql, "x").HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, New(KindInternal, "x").HTTPStatus())
	assert.True(t, New(KindInternal, "x").IsInternal())
	assert.False(t, New(KindTimeout, "x").IsInternal())
}

func TestEntityNotFoundPicksCodeByKind(t *testing.T) {
	assert.Equal(t, Code("002003"), EntityNotFound("table", "foo").Code())
	assert.Equal(t, Code("002043"), EntityNotFound("schema", "foo").Code())
	assert.Equal(t, Code("002043"), EntityNotFound("database", "foo").Code())
}
