package statestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	rec := SessionRecord{SessionID: "sess-1", CreatedAt: 100}
	require.NoError(t, store.PutSession(ctx, rec))

	got, err := store.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	require.NoError(t, store.UpdateSession(ctx, rec))
	got, err = store.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.NotNil(t, got.UpdatedAt)

	require.NoError(t, store.DeleteSession(ctx, "sess-1"))
	_, err = store.GetSession(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreQueryLookupsByAllKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	rec := QueryRecord{
		QueryID:   "q-1",
		RequestID: "r-1",
		SessionID: "sess-1",
		SQLText:   "select 1",
		Status:    QueryStatusRunning,
		StartedAt: 100,
	}
	require.NoError(t, store.PutQuery(ctx, rec))

	byID, err := store.GetQuery(ctx, "q-1")
	require.NoError(t, err)
	assert.Equal(t, rec, byID)

	byRequest, err := store.GetQueryByRequestID(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, rec, byRequest)

	bySession, err := store.GetQueriesBySessionID(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, bySession, 1)
	assert.Equal(t, rec, bySession[0])

	require.NoError(t, store.DeleteQuery(ctx, "q-1"))
	_, err = store.GetQuery(ctx, "q-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreGetQueryByRequestIDNotFound(t *testing.T) {
	store := NewMemStore()
	_, err := store.GetQueryByRequestID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
