package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsDuplicateQueryID(t *testing.T) {
	r := New()
	rq, _ := NewRunningQuery(context.Background(), "q1", "r1", "select 1", "s1")
	require.NoError(t, r.Register(rq))

	dup, _ := NewRunningQuery(context.Background(), "q1", "r2", "select 2", "s1")
	assert.Error(t, r.Register(dup))
}

func TestRegisterRejectsDuplicateRequestSQL(t *testing.T) {
	r := New()
	rq, _ := NewRunningQuery(context.Background(), "q1", "r1", "select 1", "s1")
	require.NoError(t, r.Register(rq))

	dup, _ := NewRunningQuery(context.Background(), "q2", "r1", "select 1", "s1")
	assert.Error(t, r.Register(dup))
}

func TestCancelIsLinearizable(t *testing.T) {
	r := New()
	rq, ctx := NewRunningQuery(context.Background(), "q1", "r1", "select 1", "s1")
	require.NoError(t, r.Register(rq))

	assert.True(t, r.Cancel("q1"))

	_, ok := r.LookupByID("q1")
	assert.False(t, ok)

	select {
	case <-ctx.Done():
	default:
		t.Fatal("expected context to be cancelled")
	}
}

func TestCancelByRequestTripsToken(t *testing.T) {
	r := New()
	rq, ctx := NewRunningQuery(context.Background(), "q1", "r1", "select 1", "s1")
	require.NoError(t, r.Register(rq))

	assert.True(t, r.CancelByRequest("r1", "select 1"))
	select {
	case <-ctx.Done():
	default:
		t.Fatal("expected context to be cancelled")
	}
	_, ok := r.LookupByRequest("r1", "select 1")
	assert.False(t, ok)
}

func TestCancelUnknownReturnsFalse(t *testing.T) {
	r := New()
	assert.False(t, r.Cancel("missing"))
	assert.False(t, r.CancelByRequest("missing", "sql"))
}
