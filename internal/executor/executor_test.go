package executor

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Embucket/embucket-sub001/internal/apierr"
	"github.com/Embucket/embucket-sub001/internal/embucketlog"
	"github.com/Embucket/embucket-sub001/internal/registry"
	"github.com/Embucket/embucket-sub001/internal/session"
)

// fakeEngine lets tests control exactly how long a query takes and
// whether it panics, without depending on real DuckDB timing.
type fakeEngine struct {
	delay  time.Duration
	panics bool
	err    error
}

func (f *fakeEngine) QueryContext(ctx context.Context, query string) (*sql.Rows, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.panics {
		panic("simulated engine fault")
	}
	if f.err != nil {
		return nil, f.err
	}
	// sql.Rows can't be constructed without a real driver; these tests
	// only care about the submission/race algorithm, not result
	// shaping, so "success" is a deterministic sentinel error instead
	// of a real *sql.Rows.
	return nil, errFakeEngineDone
}

var errFakeEngineDone = errors.New("fake engine: query ran to completion")

func (f *fakeEngine) Close() error { return nil }

func newTestExecutor(t *testing.T, eng queryEngine) (*Executor, *session.Store) {
	t.Helper()
	sessions := session.NewStore(60)
	reg := registry.New()
	log := embucketlog.New(embucketlog.LevelError)
	cfg := Config{
		MaxConcurrencyLevel: 2,
		QueryTimeoutSecs:    0,
		MemPool:             MemPoolFair,
		MemPoolSizeMB:       512,
	}
	return newWithEngine(cfg, eng, sessions, reg, log), sessions
}

func TestQueryRejectsUnknownSession(t *testing.T) {
	ex, _ := newTestExecutor(t, &fakeEngine{})
	_, err := ex.Query(context.Background(), "missing", "r1", "select 1")
	require.Error(t, err)
	apiErr := apierr.As(err)
	assert.Equal(t, apierr.KindValidation, apiErr.Kind)
}

func TestAbortQueryCancelsInFlightQuery(t *testing.T) {
	ex, sessions := newTestExecutor(t, &fakeEngine{delay: 200 * time.Millisecond})
	sessions.GetOrCreate("s1")

	done := make(chan error, 1)
	go func() {
		_, err := ex.Query(context.Background(), "s1", "r1", "select pg_sleep(1)")
		done <- err
	}()

	// Give the query time to register before aborting it.
	time.Sleep(20 * time.Millisecond)
	require.Eventually(t, func() bool {
		return ex.AbortQuery("r1", "select pg_sleep(1)")
	}, 100*time.Millisecond, 5*time.Millisecond)

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, apierr.KindCancelled, apierr.As(err).Kind)
	case <-time.After(time.Second):
		t.Fatal("abort did not unblock the query")
	}
}

func TestQueryTimesOutWithinBound(t *testing.T) {
	ex, sessions := newTestExecutorWithTimeout(t, &fakeEngine{delay: time.Second}, 1)
	sessions.GetOrCreate("s1")

	start := time.Now()
	_, err := ex.Query(context.Background(), "s1", "r1", "select pg_sleep(5)")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, apierr.KindTimeout, apierr.As(err).Kind)
	assert.Less(t, elapsed, 2*time.Second)
}

func newTestExecutorWithTimeout(t *testing.T, eng queryEngine, timeoutSecs int) (*Executor, *session.Store) {
	t.Helper()
	sessions := session.NewStore(60)
	reg := registry.New()
	log := embucketlog.New(embucketlog.LevelError)
	cfg := Config{
		MaxConcurrencyLevel: 2,
		QueryTimeoutSecs:    timeoutSecs,
		MemPool:             MemPoolFair,
		MemPoolSizeMB:       512,
	}
	return newWithEngine(cfg, eng, sessions, reg, log), sessions
}

func TestPanicInEngineIsIsolatedAsInternalError(t *testing.T) {
	ex, sessions := newTestExecutor(t, &fakeEngine{panics: true})
	sessions.GetOrCreate("s1")

	_, err := ex.Query(context.Background(), "s1", "r1", "select 1")
	require.Error(t, err)
	assert.Equal(t, apierr.KindInternal, apierr.As(err).Kind)
}

func TestConcurrencyIsBoundedBySemaphore(t *testing.T) {
	sessions := session.NewStore(60)
	reg := registry.New()
	log := embucketlog.New(embucketlog.LevelError)
	cfg := Config{MaxConcurrencyLevel: 1, MemPool: MemPoolFair, MemPoolSizeMB: 64}
	ex := newWithEngine(cfg, &fakeEngine{delay: 50 * time.Millisecond}, sessions, reg, log)
	sessions.GetOrCreate("s1")

	start := time.Now()
	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		i := i
		go func() {
			_, _ = ex.Query(context.Background(), "s1", "req"+string(rune('a'+i)), "select 1")
			done <- struct{}{}
		}()
	}
	<-done
	<-done
	// With a slot of 1, two 50ms queries must serialize to >= ~100ms.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
