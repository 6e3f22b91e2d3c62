package executor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/Embucket/embucket-sub001/internal/apierr"
	"github.com/Embucket/embucket-sub001/internal/catalog"
	"github.com/Embucket/embucket-sub001/internal/embucketlog"
	"github.com/Embucket/embucket-sub001/internal/registry"
	"github.com/Embucket/embucket-sub001/internal/session"
	"github.com/Embucket/embucket-sub001/internal/statestore"
)

// Column describes one output column of a QueryResult.
type Column struct {
	Name     string
	TypeName string
	Nullable bool
}

// QueryResult is the successful outcome of Executor.Query: column
// descriptors plus row data, still in driver-native form — serialized
// to the wire format by the resultset package.
type QueryResult struct {
	QueryID    string
	Columns    []Column
	Rows       *sql.Rows
	Statement  string
	Duration   time.Duration
}

// ExecutionTaskResult is the tagged outcome of the completion/
// cancellation/timeout race (spec §4.3/§5): exactly one of Result or
// Err is set.
type ExecutionTaskResult struct {
	Result *QueryResult
	Err    error
}

// Config bundles the executor's tunables, sourced from config.Config.
type Config struct {
	MaxConcurrencyLevel int64
	QueryTimeoutSecs    int
	MemPool             MemPoolType
	MemPoolSizeMB       int
	DiskPoolSizeMB      int
}

// queryEngine is the subset of Engine the executor depends on,
// narrowed to an interface so the submission/race algorithm can be
// tested against a fake engine with controllable timing instead of a
// live DuckDB connection.
type queryEngine interface {
	QueryContext(ctx context.Context, query string) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string) (sql.Result, error)
	Close() error
}

// Executor implements the submission algorithm of spec §4.3/§5: admit
// under a bounded concurrency semaphore, run the query on the engine
// in its own goroutine, and race completion against cancellation and
// timeout.
type Executor struct {
	cfg             Config
	engine          queryEngine
	sessions        *session.Store
	registry        *registry.Registry
	sem             *semaphore.Weighted
	pool            *MemPool
	store           statestore.StateStore
	catalog         *catalog.CachingCatalog
	catalogDatabase string
	log             *embucketlog.Logger
}

// WithStateStore attaches the optional durable query-history mirror
// (spec §4.9): once set, Query persists a QueryRecord at submission and
// updates it to its terminal status on completion.
func (e *Executor) WithStateStore(store statestore.StateStore) *Executor {
	e.store = store
	return e
}

// WithCatalog attaches the Caching Catalog that sits between query
// submission and the engine (spec §4.2): once set, Query resolves
// every schema-qualified table reference through cat before handing
// sqlText to the engine, and mirrors simple DDL back into it on
// success.
func (e *Executor) WithCatalog(cat *catalog.CachingCatalog, database string) *Executor {
	e.catalog = cat
	e.catalogDatabase = database
	return e
}

func New(cfg Config, engine *Engine, sessions *session.Store, reg *registry.Registry, log *embucketlog.Logger) *Executor {
	return newWithEngine(cfg, engine, sessions, reg, log)
}

func newWithEngine(cfg Config, engine queryEngine, sessions *session.Store, reg *registry.Registry, log *embucketlog.Logger) *Executor {
	return &Executor{
		cfg:      cfg,
		engine:   engine,
		sessions: sessions,
		registry: reg,
		sem:      semaphore.NewWeighted(cfg.MaxConcurrencyLevel),
		pool:     NewMemPool(cfg.MemPool, cfg.MemPoolSizeMB),
		log:      log,
	}
}

type executionOutcome struct {
	result *QueryResult
	err    error
}

// Query implements the submission algorithm (spec §4.3 steps 1-7):
//  1. resolve session_id → Session (apierr.KindValidation if unknown/expired)
//  2. allocate a fresh query_id (UUID v4)
//  3. register (query_id, request_id, sql_text, session_id) in the registry
//  4. acquire a concurrency slot, cancellably
//  5. spawn the engine query in its own goroutine
//  6. race completion / cancellation / timeout via select
//  7. deregister and release the slot before returning
func (e *Executor) Query(ctx context.Context, sessionID, requestID, sqlText string) (*QueryResult, error) {
	sess, ok := e.sessions.Get(sessionID)
	if !ok {
		return nil, apierr.New(apierr.KindValidation, "unknown or expired session: "+sessionID)
	}

	if applySessionStatement(sess, sqlText) {
		return e.sessionStatementResult(ctx, requestID, sqlText)
	}

	if err := e.resolveCatalogTables(ctx, sqlText); err != nil {
		return nil, err
	}

	queryID := uuid.NewString()
	rq, queryCtx := registry.NewRunningQuery(ctx, queryID, requestID, sqlText, sessionID)
	if err := e.registry.Register(rq); err != nil {
		return nil, err
	}
	defer e.registry.Deregister(queryID)

	if e.cfg.QueryTimeoutSecs > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(queryCtx, time.Duration(e.cfg.QueryTimeoutSecs)*time.Second)
		defer cancel()
	}

	if err := e.sem.Acquire(queryCtx, 1); err != nil {
		return nil, e.classifyRaceError(queryCtx, err)
	}
	defer e.sem.Release(1)

	e.pool.Reserve(queryID, int64(e.cfg.MemPoolSizeMB))
	defer e.pool.Release(queryID)

	start := time.Now()
	e.recordQueryStart(ctx, queryID, requestID, sessionID, sqlText, start)

	outcome := make(chan executionOutcome, 1)
	go e.run(queryCtx, queryID, sqlText, outcome)

	select {
	case res := <-outcome:
		if res.err != nil {
			e.recordQueryEnd(ctx, queryID, statestore.QueryStatusFailed, res.err, 0)
			return nil, res.err
		}
		res.result.Duration = time.Since(start)
		e.recordQueryEnd(ctx, queryID, statestore.QueryStatusSuccessful, nil, 0)
		e.syncCatalogDDL(ctx, sqlText)
		return res.result, nil
	case <-queryCtx.Done():
		err := e.classifyRaceError(queryCtx, queryCtx.Err())
		e.recordQueryEnd(ctx, queryID, statestore.QueryStatusFailed, err, 0)
		return nil, err
	}
}

// sessionStatementResult builds the synthetic successful QueryResult
// returned for SET/UNSET/USE statements applySessionStatement already
// applied directly to the session: these never reach the engine as
// SQL, so the zero-row result comes from a trivially-false predicate
// query instead, just to get a real *sql.Rows the resultset serializer
// can drive.
func (e *Executor) sessionStatementResult(ctx context.Context, requestID, sqlText string) (*QueryResult, error) {
	queryID := uuid.NewString()
	rows, err := e.engine.QueryContext(ctx, "SELECT 1 WHERE 1 = 0")
	if err != nil {
		return nil, apierr.Wrap(apierr.KindBackend, "engine execution failed", err)
	}
	cols, err := describeColumns(rows)
	if err != nil {
		rows.Close()
		return nil, apierr.Wrap(apierr.KindInternal, "describing result columns", err)
	}
	return &QueryResult{QueryID: queryID, Columns: cols, Rows: rows, Statement: sqlText}, nil
}

// recordQueryStart and recordQueryEnd persist the optional query-history
// mirror (spec §4.9): a no-op whenever no StateStore is configured.
func (e *Executor) recordQueryStart(ctx context.Context, queryID, requestID, sessionID, sqlText string, start time.Time) {
	if e.store == nil {
		return
	}
	if err := e.store.PutQuery(ctx, statestore.QueryRecord{
		QueryID:   queryID,
		RequestID: requestID,
		SessionID: sessionID,
		SQLText:   sqlText,
		Status:    statestore.QueryStatusRunning,
		StartedAt: start.Unix(),
	}); err != nil {
		e.log.Warn(fmt.Sprintf("recording query start for %s: %v", queryID, err))
	}
}

func (e *Executor) recordQueryEnd(ctx context.Context, queryID string, status statestore.QueryStatus, resultErr error, rowCount int64) {
	if e.store == nil {
		return
	}
	rec, err := e.store.GetQuery(ctx, queryID)
	if err != nil {
		e.log.Warn(fmt.Sprintf("loading query record %s for update: %v", queryID, err))
		return
	}
	finished := time.Now().Unix()
	rec.Status = status
	rec.FinishedAt = &finished
	if resultErr != nil {
		rec.ErrorCode = string(apierr.As(resultErr).Code())
	}
	if rowCount > 0 {
		rec.ResultRows = &rowCount
	}
	if err := e.store.UpdateQuery(ctx, rec); err != nil {
		e.log.Warn(fmt.Sprintf("recording query end for %s: %v", queryID, err))
	}
}

// classifyRaceError maps a lost select race to the right apierr.Kind:
// explicit cancellation (registry.Cancel tripped the token) vs. a
// timeout the executor itself imposed.
func (e *Executor) classifyRaceError(ctx context.Context, cause error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return apierr.New(apierr.KindTimeout, "query exceeded the configured timeout")
	}
	return apierr.New(apierr.KindCancelled, "query was cancelled")
}

// run executes sqlText on the engine and reports the outcome,
// recovering from engine panics (e.g. a DuckDB driver fault) and
// reporting them as an internal error rather than crashing the
// process — isolating one query's failure from the rest.
func (e *Executor) run(ctx context.Context, queryID, sqlText string, outcome chan<- executionOutcome) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error(fmt.Sprintf("panic executing query %s: %v", queryID, r))
			outcome <- executionOutcome{err: apierr.New(apierr.KindInternal, fmt.Sprintf("internal error executing query: %v", r))}
		}
	}()

	rows, err := e.engine.QueryContext(ctx, sqlText)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			outcome <- executionOutcome{err: e.classifyRaceError(ctx, ctxErr)}
			return
		}
		outcome <- executionOutcome{err: classifyEngineError(err)}
		return
	}

	cols, err := describeColumns(rows)
	if err != nil {
		rows.Close()
		outcome <- executionOutcome{err: apierr.Wrap(apierr.KindInternal, "describing result columns", err)}
		return
	}

	outcome <- executionOutcome{result: &QueryResult{
		QueryID:   queryID,
		Columns:   cols,
		Rows:      rows,
		Statement: sqlText,
	}}
}

func describeColumns(rows *sql.Rows) ([]Column, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	cols := make([]Column, len(types))
	for i, t := range types {
		nullable, _ := t.Nullable()
		cols[i] = Column{
			Name:     t.Name(),
			TypeName: t.DatabaseTypeName(),
			Nullable: nullable,
		}
	}
	return cols, nil
}

// AbortQuery implements the Snowflake abort-request entry point:
// cancellation is addressed by (request_id, sql_text), not query_id.
func (e *Executor) AbortQuery(requestID, sqlText string) bool {
	return e.registry.CancelByRequest(requestID, sqlText)
}

// CancelQueryID cancels by query_id directly, used by internal
// callers (e.g. session teardown cancelling its outstanding queries).
func (e *Executor) CancelQueryID(queryID string) bool {
	return e.registry.Cancel(queryID)
}

func (e *Executor) Close() error {
	return e.engine.Close()
}
