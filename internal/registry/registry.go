// Package registry tracks in-flight queries by query_id and by
// (request_id, sql_text), supporting cancellation lookup, per spec
// §3/§4.5.
package registry

import (
	"context"
	"sync"

	"github.com/Embucket/embucket-sub001/internal/apierr"
)

// RunningQuery is `{ query_id, request_id, sql_text, session_id,
// started_at, cancellation_token, task_handle }`.
type RunningQuery struct {
	QueryID   string
	RequestID string
	SQLText   string
	SessionID string

	cancel context.CancelFunc
}

// Registry is a concurrent map with two secondary indexes. Strictly
// linearizable (spec §5): once Cancel returns, any subsequent lookup
// will not find the cancelled entry — guaranteed here because Cancel
// deregisters under the same lock it cancels under.
type Registry struct {
	mu        sync.Mutex
	byQueryID map[string]*RunningQuery
	byRequest map[string]*RunningQuery // key: requestID + "\x00" + sqlText
}

func New() *Registry {
	return &Registry{
		byQueryID: make(map[string]*RunningQuery),
		byRequest: make(map[string]*RunningQuery),
	}
}

func requestKey(requestID, sqlText string) string {
	return requestID + "\x00" + sqlText
}

// Register inserts rq into both indexes. Returns an error if
// queryID or (requestID, sqlText) is already registered (spec §3
// invariant: at most one entry per query_id; (request_id, sql_text)
// unique among in-flight queries).
func (r *Registry) Register(rq *RunningQuery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byQueryID[rq.QueryID]; ok {
		return apierr.New(apierr.KindValidation, "query_id already registered: "+rq.QueryID)
	}
	rk := requestKey(rq.RequestID, rq.SQLText)
	if _, ok := r.byRequest[rk]; ok {
		return apierr.New(apierr.KindValidation, "request already registered: "+rq.RequestID)
	}

	r.byQueryID[rq.QueryID] = rq
	r.byRequest[rk] = rq
	return nil
}

// Deregister removes queryID from both indexes.
func (r *Registry) Deregister(queryID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rq, ok := r.byQueryID[queryID]
	if !ok {
		return
	}
	delete(r.byQueryID, queryID)
	delete(r.byRequest, requestKey(rq.RequestID, rq.SQLText))
}

func (r *Registry) LookupByID(queryID string) (*RunningQuery, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rq, ok := r.byQueryID[queryID]
	return rq, ok
}

func (r *Registry) LookupByRequest(requestID, sqlText string) (*RunningQuery, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rq, ok := r.byRequest[requestKey(requestID, sqlText)]
	return rq, ok
}

// Cancel trips the cancellation token for queryID and deregisters it
// atomically; it does not wait for the task to actually terminate
// (spec §4.5). Returns false if queryID was not found.
func (r *Registry) Cancel(queryID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rq, ok := r.byQueryID[queryID]
	if !ok {
		return false
	}
	delete(r.byQueryID, queryID)
	delete(r.byRequest, requestKey(rq.RequestID, rq.SQLText))
	rq.cancel()
	return true
}

// CancelByRequest is the Snowflake abort-protocol entry point: abort
// is addressed by (request_id, sql_text), not query_id.
func (r *Registry) CancelByRequest(requestID, sqlText string) bool {
	r.mu.Lock()
	rq, ok := r.byRequest[requestKey(requestID, sqlText)]
	if ok {
		delete(r.byQueryID, rq.QueryID)
		delete(r.byRequest, requestKey(requestID, sqlText))
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	rq.cancel()
	return true
}

// NewRunningQuery builds a RunningQuery bound to a cancellable context
// derived from parent; callers use the returned context for the
// actual execution so abort_query trips it cooperatively.
func NewRunningQuery(parent context.Context, queryID, requestID, sqlText, sessionID string) (*RunningQuery, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &RunningQuery{
		QueryID:   queryID,
		RequestID: requestID,
		SQLText:   sqlText,
		SessionID: sessionID,
		cancel:    cancel,
	}, ctx
}
