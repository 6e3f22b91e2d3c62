// Package statestore persists sessions and query history to an
// optional external store, per spec §4.9. Grounded on
// original_source/crates/state-store/src/state_store.rs's single-table
// PK/SK/Entity/Data design, extended with the query-history operations
// from crates/state-store/src/models/queries.rs.
package statestore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get* when no record exists for the given key.
var ErrNotFound = errors.New("statestore: not found")

// SessionRecord mirrors original_source's SessionRecord.
type SessionRecord struct {
	SessionID string     `json:"session_id"`
	CreatedAt int64       `json:"created_at"`
	UpdatedAt *int64      `json:"updated_at,omitempty"`
	TTLSecs   *int64      `json:"ttl_seconds,omitempty"`
}

// QueryStatus mirrors original_source's QueryStatus enum.
type QueryStatus string

const (
	QueryStatusCreated    QueryStatus = "created"
	QueryStatusRunning    QueryStatus = "running"
	QueryStatusSuccessful QueryStatus = "successful"
	QueryStatusFailed     QueryStatus = "failed"
)

// QueryRecord is the supplemented query-history entity (SPEC_FULL.md
// §3.1), grounded on original_source's QueryRecord, trimmed to the
// fields this service actually tracks (warehouse/user columns in the
// original are Snowflake-account concepts this service doesn't model).
type QueryRecord struct {
	QueryID     string      `json:"query_id"`
	RequestID   string      `json:"request_id"`
	SessionID   string      `json:"session_id"`
	SQLText     string      `json:"sql_text"`
	Status      QueryStatus `json:"status"`
	ErrorCode   string      `json:"error_code,omitempty"`
	StartedAt   int64       `json:"started_at"`
	FinishedAt  *int64      `json:"finished_at,omitempty"`
	ResultRows  *int64      `json:"result_rows,omitempty"`
}

// StateStore is the optional durable mirror for sessions and query
// history. The in-memory session.Store and the executor's registry
// remain canonical; a configured StateStore is a write-through upgrade
// path, per the Open Question decision recorded in DESIGN.md.
type StateStore interface {
	PutSession(ctx context.Context, rec SessionRecord) error
	GetSession(ctx context.Context, sessionID string) (SessionRecord, error)
	DeleteSession(ctx context.Context, sessionID string) error
	UpdateSession(ctx context.Context, rec SessionRecord) error

	PutQuery(ctx context.Context, rec QueryRecord) error
	GetQuery(ctx context.Context, queryID string) (QueryRecord, error)
	GetQueryByRequestID(ctx context.Context, requestID string) (QueryRecord, error)
	GetQueriesBySessionID(ctx context.Context, sessionID string) ([]QueryRecord, error)
	DeleteQuery(ctx context.Context, queryID string) error
	UpdateQuery(ctx context.Context, rec QueryRecord) error
}

func unixNow() int64 { return time.Now().Unix() }
