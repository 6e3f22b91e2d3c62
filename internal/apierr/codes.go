// Package apierr is the typed error taxonomy shared by the executor,
// catalog, and REST surface. The numeric codes are the Snowflake wire
// contract: clients parse them as SQL error codes, so the enum-to-code
// mapping lives in exactly one table (per spec DESIGN NOTES).
package apierr

import "net/http"

// Kind is the stable error taxonomy. Adding a new Kind requires adding a
// row to codeTable and, if it isn't a 200-transport SQL error, to
// httpStatusTable.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnsupportedFeature
	KindTimeout
	KindCancelled
	KindHistoricalQueryError
	KindDataFusionSqlParse
	KindDataFusionSql
	KindEntityNotFoundTable
	KindEntityNotFoundSchema
	KindEntityNotFoundDatabase
	KindMissingAuthToken
	KindInvalidAuthToken
	KindGZipDecompress
	KindBodyParse
	KindInvalidWarehouseId
	KindInternal
	KindMissingDbtSession
	KindObjectInUse
	KindAlreadyExists
	KindValidation
	KindBackend
)

// Code is the six-digit zero-padded numeric code Snowflake clients parse.
type Code string

var codeTable = map[Kind]string{
	KindUnknown:                "010001",
	KindUnsupportedFeature:     "000002",
	KindTimeout:                "000630",
	KindCancelled:              "000684",
	KindHistoricalQueryError:   "001001",
	KindDataFusionSqlParse:     "001003",
	KindDataFusionSql:          "002003",
	KindEntityNotFoundTable:    "002003",
	KindEntityNotFoundSchema:   "002043",
	KindEntityNotFoundDatabase: "002043",
	KindInternal:               "010001",
	KindMissingDbtSession:      "002003",
	KindObjectInUse:            "002003",
	KindAlreadyExists:          "002003",
	KindValidation:             "002003",
	KindBackend:                "010001",
}

// httpStatusTable holds the Kinds whose HTTP status is NOT the default
// 200-is-transport SQL-execution convention.
var httpStatusTable = map[Kind]int{
	KindMissingAuthToken:   http.StatusUnauthorized,
	KindInvalidAuthToken:   http.StatusUnauthorized,
	KindGZipDecompress:     http.StatusBadRequest,
	KindBodyParse:          http.StatusBadRequest,
	KindInvalidWarehouseId: http.StatusBadRequest,
}

// internalKinds are genuine internal faults: 500, stripped message, full
// chain to the log only.
var internalKinds = map[Kind]bool{
	KindInternal: true,
	KindBackend:  true,
}

// Error is the typed error carried through the call chain instead of a
// stringly-typed error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Code returns the six-digit numeric code for the error's Kind.
func (e *Error) Code() Code {
	code, ok := codeTable[e.Kind]
	if !ok {
		code = codeTable[KindUnknown]
	}
	return Code(code)
}

// HTTPStatus returns the HTTP status this error should be surfaced as.
// Auth/parse failures get their own status; everything else (including
// all SQL execution outcomes) is 200-is-transport per Snowflake's
// convention, unless it's a genuine internal fault (500).
func (e *Error) HTTPStatus() int {
	if status, ok := httpStatusTable[e.Kind]; ok {
		return status
	}
	if internalKinds[e.Kind] {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

// IsInternal reports whether the error chain (not the user message)
// should be logged in full and the user message stripped.
func (e *Error) IsInternal() bool {
	return internalKinds[e.Kind]
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// EntityNotFound picks the right Kind (and therefore code) for the
// entity that was missing: 002003 when it's a table (or the operation
// targets a table), else 002043.
func EntityNotFound(entity string, name string) *Error {
	var kind Kind
	switch entity {
	case "table":
		kind = KindEntityNotFoundTable
	case "schema":
		kind = KindEntityNotFoundSchema
	case "database":
		kind = KindEntityNotFoundDatabase
	default:
		kind = KindEntityNotFoundTable
	}
	return New(kind, name+" does not exist or not authorized.")
}

// As extracts an *Error from err, or wraps err as an internal error.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*Error); ok {
		return apiErr
	}
	return Wrap(KindInternal, "internal error", err)
}
