// Package resultset serializes a QueryResult to either of the two
// wire formats a session can request: JSON rows or base64 Arrow IPC,
// per spec §4.6.
package resultset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/marcboeker/go-duckdb/v2"
)

// RowType is the Snowflake wire type string carried in each column
// descriptor (GLOSSARY "rowType").
type RowType string

const (
	RowTypeFixed        RowType = "FIXED"
	RowTypeReal         RowType = "REAL"
	RowTypeText         RowType = "TEXT"
	RowTypeBoolean      RowType = "BOOLEAN"
	RowTypeDate         RowType = "DATE"
	RowTypeTime         RowType = "TIME"
	RowTypeTimestampNTZ RowType = "TIMESTAMP_NTZ"
	RowTypeTimestampTZ  RowType = "TIMESTAMP_TZ"
	RowTypeVariant      RowType = "VARIANT"
	RowTypeArray        RowType = "ARRAY"
	RowTypeObject       RowType = "OBJECT"
	RowTypeBinary       RowType = "BINARY"
)

// ColumnDescriptor is one entry of the result's "rowtype" metadata
// array.
type ColumnDescriptor struct {
	Name     string  `json:"name"`
	Type     RowType `json:"type"`
	Nullable bool    `json:"nullable"`
}

////////////////////////////////////////////////////////////////////////////////////////////////////
// Null-wrapping Scanner types for DuckDB's non-stdlib driver value types,
// adapted from the teacher's response_handler.go (NullDecimal/NullInterval/
// NullJson/NullArray), retargeted to render Snowflake-wire string values
// instead of Postgres text-format output.

type NullDecimal struct {
	Present bool
	Value   duckdb.Decimal
}

func (n *NullDecimal) Scan(value interface{}) error {
	if value == nil {
		n.Present = false
		return nil
	}
	n.Present = true
	n.Value = value.(duckdb.Decimal)
	return nil
}

func (n NullDecimal) String() string {
	if !n.Present {
		return ""
	}
	return fmt.Sprintf("%v", n.Value.Float64())
}

type NullInterval struct {
	Present bool
	Value   duckdb.Interval
}

func (n *NullInterval) Scan(value interface{}) error {
	if value == nil {
		n.Present = false
		return nil
	}
	n.Present = true
	n.Value = value.(duckdb.Interval)
	return nil
}

func (n NullInterval) String() string {
	if !n.Present {
		return ""
	}
	return fmt.Sprintf("%d months %d days %d microseconds", n.Value.Months, n.Value.Days, n.Value.Micros)
}

// NullJson carries DuckDB STRUCT/JSON scan results, rendered as
// Snowflake's OBJECT/VARIANT wire value: a JSON-encoded string.
type NullJson struct {
	Present bool
	Value   interface{}
}

func (n *NullJson) Scan(value interface{}) error {
	if value == nil {
		n.Present = false
		return nil
	}
	n.Present = true
	n.Value = value
	return nil
}

func (n NullJson) String() string {
	if !n.Present {
		return ""
	}
	b, err := json.Marshal(n.Value)
	if err != nil {
		return ""
	}
	return string(b)
}

// NullArray carries DuckDB LIST scan results, rendered as Snowflake's
// ARRAY wire value: a JSON array of string elements.
type NullArray struct {
	Present bool
	Value   []interface{}
}

func (n *NullArray) Scan(value interface{}) error {
	if value == nil {
		n.Present = false
		return nil
	}
	n.Present = true
	n.Value = value.([]interface{})
	return nil
}

func (n NullArray) String() string {
	if !n.Present {
		return ""
	}
	elems := make([]string, 0, len(n.Value))
	for _, v := range n.Value {
		switch vv := v.(type) {
		case []uint8:
			elems = append(elems, string(vv))
		default:
			elems = append(elems, fmt.Sprintf("%v", vv))
		}
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(elems); err != nil {
		return ""
	}
	w.Flush()
	return "[" + strings.TrimRight(buf.String(), "\n") + "]"
}
