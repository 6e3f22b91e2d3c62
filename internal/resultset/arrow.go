package resultset

import (
	"bytes"
	"database/sql"
	"encoding/base64"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/Embucket/embucket-sub001/internal/embucketlog"
)

// ArrowEnvelope is the wire shape of an Arrow-mode query response: the
// same column metadata as JSON mode, plus the row batch as a
// base64-encoded Arrow IPC stream (spec §4.6/S6).
type ArrowEnvelope struct {
	RowType      []ColumnDescriptor `json:"rowtype"`
	RowSetBase64 string             `json:"rowsetBase64"`
}

// ArrowSerializer renders *sql.Rows into an Arrow IPC stream, used
// when the session requested ARROW result format (spec testable
// property/scenario S6).
type ArrowSerializer struct {
	log *embucketlog.Logger
}

func NewArrowSerializer(log *embucketlog.Logger) *ArrowSerializer {
	return &ArrowSerializer{log: log}
}

func (s *ArrowSerializer) Serialize(rows *sql.Rows) (*ArrowEnvelope, error) {
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	descriptors := make([]ColumnDescriptor, len(colTypes))
	fields := make([]arrow.Field, len(colTypes))
	js := NewJSONSerializer(s.log)
	for i, ct := range colTypes {
		nullable, _ := ct.Nullable()
		rt := js.rowType(ct)
		descriptors[i] = ColumnDescriptor{Name: ct.Name(), Type: rt, Nullable: nullable}
		fields[i] = arrow.Field{Name: ct.Name(), Type: arrowDataType(rt), Nullable: nullable}
	}
	schema := arrow.NewSchema(fields, nil)

	mem := memory.NewGoAllocator()
	builders := make([]array.Builder, len(fields))
	for i, f := range fields {
		builders[i] = array.NewBuilder(mem, f.Type)
		defer builders[i].Release()
	}

	for rows.Next() {
		ptrs := make([]interface{}, len(colTypes))
		for i, ct := range colTypes {
			ptrs[i] = js.scanTarget(ct)
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, ct := range colTypes {
			appendValue(builders[i], js.renderValue(ptrs[i], ct))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cols := make([]arrow.Array, len(builders))
	for i, b := range builders {
		cols[i] = b.NewArray()
		defer cols[i].Release()
	}
	numRows := int64(0)
	if len(cols) > 0 {
		numRows = int64(cols[0].Len())
	}
	record := array.NewRecord(schema, cols, numRows)
	defer record.Release()

	buf := &bytes.Buffer{}
	writer := ipc.NewWriter(buf, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := writer.Write(record); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	return &ArrowEnvelope{
		RowType:      descriptors,
		RowSetBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// arrowDataType maps a Snowflake wire RowType to the Arrow type used
// to carry it — every column is shipped as a string column regardless
// of logical type, matching the JSON serializer's "everything is its
// string representation" convention so both modes agree on content.
func arrowDataType(rt RowType) arrow.DataType {
	switch rt {
	case RowTypeBoolean:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

func appendValue(b array.Builder, v *string) {
	if v == nil {
		b.AppendNull()
		return
	}
	switch builder := b.(type) {
	case *array.BooleanBuilder:
		builder.Append(*v == "true")
	case *array.StringBuilder:
		builder.Append(*v)
	default:
		b.AppendNull()
	}
}
