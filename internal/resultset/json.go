package resultset

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/Embucket/embucket-sub001/internal/embucketlog"
)

// JSONEnvelope is the wire shape of a JSON-mode query response: column
// metadata plus rows as arrays of strings (Snowflake's array-of-arrays
// convention — every cell is transmitted as its string representation,
// NULL as a Go nil so it serializes to JSON null).
type JSONEnvelope struct {
	RowType []ColumnDescriptor `json:"rowtype"`
	Rows    [][]*string        `json:"rowset"`
}

// JSONSerializer renders *sql.Rows into a JSONEnvelope, column-typing
// and null-wrapping the way the teacher's ResponseHandler does for the
// PG wire protocol, retargeted to Snowflake row types.
type JSONSerializer struct {
	log *embucketlog.Logger
}

func NewJSONSerializer(log *embucketlog.Logger) *JSONSerializer {
	return &JSONSerializer{log: log}
}

func (s *JSONSerializer) Serialize(rows *sql.Rows) (*JSONEnvelope, error) {
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	descriptors := make([]ColumnDescriptor, len(colTypes))
	for i, ct := range colTypes {
		nullable, _ := ct.Nullable()
		descriptors[i] = ColumnDescriptor{
			Name:     ct.Name(),
			Type:     s.rowType(ct),
			Nullable: nullable,
		}
	}

	envelope := &JSONEnvelope{RowType: descriptors, Rows: [][]*string{}}

	for rows.Next() {
		ptrs := make([]interface{}, len(colTypes))
		for i, ct := range colTypes {
			ptrs[i] = s.scanTarget(ct)
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make([]*string, len(colTypes))
		for i, ct := range colTypes {
			row[i] = s.renderValue(ptrs[i], ct)
		}
		envelope.Rows = append(envelope.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return envelope, nil
}

// rowType maps a DuckDB DATABASE type name to the Snowflake wire type
// string, mirroring ColumnDescriptionTypeOid's switch shape.
func (s *JSONSerializer) rowType(ct *sql.ColumnType) RowType {
	name := ct.DatabaseTypeName()
	switch name {
	case "BOOLEAN":
		return RowTypeBoolean
	case "SMALLINT", "INTEGER", "BIGINT", "UINTEGER", "UBIGINT", "HUGEINT":
		return RowTypeFixed
	case "FLOAT", "DOUBLE":
		return RowTypeReal
	case "VARCHAR", "UUID", "BLOB":
		return RowTypeText
	case "DATE":
		return RowTypeDate
	case "TIME":
		return RowTypeTime
	case "TIMESTAMP":
		return RowTypeTimestampNTZ
	case "TIMESTAMPTZ":
		return RowTypeTimestampTZ
	case "INTERVAL":
		return RowTypeText
	case "JSON":
		return RowTypeVariant
	}
	if strings.HasPrefix(name, "DECIMAL") {
		return RowTypeFixed
	}
	if strings.HasPrefix(name, "STRUCT(") {
		return RowTypeObject
	}
	if strings.HasSuffix(name, "[]") {
		return RowTypeArray
	}
	s.log.Warn(fmt.Sprintf("result serializer: unmapped engine type %q, defaulting to TEXT", name))
	return RowTypeText
}

// scanTarget picks the Scan destination for a column's driver
// ScanType, mirroring RowValuePointer.
func (s *JSONSerializer) scanTarget(ct *sql.ColumnType) interface{} {
	switch ct.ScanType().String() {
	case "int16":
		return new(sql.NullInt16)
	case "int32":
		return new(sql.NullInt32)
	case "int64", "*big.Int":
		return new(sql.NullInt64)
	case "uint64", "float64", "float32":
		return new(sql.NullFloat64)
	case "string":
		return new(sql.NullString)
	case "[]uint8":
		return new(sql.NullString)
	case "bool":
		return new(sql.NullBool)
	case "time.Time":
		return new(sql.NullTime)
	case "duckdb.Decimal":
		return new(NullDecimal)
	case "duckdb.Interval":
		return new(NullInterval)
	case "interface {}":
		return new(NullJson)
	case "[]interface {}":
		return new(NullArray)
	}
	if strings.HasPrefix(ct.DatabaseTypeName(), "STRUCT(") {
		return new(NullJson)
	}
	s.log.Warn(fmt.Sprintf("result serializer: unmapped scan type %q for column %q, defaulting to string", ct.ScanType().String(), ct.Name()))
	return new(sql.NullString)
}

// renderValue converts a scanned destination into the wire string (nil
// for SQL NULL), mirroring RowValueBytes.
func (s *JSONSerializer) renderValue(valuePtr interface{}, ct *sql.ColumnType) *string {
	str := func(v string) *string { return &v }

	switch v := valuePtr.(type) {
	case *sql.NullInt16:
		if !v.Valid {
			return nil
		}
		return str(fmt.Sprintf("%d", v.Int16))
	case *sql.NullInt32:
		if !v.Valid {
			return nil
		}
		return str(fmt.Sprintf("%d", v.Int32))
	case *sql.NullInt64:
		if !v.Valid {
			return nil
		}
		return str(fmt.Sprintf("%d", v.Int64))
	case *sql.NullFloat64:
		if !v.Valid {
			return nil
		}
		return str(fmt.Sprintf("%v", v.Float64))
	case *sql.NullString:
		if !v.Valid {
			return nil
		}
		return str(v.String)
	case *sql.NullBool:
		if !v.Valid {
			return nil
		}
		if v.Bool {
			return str("true")
		}
		return str("false")
	case *sql.NullTime:
		if !v.Valid {
			return nil
		}
		switch ct.DatabaseTypeName() {
		case "DATE":
			return str(v.Time.Format("2006-01-02"))
		case "TIME":
			return str(v.Time.Format("15:04:05.999999"))
		case "TIMESTAMPTZ":
			return str(v.Time.Format("2006-01-02 15:04:05.999999-07:00"))
		default:
			return str(v.Time.Format("2006-01-02 15:04:05.999999"))
		}
	case *NullDecimal:
		if !v.Present {
			return nil
		}
		return str(v.String())
	case *NullInterval:
		if !v.Present {
			return nil
		}
		return str(v.String())
	case *NullJson:
		if !v.Present {
			return nil
		}
		return str(v.String())
	case *NullArray:
		if !v.Present {
			return nil
		}
		return str(v.String())
	}

	s.log.Warn(fmt.Sprintf("result serializer: unrenderable scanned value for column %q", ct.Name()))
	return nil
}
