package resultset

import (
	"database/sql"

	"github.com/Embucket/embucket-sub001/internal/embucketlog"
)

// Format selects the wire encoding for a query's result set, set per
// session (spec §3 Session.result_format / config DATA_FORMAT default).
type Format string

const (
	FormatJSON  Format = "json"
	FormatArrow Format = "arrow"
)

// Serialize renders rows into whichever envelope format is requested,
// returning it as an `interface{}` ready for the REST handler's JSON
// response body (*JSONEnvelope or *ArrowEnvelope).
func Serialize(format Format, rows *sql.Rows, log *embucketlog.Logger) (interface{}, error) {
	switch format {
	case FormatArrow:
		return NewArrowSerializer(log).Serialize(rows)
	default:
		return NewJSONSerializer(log).Serialize(rows)
	}
}
