package catalog

import (
	"strings"

	"github.com/Embucket/embucket-sub001/internal/metastore"
)

// CaseInsensitiveTable wraps a metastore.Table so that query
// expressions using lowercase identifiers match the stored uppercase
// schema: column references are rewritten case-insensitively before
// pushdown, and the physical output is projected to lowercase aliases
// so downstream planning always sees a consistent lowercase schema
// (spec §4.2 / DESIGN NOTES). For table providers whose field names
// are already lowercase, LowercaseColumn is a pass-through.
type CaseInsensitiveTable struct {
	table   metastore.Table
	columns []string // canonical (uppercase) column names, if known
}

func NewCaseInsensitiveTable(table metastore.Table) *CaseInsensitiveTable {
	return &CaseInsensitiveTable{table: table}
}

func (t *CaseInsensitiveTable) Ident() metastore.TableIdent {
	return metastore.TableIdent{Database: t.table.Database, Schema: t.table.Schema, Table: t.table.Ident}
}

func (t *CaseInsensitiveTable) Table() metastore.Table { return t.table }

// WithColumns attaches the table's canonical column names, enabling
// ResolveColumn; returns t for chaining.
func (t *CaseInsensitiveTable) WithColumns(columns []string) *CaseInsensitiveTable {
	t.columns = columns
	return t
}

// ResolveColumn rewrites a query-supplied identifier to the table's
// canonical (uppercase) column name, matching case-insensitively. If
// the table has no known column list, or none matches, the lowercased
// input is returned unchanged (pass-through behavior for providers
// whose fields are already lowercase).
func (t *CaseInsensitiveTable) ResolveColumn(ident string) string {
	for _, c := range t.columns {
		if strings.EqualFold(c, ident) {
			return c
		}
	}
	return strings.ToLower(ident)
}

// LowercaseColumn projects a canonical column name to the lowercase
// alias downstream planning expects.
func (t *CaseInsensitiveTable) LowercaseColumn(canonical string) string {
	return strings.ToLower(canonical)
}

// LowercaseSchema returns the table's column list projected to
// lowercase aliases, the contract downstream logical plans rely on.
func (t *CaseInsensitiveTable) LowercaseSchema() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = strings.ToLower(c)
	}
	return out
}
