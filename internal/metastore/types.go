// Package metastore persists volume/database/schema/table identity
// records and resolves per-table object-store handles, per spec §4.1.
package metastore

// Database is `{ ident, volume_ident, properties }`, unique by ident.
type Database struct {
	Ident      string
	VolumeName string
	Properties map[string]string
}

// Schema is `{ database_ident, schema_ident, properties }`, unique by
// (database, schema).
type Schema struct {
	Database   string
	Ident      string
	Properties map[string]string
}

// Table is `{ database, schema, table, metadata_location,
// iceberg_metadata }`, unique by (database, schema, table). Names are
// stored as uppercase canonicals; all lookups are case-insensitive.
type Table struct {
	Database         string
	Schema           string
	Ident            string
	MetadataLocation string
	IcebergMetadata  []byte
}

// MaterializedView — grounded on the teacher's
// IcebergMaterializedView/CreateMaterializedView contract. Not part of
// the Caching Catalog's hot path: always fully-qualified, no
// case-insensitive wrapper (SPEC_FULL.md §3.1).
type MaterializedView struct {
	Database   string
	Schema     string
	Ident      string
	Definition string
}

// TableIdent fully qualifies a table for registry/cache keys.
type TableIdent struct {
	Database string
	Schema   string
	Table    string
}

func (t TableIdent) String() string {
	return t.Database + "." + t.Schema + "." + t.Table
}
