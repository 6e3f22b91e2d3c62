// Package catalog implements the two-level (schema → table) caching
// layer over the metastore + Iceberg catalog, per spec §4.2.
package catalog

import (
	"time"

	"github.com/Embucket/embucket-sub001/internal/metastore"
)

// CachedSchema is the schema-cache entry: the schema record plus the
// set of table names known to exist under it (refreshed on listing
// passes).
type CachedSchema struct {
	Schema    metastore.Schema
	CachedAt  time.Time
}

// CachedTable is the table-cache entry. MetadataLocation is compared
// against the underlying Iceberg catalog on each resolve to satisfy
// the coherence invariant in spec §3: a cache entry is never returned
// if the backing metadata location has since changed without a
// refresh.
type CachedTable struct {
	Table            metastore.Table
	MetadataLocation string
	CachedAt         time.Time
}
