// Package volume models named backing-storage handles (memory, S3, S3
// Tables) per spec §3. Credentials are immutable for the lifetime of a
// Volume; deletion cascades are enforced one layer up, by the metastore.
package volume

// Type is the storage backend discriminator.
type Type string

const (
	TypeMemory    Type = "memory"
	TypeS3        Type = "s3"
	TypeS3Tables  Type = "s3_tables"
)

// Volume is a named handle to backing storage. Identity is Ident,
// unique process-wide.
type Volume struct {
	Ident string
	Type  Type

	// S3 / S3Tables fields.
	Bucket          string // S3 only
	ARN             string // S3Tables only
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // optional
}

// Handle is an object-store client scoped to a single table's volume,
// as returned by Metastore.TableObjectStore.
type Handle interface {
	// Volume is the backing Volume this handle was scoped to.
	Volume() Volume
	// RootURI returns the base URI new table data/metadata is written
	// under for this volume (e.g. "s3://bucket/prefix" or "mem://").
	RootURI() string
}
