package metastore

import (
	"context"

	"github.com/Embucket/embucket-sub001/internal/volume"
)

// Metastore is the authoritative store of volume/database/schema/table
// identity records. All operations are async (context-bound) and
// atomic at the record level.
type Metastore interface {
	CreateVolume(ctx context.Context, vol volume.Volume) error
	GetVolume(ctx context.Context, ident string) (volume.Volume, error)
	DeleteVolume(ctx context.Context, ident string) error

	CreateDatabase(ctx context.Context, db Database) error
	GetDatabase(ctx context.Context, ident string) (Database, error)
	ListDatabases(ctx context.Context) ([]Database, error)
	DeleteDatabase(ctx context.Context, ident string) error

	CreateSchema(ctx context.Context, schema Schema) error
	GetSchema(ctx context.Context, database, ident string) (Schema, error)
	ListSchemas(ctx context.Context, database string) ([]Schema, error)
	DeleteSchema(ctx context.Context, database, ident string) error

	CreateTable(ctx context.Context, table Table) error
	GetTable(ctx context.Context, ident TableIdent) (Table, error)
	ListTables(ctx context.Context, database, schema string) ([]Table, error)
	DeleteTable(ctx context.Context, ident TableIdent) error

	// TableObjectStore returns an object-store client scoped to the
	// table's volume, or nil if the table (or its database/volume) is
	// not found.
	TableObjectStore(ctx context.Context, ident TableIdent) (volume.Handle, error)

	CreateMaterializedView(ctx context.Context, view MaterializedView) error
	GetMaterializedView(ctx context.Context, ident TableIdent) (MaterializedView, error)
	DropMaterializedView(ctx context.Context, ident TableIdent) error
}
