package metastore

import (
	"context"
	"strings"
	"sync"

	"github.com/Embucket/embucket-sub001/internal/volume"
)

// canonical upper-cases identifiers: the data model stores canonicals
// uppercase, all lookups are case-insensitive (spec §3).
func canonical(s string) string { return strings.ToUpper(s) }

// InMemory is the default Metastore implementation: a mutex-protected
// set of maps, matching the teacher's own mutex-protected-map idiom in
// catalog_cache.go (no third-party concurrent-map library needed here;
// the metastore is the single source of truth, not a hot read path).
type InMemory struct {
	mu sync.RWMutex

	volumes   map[string]volume.Volume
	databases map[string]Database
	schemas   map[string]Schema // key: database/schema
	tables    map[string]Table  // key: database/schema/table
	views     map[string]MaterializedView

	connectTimeoutSecs int
	timeoutSecs        int
}

func NewInMemory(objectStoreConnectTimeoutSecs, objectStoreTimeoutSecs int) *InMemory {
	return &InMemory{
		volumes:            make(map[string]volume.Volume),
		databases:          make(map[string]Database),
		schemas:            make(map[string]Schema),
		tables:             make(map[string]Table),
		views:              make(map[string]MaterializedView),
		connectTimeoutSecs: objectStoreConnectTimeoutSecs,
		timeoutSecs:        objectStoreTimeoutSecs,
	}
}

func schemaKey(database, schema string) string {
	return canonical(database) + "/" + canonical(schema)
}

func tableKey(ident TableIdent) string {
	return canonical(ident.Database) + "/" + canonical(ident.Schema) + "/" + canonical(ident.Table)
}

// Volumes -------------------------------------------------------------------

func (m *InMemory) CreateVolume(ctx context.Context, vol volume.Volume) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ident := canonical(vol.Ident)
	if _, ok := m.volumes[ident]; ok {
		return ErrAlreadyExists("volume", vol.Ident)
	}
	vol.Ident = ident
	m.volumes[ident] = vol
	return nil
}

func (m *InMemory) GetVolume(ctx context.Context, ident string) (volume.Volume, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	vol, ok := m.volumes[canonical(ident)]
	if !ok {
		return volume.Volume{}, ErrNotFound("volume", ident)
	}
	return vol, nil
}

func (m *InMemory) DeleteVolume(ctx context.Context, ident string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := canonical(ident)
	if _, ok := m.volumes[key]; !ok {
		return ErrNotFound("volume", ident)
	}
	for _, db := range m.databases {
		if canonical(db.VolumeName) == key {
			return ErrObjectInUse("volume", ident)
		}
	}
	delete(m.volumes, key)
	return nil
}

// Databases -------------------------------------------------------------------

func (m *InMemory) CreateDatabase(ctx context.Context, db Database) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ident := canonical(db.Ident)
	if _, ok := m.databases[ident]; ok {
		return ErrAlreadyExists("database", db.Ident)
	}
	if _, ok := m.volumes[canonical(db.VolumeName)]; !ok {
		return ErrValidation("database " + db.Ident + " references unknown volume " + db.VolumeName)
	}
	db.Ident = ident
	m.databases[ident] = db
	return nil
}

func (m *InMemory) GetDatabase(ctx context.Context, ident string) (Database, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	db, ok := m.databases[canonical(ident)]
	if !ok {
		return Database{}, ErrNotFound("database", ident)
	}
	return db, nil
}

func (m *InMemory) ListDatabases(ctx context.Context) ([]Database, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Database, 0, len(m.databases))
	for _, db := range m.databases {
		out = append(out, db)
	}
	return out, nil
}

func (m *InMemory) DeleteDatabase(ctx context.Context, ident string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := canonical(ident)
	if _, ok := m.databases[key]; !ok {
		return ErrNotFound("database", ident)
	}
	for _, s := range m.schemas {
		if canonical(s.Database) == key {
			return ErrObjectInUse("database", ident)
		}
	}
	delete(m.databases, key)
	return nil
}

// Schemas -------------------------------------------------------------------

func (m *InMemory) CreateSchema(ctx context.Context, schema Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.databases[canonical(schema.Database)]; !ok {
		return ErrNotFound("database", schema.Database)
	}
	key := schemaKey(schema.Database, schema.Ident)
	if _, ok := m.schemas[key]; ok {
		return ErrAlreadyExists("schema", schema.Ident)
	}
	schema.Database = canonical(schema.Database)
	schema.Ident = canonical(schema.Ident)
	m.schemas[key] = schema
	return nil
}

func (m *InMemory) GetSchema(ctx context.Context, database, ident string) (Schema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	schema, ok := m.schemas[schemaKey(database, ident)]
	if !ok {
		return Schema{}, ErrNotFound("schema", ident)
	}
	return schema, nil
}

func (m *InMemory) ListSchemas(ctx context.Context, database string) ([]Schema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dbKey := canonical(database)
	out := []Schema{}
	for _, s := range m.schemas {
		if s.Database == dbKey {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *InMemory) DeleteSchema(ctx context.Context, database, ident string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := schemaKey(database, ident)
	if _, ok := m.schemas[key]; !ok {
		return ErrNotFound("schema", ident)
	}
	prefix := canonical(database) + "/" + canonical(ident) + "/"
	for k := range m.tables {
		if strings.HasPrefix(k, prefix) {
			return ErrObjectInUse("schema", ident)
		}
	}
	delete(m.schemas, key)
	return nil
}

// Tables -------------------------------------------------------------------

func (m *InMemory) CreateTable(ctx context.Context, table Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.schemas[schemaKey(table.Database, table.Schema)]; !ok {
		return ErrNotFound("schema", table.Schema)
	}
	ident := TableIdent{Database: table.Database, Schema: table.Schema, Table: table.Ident}
	key := tableKey(ident)
	if _, ok := m.tables[key]; ok {
		return ErrAlreadyExists("table", table.Ident)
	}
	table.Database = canonical(table.Database)
	table.Schema = canonical(table.Schema)
	table.Ident = canonical(table.Ident)
	m.tables[key] = table
	return nil
}

func (m *InMemory) GetTable(ctx context.Context, ident TableIdent) (Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	table, ok := m.tables[tableKey(ident)]
	if !ok {
		return Table{}, ErrNotFound("table", ident.Table)
	}
	return table, nil
}

func (m *InMemory) ListTables(ctx context.Context, database, schema string) ([]Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := canonical(database) + "/" + canonical(schema) + "/"
	out := []Table{}
	for k, t := range m.tables {
		if strings.HasPrefix(k, prefix) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *InMemory) DeleteTable(ctx context.Context, ident TableIdent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := tableKey(ident)
	if _, ok := m.tables[key]; !ok {
		return ErrNotFound("table", ident.Table)
	}
	delete(m.tables, key)
	return nil
}

func (m *InMemory) TableObjectStore(ctx context.Context, ident TableIdent) (volume.Handle, error) {
	m.mu.RLock()
	db, dbOK := m.databases[canonical(ident.Database)]
	_, tOK := m.tables[tableKey(ident)]
	m.mu.RUnlock()

	if !dbOK {
		return nil, ErrNotFound("database", ident.Database)
	}
	if !tOK {
		return nil, ErrNotFound("table", ident.Table)
	}

	vol, err := m.GetVolume(ctx, db.VolumeName)
	if err != nil {
		return nil, err
	}

	switch vol.Type {
	case volume.TypeMemory:
		return volume.NewMemoryHandle(vol), nil
	default:
		handle, err := volume.NewS3Handle(ctx, vol, m.connectTimeoutSecs, m.timeoutSecs)
		if err != nil {
			return nil, ErrBackend(err)
		}
		return handle, nil
	}
}

// Materialized views ----------------------------------------------------------

func (m *InMemory) CreateMaterializedView(ctx context.Context, view MaterializedView) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ident := TableIdent{Database: view.Database, Schema: view.Schema, Table: view.Ident}
	key := tableKey(ident)
	if _, ok := m.views[key]; ok {
		return ErrAlreadyExists("materialized view", view.Ident)
	}
	m.views[key] = view
	return nil
}

func (m *InMemory) GetMaterializedView(ctx context.Context, ident TableIdent) (MaterializedView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	view, ok := m.views[tableKey(ident)]
	if !ok {
		return MaterializedView{}, ErrNotFound("materialized view", ident.Table)
	}
	return view, nil
}

func (m *InMemory) DropMaterializedView(ctx context.Context, ident TableIdent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := tableKey(ident)
	if _, ok := m.views[key]; !ok {
		return ErrNotFound("materialized view", ident.Table)
	}
	delete(m.views, key)
	return nil
}
