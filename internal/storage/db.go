package storage

import (
	"sort"

	"github.com/google/uuid"

	"github.com/SimonWaldherr/tinycol/internal/sqlerr"
)

// Database is the catalog of one engine instance: a mapping from table name
// to Table. It performs no locking; see the root package for the
// exclusive-access guard.
type Database struct {
	id     uuid.UUID
	tables map[string]*Table
	texts  *TextPool
}

// NewDatabase creates an empty catalog. internText enables deduplication of
// equal text payloads across all tables.
func NewDatabase(internText bool) *Database {
	return &Database{
		id:     uuid.New(),
		tables: map[string]*Table{},
		texts:  NewTextPool(internText),
	}
}

// ID returns the instance identifier.
func (db *Database) ID() uuid.UUID { return db.id }

// Texts returns the shared text pool.
func (db *Database) Texts() *TextPool { return db.texts }

// CreateTable registers an empty table. It fails with a schema error if the
// name is taken or the column list is invalid.
func (db *Database) CreateTable(name string, cols []ColumnDef) (*Table, error) {
	key := FoldName(name)
	if _, exists := db.tables[key]; exists {
		return nil, sqlerr.Schemaf("table %q already exists", name)
	}
	schema, err := NewSchema(cols)
	if err != nil {
		return nil, err
	}
	t := newTable(name, schema, db.texts)
	db.tables[key] = t
	return t, nil
}

// Table returns a table by name.
func (db *Database) Table(name string) (*Table, error) {
	t, ok := db.tables[FoldName(name)]
	if !ok {
		return nil, sqlerr.Execf("no such table %q", name)
	}
	return t, nil
}

// DropTable removes a table and releases its stored text.
func (db *Database) DropTable(name string) error {
	key := FoldName(name)
	t, ok := db.tables[key]
	if !ok {
		return sqlerr.Execf("no such table %q", name)
	}
	t.Compact(nil)
	delete(db.tables, key)
	return nil
}

// TableNames returns the declared table names sorted by lookup key.
func (db *Database) TableNames() []string {
	keys := make([]string, 0, len(db.tables))
	for k := range db.tables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = db.tables[k].Name
	}
	return out
}
