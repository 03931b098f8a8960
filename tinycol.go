// Package tinycol provides an embeddable, in-memory columnar SQL engine for
// Go applications.
//
// TinyCol stores each table as a set of typed column vectors with null
// bitmaps and runs a small SQL dialect against them:
//   - CREATE TABLE with INT, FLOAT, TEXT and BOOL columns and NOT NULL
//   - INSERT with positional or named columns (omitted nullable columns are NULL)
//   - UPDATE and DELETE with WHERE predicates in three-valued logic
//   - SELECT with projection, WHERE, multi-column ORDER BY and LIMIT
//
// # Basic Usage
//
//	db := tinycol.New()
//
//	db.Execute("CREATE TABLE users (id INT NOT NULL, name TEXT)")
//	db.Execute("INSERT INTO users VALUES (1, 'Alice')")
//
//	rs, _ := db.Query("SELECT name FROM users WHERE id = 1")
//	for _, row := range rs.Rows {
//	    fmt.Println(row)
//	}
//
// # Concurrency
//
// A DB serializes mutating statements and lets SELECTs run in parallel with
// each other. Text values returned in a ResultSet are immutable and may be
// read from any goroutine.
//
// # Errors
//
// Every error carries a kind that can be matched with errors.Is against
// ErrLex, ErrParse, ErrSchema and ErrExecution.
//
// For database/sql access, see the driver package.
package tinycol

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/SimonWaldherr/tinycol/internal/config"
	"github.com/SimonWaldherr/tinycol/internal/engine"
	"github.com/SimonWaldherr/tinycol/internal/logging"
	"github.com/SimonWaldherr/tinycol/internal/sqlerr"
	"github.com/SimonWaldherr/tinycol/internal/storage"
)

// ============================================================================
// Core Types - Re-exported from internal packages for public API
// ============================================================================

// Value is a single typed cell: NULL, INT, FLOAT, TEXT or BOOL.
type Value = storage.Value

// Row is an ordered sequence of values, one per projected column.
type Row = storage.Row

// Text is an immutable, shared string handle.
type Text = storage.Text

// Kind is the runtime tag of a Value.
type Kind = storage.Kind

// DataType is a declared column type.
type DataType = storage.DataType

// ColumnDef describes one column of a table schema.
type ColumnDef = storage.ColumnDef

// ResultSet holds the column names and rows of a SELECT.
type ResultSet = engine.ResultSet

// Outcome reports the effect of a CREATE TABLE, INSERT, UPDATE or DELETE.
type Outcome = engine.Outcome

// OutcomeKind tells which statement produced an Outcome.
type OutcomeKind = engine.OutcomeKind

// Statement is a parsed SQL statement.
type Statement = engine.Statement

// Error is the concrete error type of every failure.
type Error = sqlerr.Error

const (
	KindNull  = storage.KindNull
	KindInt   = storage.KindInt
	KindFloat = storage.KindFloat
	KindText  = storage.KindText
	KindBool  = storage.KindBool
)

const (
	IntType   = storage.IntType
	FloatType = storage.FloatType
	TextType  = storage.TextType
	BoolType  = storage.BoolType
)

const (
	OutcomeCreated  = engine.OutcomeCreated
	OutcomeInserted = engine.OutcomeInserted
	OutcomeUpdated  = engine.OutcomeUpdated
	OutcomeDeleted  = engine.OutcomeDeleted
)

// Error sentinels for errors.Is.
var (
	ErrLex       = sqlerr.ErrLex
	ErrParse     = sqlerr.ErrParse
	ErrSchema    = sqlerr.ErrSchema
	ErrExecution = sqlerr.ErrExecution
)

// Value constructors.
var (
	NullValue   = storage.NullValue
	IntValue    = storage.IntValue
	FloatValue  = storage.FloatValue
	StringValue = storage.StringValue
	BoolValue   = storage.BoolValue
)

// Parse parses a single SQL statement without executing it.
func Parse(sql string) (Statement, error) { return engine.Parse(sql) }

// ReturnsRows reports whether st is a SELECT, which must run through Query.
func ReturnsRows(st Statement) bool {
	_, ok := st.(*engine.Select)
	return ok
}

// ============================================================================
// Database
// ============================================================================

// Option configures a DB created by New.
type Option func(*options)

type options struct {
	log    *slog.Logger
	intern bool
}

// WithLogger routes engine logs to l instead of the global logger.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.log = l } }

// WithTextInterning controls whether equal TEXT values share one allocation.
// Interning is on by default.
func WithTextInterning(on bool) Option { return func(o *options) { o.intern = on } }

// DB is an in-memory database. It is safe for concurrent use: Execute runs
// exclusively, Query runs concurrently with other queries.
type DB struct {
	mu  sync.RWMutex
	eng *engine.Engine
	log *slog.Logger
}

// New creates an empty database.
func New(opts ...Option) *DB {
	o := options{intern: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logging.Logger()
	}
	sdb := storage.NewDatabase(o.intern)
	log := o.log.With("db", sdb.ID().String())
	return &DB{eng: engine.New(sdb, log), log: log}
}

// Open creates an empty database configured from cfg. The global logger is
// used; call logging.Init beforehand to apply cfg.Log.
func Open(cfg config.Config) *DB {
	return New(WithTextInterning(cfg.Text.Intern))
}

// ID returns the unique instance id of the database.
func (db *DB) ID() uuid.UUID { return db.eng.Database().ID() }

// Execute runs a CREATE TABLE, INSERT, UPDATE or DELETE statement.
func (db *DB) Execute(sql string) (Outcome, error) {
	st, err := engine.Parse(sql)
	if err != nil {
		db.log.Debug("statement rejected", "error", err)
		return Outcome{}, err
	}
	return db.ExecuteStatement(st)
}

// ExecuteStatement runs an already parsed mutating statement.
func (db *DB) ExecuteStatement(st Statement) (Outcome, error) {
	if ReturnsRows(st) {
		return Outcome{}, sqlerr.Execf("SELECT returns rows; use Query")
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.eng.Exec(st)
}

// Query runs a SELECT statement and returns its materialized rows.
func (db *DB) Query(sql string) (*ResultSet, error) {
	st, err := engine.Parse(sql)
	if err != nil {
		db.log.Debug("statement rejected", "error", err)
		return nil, err
	}
	return db.QueryStatement(st)
}

// QueryStatement runs an already parsed SELECT.
func (db *DB) QueryStatement(st Statement) (*ResultSet, error) {
	sel, ok := st.(*engine.Select)
	if !ok {
		return nil, sqlerr.Execf("%s does not return rows; use Execute", engine.StatementName(st))
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.eng.Select(sel)
}

// Tables returns the declared names of all tables, sorted.
func (db *DB) Tables() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.eng.Database().TableNames()
}

// Schema returns the column definitions of a table.
func (db *DB) Schema(table string) ([]ColumnDef, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	t, err := db.eng.Database().Table(table)
	if err != nil {
		return nil, err
	}
	return t.Schema().Columns(), nil
}

// DropTable removes a table and releases its stored text.
func (db *DB) DropTable(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.eng.Database().DropTable(name); err != nil {
		return err
	}
	db.log.Info("table dropped", "table", name)
	return nil
}
