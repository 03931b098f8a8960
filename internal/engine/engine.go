package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/SimonWaldherr/tinycol/internal/logging"
	"github.com/SimonWaldherr/tinycol/internal/sqlerr"
	"github.com/SimonWaldherr/tinycol/internal/storage"
)

// OutcomeKind tells which statement produced an Outcome.
type OutcomeKind int

const (
	OutcomeCreated OutcomeKind = iota + 1
	OutcomeInserted
	OutcomeUpdated
	OutcomeDeleted
)

var outcomeNames = map[OutcomeKind]string{
	OutcomeCreated:  "CREATE TABLE",
	OutcomeInserted: "INSERT",
	OutcomeUpdated:  "UPDATE",
	OutcomeDeleted:  "DELETE",
}

func (k OutcomeKind) String() string {
	if s, ok := outcomeNames[k]; ok {
		return s
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// Outcome reports the effect of a mutating statement.
type Outcome struct {
	Kind         OutcomeKind
	Table        string
	RowsAffected int
}

func (o Outcome) String() string {
	if o.Kind == OutcomeCreated {
		return fmt.Sprintf("table %s created", o.Table)
	}
	return fmt.Sprintf("%s %d", o.Kind, o.RowsAffected)
}

// ResultSet is the materialized output of a SELECT. Cols carries the
// declared spelling of each projected column and Types its declared type.
type ResultSet struct {
	Cols  []string
	Types []storage.DataType
	Rows  []storage.Row
}

// Engine executes statements against a Database. It performs no locking;
// callers serialize mutating statements.
type Engine struct {
	db  *storage.Database
	log *slog.Logger
}

// New returns an Engine over db. A nil logger falls back to the global one.
func New(db *storage.Database, log *slog.Logger) *Engine {
	if log == nil {
		log = logging.Logger()
	}
	return &Engine{db: db, log: log}
}

// Database returns the underlying catalog.
func (e *Engine) Database() *storage.Database { return e.db }

// Exec runs a CREATE TABLE, INSERT, UPDATE or DELETE statement.
func (e *Engine) Exec(stmt Statement) (Outcome, error) {
	start := time.Now()
	var (
		out Outcome
		err error
	)
	switch s := stmt.(type) {
	case *CreateTable:
		out, err = e.createTable(s)
	case *Insert:
		out, err = e.insert(s)
	case *Update:
		out, err = e.update(s)
	case *Delete:
		out, err = e.delete(s)
	case *Select:
		err = sqlerr.Execf("SELECT returns rows; use Query")
	default:
		err = sqlerr.Execf("unsupported statement %T", stmt)
	}
	e.logStatement(stmt, out.Table, out.RowsAffected, start, err)
	return out, err
}

// Select runs a SELECT statement.
func (e *Engine) Select(s *Select) (*ResultSet, error) {
	start := time.Now()
	rs, err := e.selectRows(s)
	n := 0
	if rs != nil {
		n = len(rs.Rows)
	}
	e.logStatement(s, s.Table, n, start, err)
	return rs, err
}

func (e *Engine) logStatement(stmt Statement, table string, rows int, start time.Time, err error) {
	if err != nil {
		e.log.Debug("statement rejected", "stmt", StatementName(stmt), "error", err)
		return
	}
	e.log.Debug("statement executed",
		"stmt", StatementName(stmt),
		"table", table,
		"rows", rows,
		"elapsed", time.Since(start))
}
