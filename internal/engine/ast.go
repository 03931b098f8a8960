package engine

import (
	"strings"

	"github.com/SimonWaldherr/tinycol/internal/storage"
)

// Statement is the root interface for all parsed SQL statements.
type Statement interface{ statement() }

// Expr is a scalar or boolean expression.
type Expr interface {
	expr()
	String() string
}

type (
	// ColumnRef refers to a column of the statement's table.
	ColumnRef struct{ Name string }
	// Literal holds a constant value (number, string, bool, NULL).
	Literal struct{ Val storage.Value }
	// Unary represents unary minus and NOT.
	Unary struct {
		Op string
		X  Expr
	}
	// Binary represents arithmetic, comparison and AND/OR.
	Binary struct {
		Op          string
		Left, Right Expr
	}
	// IsNull represents IS [NOT] NULL.
	IsNull struct {
		X      Expr
		Negate bool
	}
)

func (*ColumnRef) expr() {}
func (*Literal) expr()   {}
func (*Unary) expr()     {}
func (*Binary) expr()    {}
func (*IsNull) expr()    {}

func (e *ColumnRef) String() string { return e.Name }
func (e *Literal) String() string {
	if s, ok := e.Val.AsString(); ok {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	return e.Val.String()
}
func (e *Unary) String() string {
	if e.Op == "NOT" {
		return "NOT " + e.X.String()
	}
	return e.Op + e.X.String()
}
func (e *Binary) String() string { return "(" + e.Left.String() + " " + e.Op + " " + e.Right.String() + ")" }
func (e *IsNull) String() string {
	if e.Negate {
		return e.X.String() + " IS NOT NULL"
	}
	return e.X.String() + " IS NULL"
}

// ColumnDef is a column declaration as written in CREATE TABLE. The type
// name is resolved by the engine so unknown types surface as schema errors.
type ColumnDef struct {
	Name     string
	TypeName string
	NotNull  bool
}

// CreateTable represents a CREATE TABLE statement.
type CreateTable struct {
	Name string
	Cols []ColumnDef
}

// Insert represents an INSERT statement. Cols is nil for positional inserts.
type Insert struct {
	Table string
	Cols  []string
	Vals  []Expr
}

// Assignment is one SET col = expr clause.
type Assignment struct {
	Col  string
	Expr Expr
}

// Update represents an UPDATE statement.
type Update struct {
	Table string
	Sets  []Assignment
	Where Expr
}

// Delete represents a DELETE statement.
type Delete struct {
	Table string
	Where Expr
}

// OrderItem specifies ordering column and direction.
type OrderItem struct {
	Col  string
	Desc bool
}

// Select represents a SELECT query.
type Select struct {
	Star    bool
	Cols    []string
	Table   string
	Where   Expr
	OrderBy []OrderItem
	Limit   *int64
}

func (*CreateTable) statement() {}
func (*Insert) statement()      {}
func (*Update) statement()      {}
func (*Delete) statement()      {}
func (*Select) statement()      {}

// StatementName returns the leading keyword(s) of a statement, used in
// logs and error messages.
func StatementName(s Statement) string {
	switch s.(type) {
	case *CreateTable:
		return "CREATE TABLE"
	case *Insert:
		return "INSERT"
	case *Update:
		return "UPDATE"
	case *Delete:
		return "DELETE"
	case *Select:
		return "SELECT"
	}
	return "UNKNOWN"
}
