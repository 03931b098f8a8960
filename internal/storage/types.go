// Package storage provides the columnar in-memory store for tinycol.
//
// What: Typed column vectors with per-column null bitmaps, table schemas, and
// a catalog of tables (Database). Text payloads are shared immutable handles
// handed out by a reference-counted pool.
// How: Each Table owns one Column per schema entry; all columns always share
// the same length (the table's row count). Rows are never stored contiguously;
// Table.Row assembles them on demand. DELETE compacts every vector in place,
// preserving the relative order of surviving rows.
// Why: A column-major layout keeps values of one type dense and makes the
// null state a bit per row instead of a sentinel competing with real values.
package storage

import (
	"fmt"
	"strings"
)

// DataType enumerates the column types a schema may declare.
type DataType int

const (
	IntType DataType = iota + 1
	FloatType
	TextType
	BoolType
)

var dataTypeNames = map[DataType]string{
	IntType:   "INT",
	FloatType: "FLOAT",
	TextType:  "TEXT",
	BoolType:  "BOOL",
}

func (t DataType) String() string {
	if s, ok := dataTypeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// Kind returns the value kind stored by columns of this type.
func (t DataType) Kind() Kind {
	switch t {
	case IntType:
		return KindInt
	case FloatType:
		return KindFloat
	case TextType:
		return KindText
	case BoolType:
		return KindBool
	}
	return KindNull
}

// ParseDataType resolves a declared type name. Only INT, FLOAT, TEXT and
// BOOL are recognised, case-insensitively.
func ParseDataType(name string) (DataType, error) {
	switch strings.ToUpper(name) {
	case "INT":
		return IntType, nil
	case "FLOAT":
		return FloatType, nil
	case "TEXT":
		return TextType, nil
	case "BOOL":
		return BoolType, nil
	}
	return 0, fmt.Errorf("unknown type %q", name)
}

// Kind is the runtime tag of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindText
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "INT"
	case KindFloat:
		return "FLOAT"
	case KindText:
		return "TEXT"
	case KindBool:
		return "BOOL"
	default:
		return "NULL"
	}
}

// Numeric reports whether the kind is INT or FLOAT.
func (k Kind) Numeric() bool { return k == KindInt || k == KindFloat }
