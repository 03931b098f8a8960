package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/SimonWaldherr/tinycol"
	"github.com/SimonWaldherr/tinycol/internal/engine"
)

// ============================================================================
// Type Inference - Detect column types from the data
// ============================================================================

// inferColumnTypes picks, per column, the narrowest type every non-NULL
// field parses as: BOOL, then INT, then FLOAT, else TEXT. Columns with no
// values at all become TEXT.
func inferColumnTypes(records [][]string, numCols int, nulls []string) []tinycol.DataType {
	types := make([]tinycol.DataType, numCols)
	for c := range types {
		isBool, isInt, isFloat, seen := true, true, true, false
		for _, rec := range records {
			if c >= len(rec) || isNullValue(rec[c], nulls) {
				continue
			}
			v := strings.TrimSpace(rec[c])
			seen = true
			if _, ok := parseBool(v); !ok {
				isBool = false
			}
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
			if _, ok := parseFloat(v); !ok {
				isFloat = false
			}
		}
		switch {
		case !seen:
			types[c] = tinycol.TextType
		case isBool:
			types[c] = tinycol.BoolType
		case isInt:
			types[c] = tinycol.IntType
		case isFloat:
			types[c] = tinycol.FloatType
		default:
			types[c] = tinycol.TextType
		}
	}
	return types
}

func isNullValue(s string, nulls []string) bool {
	s = strings.TrimSpace(s)
	for _, n := range nulls {
		if strings.EqualFold(s, n) {
			return true
		}
	}
	return false
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "yes", "t", "y":
		return true, true
	case "false", "no", "f", "n":
		return false, true
	}
	return false, false
}

// parseFloat accepts finite decimal numbers only; NaN and Inf spellings
// stay text.
func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func looksNumeric(s string) bool {
	_, ok := parseFloat(strings.TrimSpace(s))
	return ok
}

// convertValue turns one field into a value of type t.
func convertValue(raw string, t tinycol.DataType, nulls []string) (tinycol.Value, error) {
	if isNullValue(raw, nulls) {
		return tinycol.NullValue(), nil
	}
	v := strings.TrimSpace(raw)
	switch t {
	case tinycol.IntType:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return tinycol.Value{}, fmt.Errorf("%q is not an INT", raw)
		}
		return tinycol.IntValue(n), nil
	case tinycol.FloatType:
		f, ok := parseFloat(v)
		if !ok {
			return tinycol.Value{}, fmt.Errorf("%q is not a FLOAT", raw)
		}
		return tinycol.FloatValue(f), nil
	case tinycol.BoolType:
		b, ok := parseBool(v)
		if !ok {
			return tinycol.Value{}, fmt.Errorf("%q is not a BOOL", raw)
		}
		return tinycol.BoolValue(b), nil
	}
	return tinycol.StringValue(raw), nil
}

// ============================================================================
// Statements
// ============================================================================

func createStatement(table string, cols []tinycol.ColumnDef) *engine.CreateTable {
	st := &engine.CreateTable{Name: table, Cols: make([]engine.ColumnDef, len(cols))}
	for i, c := range cols {
		st.Cols[i] = engine.ColumnDef{Name: c.Name, TypeName: c.Type.String(), NotNull: !c.Nullable}
	}
	return st
}

// insertStatement builds a single-row INSERT. Short records are padded
// with NULL.
func insertStatement(table string, cols []tinycol.ColumnDef, rec []string, nulls []string) (*engine.Insert, error) {
	if len(rec) > len(cols) {
		return nil, fmt.Errorf("has %d fields, expected %d", len(rec), len(cols))
	}
	st := &engine.Insert{Table: table, Cols: make([]string, len(cols)), Vals: make([]engine.Expr, len(cols))}
	for i, c := range cols {
		st.Cols[i] = c.Name
		v := tinycol.NullValue()
		if i < len(rec) {
			var err error
			if v, err = convertValue(rec[i], c.Type, nulls); err != nil {
				return nil, fmt.Errorf("column %q: %w", c.Name, err)
			}
		}
		st.Vals[i] = &engine.Literal{Val: v}
	}
	return st, nil
}
