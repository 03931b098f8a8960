package storage

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/SimonWaldherr/tinycol/internal/sqlerr"
)

// FoldName returns the lookup key of a table or column name. Identifiers are
// case-insensitive; the declared spelling is kept for display.
func FoldName(name string) string {
	upper := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= utf8.RuneSelf {
			// A Caser is stateful, so each call gets its own.
			return cases.Fold().String(name)
		}
		if 'A' <= c && c <= 'Z' {
			upper = true
		}
	}
	if !upper {
		return name
	}
	return strings.ToLower(name)
}

// ColumnDef is one schema entry.
type ColumnDef struct {
	Name     string
	Type     DataType
	Nullable bool
}

func (d ColumnDef) String() string {
	if d.Nullable {
		return d.Name + " " + d.Type.String()
	}
	return d.Name + " " + d.Type.String() + " NOT NULL"
}

// Schema is the ordered, immutable column list of a table.
type Schema struct {
	cols []ColumnDef
	pos  map[string]int
}

// NewSchema validates column names for uniqueness (case-insensitively).
func NewSchema(cols []ColumnDef) (*Schema, error) {
	if len(cols) == 0 {
		return nil, sqlerr.Schemaf("a table needs at least one column")
	}
	pos := make(map[string]int, len(cols))
	for i, c := range cols {
		if c.Name == "" {
			return nil, sqlerr.Schemaf("column %d has no name", i+1)
		}
		if _, ok := dataTypeNames[c.Type]; !ok {
			return nil, sqlerr.Schemaf("column %q has unknown type", c.Name)
		}
		key := FoldName(c.Name)
		if _, dup := pos[key]; dup {
			return nil, sqlerr.Schemaf("duplicate column name %q", c.Name)
		}
		pos[key] = i
	}
	out := make([]ColumnDef, len(cols))
	copy(out, cols)
	return &Schema{cols: out, pos: pos}, nil
}

// Len returns the number of columns.
func (s *Schema) Len() int { return len(s.cols) }

// Column returns the i-th column definition.
func (s *Schema) Column(i int) ColumnDef { return s.cols[i] }

// Columns returns a copy of all column definitions in order.
func (s *Schema) Columns() []ColumnDef {
	out := make([]ColumnDef, len(s.cols))
	copy(out, s.cols)
	return out
}

// Names returns the declared column names in order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.cols))
	for i, c := range s.cols {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of the named column.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.pos[FoldName(name)]
	return i, ok
}
