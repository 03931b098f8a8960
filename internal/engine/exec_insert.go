package engine

import (
	"github.com/SimonWaldherr/tinycol/internal/sqlerr"
	"github.com/SimonWaldherr/tinycol/internal/storage"
)

// insert appends one row. Values are constant expressions; columns left out
// of an explicit list default to NULL when nullable.
func (e *Engine) insert(s *Insert) (Outcome, error) {
	t, err := e.db.Table(s.Table)
	if err != nil {
		return Outcome{}, err
	}
	schema := t.Schema()

	targets, err := insertTargets(t, s.Cols)
	if err != nil {
		return Outcome{}, err
	}
	if len(s.Vals) != len(targets) {
		return Outcome{}, sqlerr.Execf("INSERT into %q expects %d values, got %d", t.Name, len(targets), len(s.Vals))
	}

	row := make(storage.Row, schema.Len())
	provided := make([]bool, schema.Len())
	for i, col := range targets {
		def := schema.Column(col)
		k, err := checkExpr(nil, s.Vals[i])
		if err != nil {
			return Outcome{}, err
		}
		if err := checkAssignable(def, k, s.Vals[i]); err != nil {
			return Outcome{}, err
		}
		v, err := eval(rowEnv{}, s.Vals[i])
		if err != nil {
			return Outcome{}, err
		}
		row[col] = v
		provided[col] = true
	}
	for i, ok := range provided {
		if ok {
			continue
		}
		def := schema.Column(i)
		if !def.Nullable {
			return Outcome{}, sqlerr.Execf("column %q is NOT NULL and has no value", def.Name)
		}
		row[i] = storage.NullValue()
	}

	if err := t.AppendRow(row); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeInserted, Table: t.Name, RowsAffected: 1}, nil
}

// insertTargets resolves the column list to schema indices, or the full
// schema order when no list was given.
func insertTargets(t *storage.Table, cols []string) ([]int, error) {
	if cols == nil {
		out := make([]int, t.Schema().Len())
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	seen := make(map[int]bool, len(cols))
	out := make([]int, 0, len(cols))
	for _, name := range cols {
		i, err := t.ColIndex(name)
		if err != nil {
			return nil, err
		}
		if seen[i] {
			return nil, sqlerr.Execf("column %q listed more than once", name)
		}
		seen[i] = true
		out = append(out, i)
	}
	return out, nil
}
