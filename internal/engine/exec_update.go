package engine

import (
	"github.com/SimonWaldherr/tinycol/internal/sqlerr"
	"github.com/SimonWaldherr/tinycol/internal/storage"
)

// update evaluates every assignment against the pre-update state of each
// matching row, then writes all cells at once. A failure on any row leaves
// the table untouched.
func (e *Engine) update(s *Update) (Outcome, error) {
	t, err := e.db.Table(s.Table)
	if err != nil {
		return Outcome{}, err
	}
	schema := t.Schema()

	cols := make([]int, len(s.Sets))
	seen := make(map[int]bool, len(s.Sets))
	for i, a := range s.Sets {
		c, err := t.ColIndex(a.Col)
		if err != nil {
			return Outcome{}, err
		}
		if seen[c] {
			return Outcome{}, sqlerr.Execf("column %q assigned more than once", a.Col)
		}
		seen[c] = true
		cols[i] = c
		k, err := checkExpr(t, a.Expr)
		if err != nil {
			return Outcome{}, err
		}
		if err := checkAssignable(schema.Column(c), k, a.Expr); err != nil {
			return Outcome{}, err
		}
	}
	if err := checkPredicate(t, s.Where); err != nil {
		return Outcome{}, err
	}

	var (
		updates []storage.CellUpdate
		matched int
	)
	for r := 0; r < t.Len(); r++ {
		env := rowEnv{table: t, row: r}
		ok, err := matches(env, s.Where)
		if err != nil {
			return Outcome{}, err
		}
		if !ok {
			continue
		}
		matched++
		for i, a := range s.Sets {
			v, err := eval(env, a.Expr)
			if err != nil {
				return Outcome{}, err
			}
			updates = append(updates, storage.CellUpdate{Row: r, Col: cols[i], Value: v})
		}
	}
	if err := t.ApplyUpdates(updates); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeUpdated, Table: t.Name, RowsAffected: matched}, nil
}
