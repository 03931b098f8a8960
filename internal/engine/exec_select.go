package engine

import (
	"sort"

	"github.com/SimonWaldherr/tinycol/internal/storage"
)

type sortKey struct {
	col  int
	desc bool
}

func (e *Engine) selectRows(s *Select) (*ResultSet, error) {
	t, err := e.db.Table(s.Table)
	if err != nil {
		return nil, err
	}
	schema := t.Schema()

	var proj []int
	if s.Star {
		proj = make([]int, schema.Len())
		for i := range proj {
			proj[i] = i
		}
	} else {
		proj = make([]int, len(s.Cols))
		for i, name := range s.Cols {
			if proj[i], err = t.ColIndex(name); err != nil {
				return nil, err
			}
		}
	}
	keys := make([]sortKey, len(s.OrderBy))
	for i, o := range s.OrderBy {
		c, err := t.ColIndex(o.Col)
		if err != nil {
			return nil, err
		}
		keys[i] = sortKey{col: c, desc: o.Desc}
	}
	if err := checkPredicate(t, s.Where); err != nil {
		return nil, err
	}

	var hits []int
	for r := 0; r < t.Len(); r++ {
		ok, err := matches(rowEnv{table: t, row: r}, s.Where)
		if err != nil {
			return nil, err
		}
		if ok {
			hits = append(hits, r)
		}
	}
	if len(keys) > 0 {
		sort.SliceStable(hits, func(i, j int) bool {
			return compareRows(t, keys, hits[i], hits[j]) < 0
		})
	}
	if s.Limit != nil && int64(len(hits)) > *s.Limit {
		hits = hits[:*s.Limit]
	}

	rs := &ResultSet{
		Cols:  make([]string, len(proj)),
		Types: make([]storage.DataType, len(proj)),
		Rows:  make([]storage.Row, len(hits)),
	}
	for i, c := range proj {
		def := schema.Column(c)
		rs.Cols[i], rs.Types[i] = def.Name, def.Type
	}
	for i, r := range hits {
		rs.Rows[i] = t.Project(r, proj)
	}
	return rs, nil
}

// compareRows orders two rows by the sort keys in turn. NULL sorts before
// every value, so it comes first ascending and last descending.
func compareRows(t *storage.Table, keys []sortKey, a, b int) int {
	for _, k := range keys {
		c := compareForOrder(t.Value(a, k.col), t.Value(b, k.col))
		if k.desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareForOrder(a, b storage.Value) int {
	switch {
	case a.IsNull() && b.IsNull():
		return 0
	case a.IsNull():
		return -1
	case b.IsNull():
		return 1
	}
	c, _ := storage.Compare(a, b)
	return c
}
