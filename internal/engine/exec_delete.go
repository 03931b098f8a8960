package engine

func (e *Engine) delete(s *Delete) (Outcome, error) {
	t, err := e.db.Table(s.Table)
	if err != nil {
		return Outcome{}, err
	}
	if err := checkPredicate(t, s.Where); err != nil {
		return Outcome{}, err
	}

	keep := make([]int, 0, t.Len())
	for r := 0; r < t.Len(); r++ {
		ok, err := matches(rowEnv{table: t, row: r}, s.Where)
		if err != nil {
			return Outcome{}, err
		}
		if !ok {
			keep = append(keep, r)
		}
	}
	removed := t.Compact(keep)
	return Outcome{Kind: OutcomeDeleted, Table: t.Name, RowsAffected: removed}, nil
}
