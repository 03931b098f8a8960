package engine

import (
	"github.com/SimonWaldherr/tinycol/internal/sqlerr"
	"github.com/SimonWaldherr/tinycol/internal/storage"
)

func (e *Engine) createTable(s *CreateTable) (Outcome, error) {
	defs := make([]storage.ColumnDef, 0, len(s.Cols))
	for _, c := range s.Cols {
		t, err := storage.ParseDataType(c.TypeName)
		if err != nil {
			return Outcome{}, sqlerr.Wrap(sqlerr.KindSchema, err, "column %q", c.Name)
		}
		defs = append(defs, storage.ColumnDef{Name: c.Name, Type: t, Nullable: !c.NotNull})
	}
	t, err := e.db.CreateTable(s.Name, defs)
	if err != nil {
		return Outcome{}, err
	}
	e.log.Info("table created", "table", t.Name, "columns", t.Schema().Len())
	return Outcome{Kind: OutcomeCreated, Table: t.Name}, nil
}
