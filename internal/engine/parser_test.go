package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SimonWaldherr/tinycol/internal/sqlerr"
	"github.com/SimonWaldherr/tinycol/internal/storage"
)

func mustParse(t *testing.T, sql string) Statement {
	t.Helper()
	st, err := Parse(sql)
	require.NoError(t, err, sql)
	return st
}

func TestParseCreateTable(t *testing.T) {
	st := mustParse(t, "CREATE TABLE users (id INT NOT NULL, name text, score FLOAT, active BOOL)")
	ct, ok := st.(*CreateTable)
	require.True(t, ok)
	assert.Equal(t, "users", ct.Name)
	assert.Equal(t, []ColumnDef{
		{Name: "id", TypeName: "INT", NotNull: true},
		{Name: "name", TypeName: "text"},
		{Name: "score", TypeName: "FLOAT"},
		{Name: "active", TypeName: "BOOL"},
	}, ct.Cols)
}

func TestParseInsert(t *testing.T) {
	ins := mustParse(t, "INSERT INTO users (name, id) VALUES ('Ann', -7)").(*Insert)
	assert.Equal(t, "users", ins.Table)
	assert.Equal(t, []string{"name", "id"}, ins.Cols)
	require.Len(t, ins.Vals, 2)
	assert.Equal(t, "'Ann'", ins.Vals[0].String())
	assert.Equal(t, &Unary{Op: "-", X: &Literal{Val: storage.IntValue(7)}}, ins.Vals[1])

	pos := mustParse(t, "insert into t values (1, NULL, TRUE)").(*Insert)
	assert.Nil(t, pos.Cols)
	assert.Len(t, pos.Vals, 3)
}

func TestParseUpdate(t *testing.T) {
	up := mustParse(t, "UPDATE t SET a = a + 1, b = 'x' WHERE id = 3").(*Update)
	assert.Equal(t, "t", up.Table)
	require.Len(t, up.Sets, 2)
	assert.Equal(t, "a", up.Sets[0].Col)
	assert.Equal(t, "(a + 1)", up.Sets[0].Expr.String())
	assert.Equal(t, "(id = 3)", up.Where.String())
}

func TestParseDelete(t *testing.T) {
	del := mustParse(t, "DELETE FROM t").(*Delete)
	assert.Nil(t, del.Where)

	del = mustParse(t, "DELETE FROM t WHERE name IS NOT NULL").(*Delete)
	assert.Equal(t, "name IS NOT NULL", del.Where.String())
}

func TestParseSelect(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM t").(*Select)
	assert.True(t, sel.Star)
	assert.Nil(t, sel.Limit)

	sel = mustParse(t, "SELECT a, b FROM t WHERE a > 1 ORDER BY b DESC, a LIMIT 5;").(*Select)
	assert.False(t, sel.Star)
	assert.Equal(t, []string{"a", "b"}, sel.Cols)
	assert.Equal(t, []OrderItem{{Col: "b", Desc: true}, {Col: "a"}}, sel.OrderBy)
	require.NotNil(t, sel.Limit)
	assert.Equal(t, int64(5), *sel.Limit)
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		where string
		want  string
	}{
		{"a = 1 OR b = 2 AND c = 3", "((a = 1) OR ((b = 2) AND (c = 3)))"},
		{"(a = 1 OR b = 2) AND c = 3", "(((a = 1) OR (b = 2)) AND (c = 3))"},
		{"NOT a = 1 AND b <> 2", "(NOT (a = 1) AND (b != 2))"},
		{"a + 2 * 3 > 4", "((a + (2 * 3)) > 4)"},
		{"a IS NULL OR b IS NOT NULL", "(a IS NULL OR b IS NOT NULL)"},
	}
	for _, tt := range tests {
		t.Run(tt.where, func(t *testing.T) {
			sel := mustParse(t, "SELECT * FROM t WHERE "+tt.where).(*Select)
			assert.Equal(t, tt.want, sel.Where.String())
		})
	}
}

func TestParseIsDeterministic(t *testing.T) {
	stmts := []string{
		"CREATE TABLE t (a INT, b TEXT NOT NULL)",
		"INSERT INTO t (a, b) VALUES (1, 'x')",
		"UPDATE t SET a = -a WHERE b != 'y' OR a IS NULL",
		"DELETE FROM t WHERE a < 3",
		"SELECT a FROM t WHERE NOT (a = 1) ORDER BY a DESC LIMIT 0",
	}
	for _, sql := range stmts {
		a := mustParse(t, sql)
		b := mustParse(t, sql)
		assert.True(t, reflect.DeepEqual(a, b), sql)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{"empty", "", "expected CREATE, INSERT, UPDATE, DELETE or SELECT"},
		{"misspelled FROM", "SELECT * FORM t", "expected FROM"},
		{"trailing tokens", "SELECT * FROM t garbage", "expected end of statement"},
		{"missing paren", "CREATE TABLE t (a INT", "expected ')'"},
		{"no columns", "CREATE TABLE t ()", "expected column name"},
		{"missing value", "INSERT INTO t VALUES (1,)", "expected expression"},
		{"negative limit", "SELECT * FROM t LIMIT -1", "non-negative integer"},
		{"float limit", "SELECT * FROM t LIMIT 1.5", "non-negative integer"},
		{"chained comparison", "SELECT * FROM t WHERE a = b = c", "expected end of statement"},
		{"missing set", "UPDATE t a = 1", "expected SET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.sql)
			require.Error(t, err)
			assert.True(t, errors.Is(err, sqlerr.ErrParse), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseReportsLexErrors(t *testing.T) {
	_, err := Parse("SELECT 'open FROM t")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sqlerr.ErrLex))
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse("SELECT * FORM t")
	var se *sqlerr.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 9, se.Pos)
	assert.Equal(t, `parse error at position 9: expected FROM, found "FORM"`, err.Error())
}
