package testhelper

import (
	"database/sql"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/SimonWaldherr/tinycol/internal/driver"
)

// The oracle tests replay one script against tinycol and SQLite and compare
// every query result. Queries stay inside the shared dialect: strict INT and
// FLOAT columns, total ORDER BY keys, no division.

func openPair(t *testing.T) (mine, oracle *sql.DB) {
	t.Helper()
	mine, err := sql.Open(driver.DriverName, "")
	require.NoError(t, err)
	oracle, err = sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	oracle.SetMaxOpenConns(1)
	t.Cleanup(func() {
		mine.Close()
		oracle.Close()
	})
	return mine, oracle
}

func execBoth(t *testing.T, mine, oracle *sql.DB, q string, args ...any) {
	t.Helper()
	r1, err := mine.Exec(q, args...)
	require.NoError(t, err, "tinycol: %s", q)
	r2, err := oracle.Exec(q, args...)
	require.NoError(t, err, "sqlite: %s", q)
	n1, err := r1.RowsAffected()
	require.NoError(t, err)
	n2, err := r2.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, n2, n1, "rows affected: %s", q)
}

func collect(t *testing.T, db *sql.DB, q string) [][]any {
	t.Helper()
	rows, err := db.Query(q)
	require.NoError(t, err, q)
	defer rows.Close()
	cols, err := rows.Columns()
	require.NoError(t, err)
	var out [][]any
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		require.NoError(t, rows.Scan(ptrs...))
		for i, v := range cells {
			cells[i] = canonical(v)
		}
		out = append(out, cells)
	}
	require.NoError(t, rows.Err())
	return out
}

// canonical maps both drivers onto one value space. SQLite has no boolean
// storage class and may hand back TEXT as []byte.
func canonical(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case []byte:
		return string(x)
	}
	return v
}

func compareQueries(t *testing.T, mine, oracle *sql.DB, queries []string) {
	t.Helper()
	for _, q := range queries {
		assert.Equal(t, collect(t, oracle, q), collect(t, mine, q), q)
	}
}

var oracleQueries = []string{
	"SELECT * FROM items ORDER BY id",
	"SELECT id, qty FROM items WHERE qty > 10 ORDER BY id",
	"SELECT id FROM items WHERE qty <> 5 ORDER BY id",
	"SELECT id FROM items WHERE NOT (qty > 5) ORDER BY id",
	"SELECT id FROM items WHERE qty > 5 OR price < 2.5 ORDER BY id",
	"SELECT id FROM items WHERE qty > 5 AND price < 10 ORDER BY id",
	"SELECT id, label FROM items ORDER BY label, id",
	"SELECT id, label FROM items ORDER BY label DESC, id DESC",
	"SELECT id, qty FROM items ORDER BY qty, id LIMIT 4",
	"SELECT id FROM items ORDER BY qty DESC, id LIMIT 3",
	"SELECT id FROM items WHERE qty * 3 - 7 >= 20 ORDER BY id",
	"SELECT id FROM items WHERE -qty < -10 ORDER BY id",
	"SELECT id FROM items WHERE price >= qty ORDER BY id",
	"SELECT id FROM items WHERE label = 'bolt' ORDER BY id",
	"SELECT id FROM items WHERE label < 'n' ORDER BY id",
	"SELECT id FROM items WHERE active = TRUE ORDER BY id",
	"SELECT id FROM items WHERE qty IS NULL OR price IS NOT NULL ORDER BY id",
	"SELECT id FROM items ORDER BY id LIMIT 0",
}

const itemsDDL = "CREATE TABLE items (id INT NOT NULL, label TEXT, qty INT, price FLOAT, active BOOL)"

func seedItems(t *testing.T, mine, oracle *sql.DB) {
	t.Helper()
	execBoth(t, mine, oracle, itemsDDL)
	for _, r := range []struct {
		id     int64
		label  any
		qty    any
		price  any
		active any
	}{
		{1, "bolt", int64(12), 0.25, true},
		{2, "nut", int64(5), 0.1, false},
		{3, nil, int64(40), 12.5, true},
		{4, "washer", nil, 2.0, nil},
		{5, "bolt", int64(5), nil, true},
		{6, "Anchor", int64(-3), 7.75, false},
		{7, "nail", int64(9), 9.0, nil},
	} {
		execBoth(t, mine, oracle, "INSERT INTO items VALUES (?, ?, ?, ?, ?)", r.id, r.label, r.qty, r.price, r.active)
	}
}

func TestOracleQueries(t *testing.T) {
	mine, oracle := openPair(t)
	seedItems(t, mine, oracle)
	compareQueries(t, mine, oracle, oracleQueries)
}

func TestOracleMutations(t *testing.T) {
	mine, oracle := openPair(t)
	seedItems(t, mine, oracle)

	for _, q := range []string{
		"UPDATE items SET qty = qty + 1 WHERE price < 8",
		"UPDATE items SET label = 'misc', price = NULL WHERE qty > 30",
		"UPDATE items SET active = FALSE WHERE active = TRUE AND qty < 10",
		"DELETE FROM items WHERE qty < 0",
		"UPDATE items SET qty = 0 WHERE label = 'nobody'",
		"DELETE FROM items WHERE price > 100",
	} {
		execBoth(t, mine, oracle, q)
		compareQueries(t, mine, oracle, oracleQueries)
	}
}

func TestOracleRandomized(t *testing.T) {
	mine, oracle := openPair(t)
	execBoth(t, mine, oracle, "CREATE TABLE r (id INT NOT NULL, a INT, b INT, f FLOAT)")
	rng := rand.New(rand.NewSource(42))
	maybe := func(v any) any {
		if rng.Intn(5) == 0 {
			return nil
		}
		return v
	}
	for i := 0; i < 200; i++ {
		execBoth(t, mine, oracle, "INSERT INTO r VALUES (?, ?, ?, ?)",
			int64(i), maybe(int64(rng.Intn(50)-10)), maybe(int64(rng.Intn(20))), maybe(float64(rng.Intn(400))/8))
	}
	ops := []string{"<", "<=", ">", ">=", "=", "!="}
	var queries []string
	for i := 0; i < 60; i++ {
		op1, op2 := ops[rng.Intn(len(ops))], ops[rng.Intn(len(ops))]
		conj := "AND"
		if rng.Intn(2) == 0 {
			conj = "OR"
		}
		queries = append(queries, fmt.Sprintf(
			"SELECT id, a, f FROM r WHERE a + b %s %d %s f %s %d ORDER BY a DESC, id LIMIT %d",
			op1, rng.Intn(40), conj, op2, rng.Intn(50), 1+rng.Intn(30)))
	}
	compareQueries(t, mine, oracle, queries)

	execBoth(t, mine, oracle, "UPDATE r SET a = a * 2 WHERE b > 10")
	execBoth(t, mine, oracle, "DELETE FROM r WHERE NOT (f < 25)")
	compareQueries(t, mine, oracle, queries)
}
