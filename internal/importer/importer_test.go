package importer

import (
	"bytes"
	"compress/gzip"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/SimonWaldherr/tinycol"
)

func rowsOf(t *testing.T, db *tinycol.DB, q string) [][]any {
	t.Helper()
	rs, err := db.Query(q)
	require.NoError(t, err)
	out := make([][]any, len(rs.Rows))
	for i, r := range rs.Rows {
		out[i] = make([]any, len(r))
		for j, v := range r {
			out[i][j] = v.Any()
		}
	}
	return out
}

func TestImportCSVCreatesTable(t *testing.T) {
	db := tinycol.New()
	src := "id;name;score;active\n1;ann;4.5;yes\n2;bob;NA;no\n3;\"c;d\";7;yes\n"
	res, err := ImportCSV(context.Background(), db, "people", strings.NewReader(src), nil)
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.True(t, res.HadHeader)
	assert.Equal(t, ';', res.Delimiter)
	assert.Equal(t, "utf-8", res.Encoding)
	assert.Equal(t, int64(3), res.RowsInserted)
	assert.Empty(t, res.Errors)

	schema, err := db.Schema("people")
	require.NoError(t, err)
	types := make([]tinycol.DataType, len(schema))
	for i, c := range schema {
		types[i] = c.Type
	}
	assert.Equal(t, []tinycol.DataType{tinycol.IntType, tinycol.TextType, tinycol.FloatType, tinycol.BoolType}, types)

	assert.Equal(t, [][]any{
		{"ann", 4.5, true},
		{"bob", nil, false},
		{"c;d", 7.0, true},
	}, rowsOf(t, db, "SELECT name, score, active FROM people ORDER BY id"))
}

func TestImportCSVUTF16NoHeader(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	data, err := enc.String("10\t-2\n20\t4\n")
	require.NoError(t, err)

	db := tinycol.New()
	res, err := ImportCSV(context.Background(), db, "nums", strings.NewReader(data), nil)
	require.NoError(t, err)
	assert.Equal(t, "utf-16le", res.Encoding)
	assert.Equal(t, '\t', res.Delimiter)
	assert.False(t, res.HadHeader)
	assert.Equal(t, [][]any{{int64(10), int64(-2)}, {int64(20), int64(4)}},
		rowsOf(t, db, "SELECT col_1, col_2 FROM nums ORDER BY col_1"))
}

func TestImportCSVGzipBOM(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("\xEF\xBB\xBFcity,pop\nUlm,126\nBonn,330\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	db := tinycol.New()
	res, err := ImportCSV(context.Background(), db, "cities", &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, "utf-8-bom", res.Encoding)
	assert.Equal(t, []string{"city", "pop"}, []string{res.Columns[0].Name, res.Columns[1].Name})
	assert.Equal(t, [][]any{{"Bonn"}, {"Ulm"}}, rowsOf(t, db, "SELECT city FROM cities ORDER BY city"))
}

func TestImportIntoExistingTable(t *testing.T) {
	db := tinycol.New()
	_, err := db.Execute("CREATE TABLE t (a INT, b TEXT, c BOOL)")
	require.NoError(t, err)
	_, err = db.Execute("INSERT INTO t VALUES (99, 'old', TRUE)")
	require.NoError(t, err)

	src := "1,x\nzz,y\n3,z\n"
	opts := &Options{HeaderMode: "absent", Truncate: true}
	res, err := ImportCSV(context.Background(), db, "t", strings.NewReader(src), opts)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, int64(2), res.RowsInserted)
	assert.Equal(t, int64(1), res.RowsSkipped)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], `record 2: column "a": "zz" is not an INT`)
	assert.Equal(t, [][]any{{int64(1), "x", nil}, {int64(3), "z", nil}}, rowsOf(t, db, "SELECT * FROM t ORDER BY a"))

	opts.Strict = true
	res, err = ImportCSV(context.Background(), db, "t", strings.NewReader(src), opts)
	require.Error(t, err)
	assert.Equal(t, int64(1), res.RowsInserted)

	_, err = ImportCSV(context.Background(), db, "t", strings.NewReader("1,2,3,4\n"), nil)
	assert.ErrorContains(t, err, "has 3 columns, input has 4")
}

func TestImportErrors(t *testing.T) {
	db := tinycol.New()
	_, err := ImportCSV(context.Background(), db, "", strings.NewReader("a\n"), nil)
	assert.Error(t, err)
	_, err = ImportCSV(context.Background(), db, "t", strings.NewReader("\n\n"), nil)
	assert.ErrorContains(t, err, "empty input")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ImportCSV(ctx, db, "t", strings.NewReader("a,b\n1,2\n"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		lines []string
		want  rune
	}{
		{[]string{"a,b,c", "1,2,3"}, ','},
		{[]string{"a;b", "1;2,5"}, ';'},
		{[]string{"a|b|c", "1|2|3"}, '|'},
		{[]string{`"x,y"|b`, `"1,2"|3`}, '|'},
		{[]string{"single"}, ','},
	}
	for _, tt := range tests {
		if got := detectDelimiter(tt.lines, []rune{',', ';', '\t', '|'}); got != tt.want {
			t.Fatalf("detectDelimiter(%q) = %q, want %q", tt.lines, got, tt.want)
		}
	}
}

func TestInferColumnTypes(t *testing.T) {
	recs := [][]string{
		{"1", "1.5", "yes", "x", "", "nan"},
		{"-2", "2", "NO", "3", "null", "1"},
		{"", "", "", "", "", ""},
	}
	got := inferColumnTypes(recs, 6, []string{"", "null"})
	want := []tinycol.DataType{tinycol.IntType, tinycol.FloatType, tinycol.BoolType, tinycol.TextType, tinycol.TextType, tinycol.TextType}
	assert.Equal(t, want, got)
}

func TestSanitizeColumnNames(t *testing.T) {
	got := sanitizeColumnNames([]string{" First Name", "first-name", "2nd", ""})
	assert.Equal(t, []string{"First_Name", "first_name_2", "c_2nd", "col_4"}, got)
}
