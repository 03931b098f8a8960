package main

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SimonWaldherr/tinycol/internal/driver"
)

func runScript(t *testing.T, format, script string) string {
	t.Helper()
	db, err := sql.Open(driver.DriverName, "")
	require.NoError(t, err)
	defer db.Close()
	var out bytes.Buffer
	r := repl{db: db, out: &out, format: format}
	require.NoError(t, r.run(strings.NewReader(script)))
	return out.String()
}

const setup = `
-- demo data
CREATE TABLE users (id INT, name TEXT, age INT);
INSERT INTO users VALUES (1, 'Alice', 30);
INSERT INTO users (name, id)
  VALUES ('Bob', 2);
`

func TestREPLTable(t *testing.T) {
	out := runScript(t, "table", setup+"SELECT * FROM users ORDER BY id;\n")
	assert.Equal(t, `(ok, 0 rows affected)
(ok, 1 rows affected)
(ok, 1 rows affected)
id  name   age
--  -----  ----
1   Alice  30
2   Bob    NULL
(2 rows)
`, out)
}

func TestREPLFormats(t *testing.T) {
	out := runScript(t, "csv", setup+"SELECT id, name FROM users;\n")
	assert.Contains(t, out, "id,name\n1,Alice\n2,Bob\n")

	out = runScript(t, "json", setup+"SELECT id FROM users LIMIT 1;\n")
	assert.Contains(t, out, `"id": 1`)

	out = runScript(t, "table", setup+".format yaml\nSELECT name, age FROM users WHERE id = 2;\n")
	assert.Contains(t, out, "- name: Bob\n  age: null\n")
}

func TestREPLErrorsAndMeta(t *testing.T) {
	out := runScript(t, "table", setup+"SELECT nope FROM users;\n.bogus\nINSERT INTO users VALUES ('x', 1, 2);\n.quit\nSELECT * FROM users;\n")
	assert.Contains(t, out, `ERR: execution error: unknown column "nope" on table "users"`)
	assert.Contains(t, out, "ERR: unknown command .bogus")
	assert.Contains(t, out, `column "id" is INT`)
	assert.NotContains(t, out, "(2 rows)", "nothing runs after .quit")
}

func TestWithConfig(t *testing.T) {
	assert.Equal(t, "mem://x?config=a.yml", withConfig("mem://x", "a.yml"))
	assert.Equal(t, "mem://x?pool_readers=2&config=a.yml", withConfig("mem://x?pool_readers=2", "a.yml"))
	assert.Equal(t, "mem://?config=a.yml", withConfig("", "a.yml"))
	assert.Equal(t, "mem://x?config=b.yml", withConfig("mem://x?config=b.yml", "a.yml"))
}

func TestREPLImportAndTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.csv")
	require.NoError(t, os.WriteFile(path, []byte("player,points\nann,12\nbob,5\ncid,7\n"), 0o644))

	out := runScript(t, "csv", ".import "+path+" scores\n.tables\n.import missing\nSELECT player FROM scores ORDER BY points DESC;\n.format html\n")
	assert.Contains(t, out, "(imported 3 rows into scores, 0 skipped)\n")
	assert.Contains(t, out, "scores\n")
	assert.Contains(t, out, "ERR: usage: .import FILE TABLE")
	assert.Contains(t, out, "player\nann\ncid\nbob\n")
	assert.Contains(t, out, `ERR: unknown format "html"`)
}
