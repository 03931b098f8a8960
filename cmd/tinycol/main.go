package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/SimonWaldherr/tinycol/internal/config"
	"github.com/SimonWaldherr/tinycol/internal/driver"
	"github.com/SimonWaldherr/tinycol/internal/exporter"
	"github.com/SimonWaldherr/tinycol/internal/importer"
	"github.com/SimonWaldherr/tinycol/internal/logging"
)

var flagDSN = flag.String("dsn", "mem://repl", "DSN (mem://name?pool_readers=4&busy_timeout=250ms)")
var flagConfig = flag.String("config", "", "YAML config file (logging, text interning, driver pools)")
var flagEcho = flag.Bool("echo", false, "Echo SQL statements before execution")
var flagFormat = flag.String("format", "table", "Output format: table, csv, json, yaml, xml")

func main() {
	flag.Parse()

	dsn := *flagDSN
	if *flagConfig != "" {
		cfg, err := config.Load(*flagConfig)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config error:", err)
			os.Exit(1)
		}
		if err := logging.Init(cfg.LoggingConfig()); err != nil {
			fmt.Fprintln(os.Stderr, "logging error:", err)
			os.Exit(1)
		}
		defer logging.Close()
		dsn = withConfig(dsn, *flagConfig)
	}

	db, err := sql.Open(driver.DriverName, dsn)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open error:", err)
		os.Exit(1)
	}
	defer db.Close()

	interactive := false
	if fi, err := os.Stdin.Stat(); err == nil {
		interactive = (fi.Mode() & os.ModeCharDevice) != 0
	}
	r := repl{db: db, out: os.Stdout, echo: *flagEcho, format: *flagFormat, interactive: interactive}
	if err := r.run(os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, "read error:", err)
		os.Exit(1)
	}
}

// withConfig adds the config option to a DSN unless it already names one.
func withConfig(dsn, path string) string {
	if strings.Contains(dsn, "config=") {
		return dsn
	}
	if dsn == "" {
		dsn = "mem://"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "config=" + path
}

type repl struct {
	db          *sql.DB
	out         io.Writer
	echo        bool
	format      string
	interactive bool
}

// run reads statements terminated by ';' until EOF or .quit.
func (r *repl) run(in io.Reader) error {
	sc := bufio.NewScanner(in)
	// Scanner token limit is 64K by default; allow larger statements/files.
	sc.Buffer(make([]byte, 1024), 4*1024*1024)

	if r.interactive {
		fmt.Fprintln(r.out, "tinycol REPL (database/sql). End statements with ';'. '.help' for help.")
	}
	var buf strings.Builder
	for {
		if r.interactive {
			if buf.Len() == 0 {
				fmt.Fprint(r.out, "sql> ")
			} else {
				fmt.Fprint(r.out, " ... ")
			}
		}
		if !sc.Scan() {
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := r.meta(line); quit {
				return nil
			}
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			continue
		}
		q := strings.TrimSpace(strings.TrimSuffix(buf.String(), ";"))
		buf.Reset()
		if r.echo {
			fmt.Fprintln(r.out, "--", q)
		}
		r.exec(q)
	}
}

func (r *repl) meta(line string) (quit bool) {
	switch line {
	case ".help":
		fmt.Fprintln(r.out, `.meta:
  .help                 this help
  .format NAME          table, csv, json, yaml or xml
  .import FILE TABLE    load a CSV/TSV file (gzip ok) into TABLE
  .tables               list tables
  .quit                 exit`)
	case ".quit", ".exit":
		return true
	case ".tables":
		db, err := driver.Embedded(context.Background(), r.db)
		if err != nil {
			fmt.Fprintln(r.out, "ERR:", err)
			return false
		}
		for _, t := range db.Tables() {
			fmt.Fprintln(r.out, t)
		}
	default:
		if name, ok := strings.CutPrefix(line, ".format "); ok {
			name = strings.TrimSpace(name)
			if !slices.Contains(exporter.Formats, name) {
				fmt.Fprintf(r.out, "ERR: unknown format %q\n", name)
				return false
			}
			r.format = name
			return false
		}
		if args := strings.Fields(line); args[0] == ".import" {
			if len(args) != 3 {
				fmt.Fprintln(r.out, "ERR: usage: .import FILE TABLE")
				return false
			}
			r.importFile(args[1], args[2])
			return false
		}
		fmt.Fprintln(r.out, "ERR: unknown command", line)
	}
	return false
}

func (r *repl) importFile(path, table string) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(r.out, "ERR:", err)
		return
	}
	defer f.Close()
	ctx := context.Background()
	db, err := driver.Embedded(ctx, r.db)
	if err != nil {
		fmt.Fprintln(r.out, "ERR:", err)
		return
	}
	res, err := importer.ImportCSV(ctx, db, table, f, nil)
	if err != nil {
		fmt.Fprintln(r.out, "ERR:", err)
		return
	}
	for _, e := range res.Errors {
		fmt.Fprintln(r.out, "WARN:", e)
	}
	fmt.Fprintf(r.out, "(imported %d rows into %s, %d skipped)\n", res.RowsInserted, table, res.RowsSkipped)
}

func (r *repl) exec(q string) {
	if !strings.HasPrefix(strings.ToUpper(q), "SELECT") {
		res, err := r.db.Exec(q)
		if err != nil {
			fmt.Fprintln(r.out, "ERR:", err)
			return
		}
		n, _ := res.RowsAffected()
		fmt.Fprintf(r.out, "(ok, %d rows affected)\n", n)
		return
	}
	rows, err := r.db.Query(q)
	if err != nil {
		fmt.Fprintln(r.out, "ERR:", err)
		return
	}
	defer rows.Close()
	res, err := rowsToResult(rows)
	if err == nil {
		err = exporter.Export(r.out, r.format, res, exporter.Options{PrettyJSON: true})
	}
	if err != nil {
		fmt.Fprintln(r.out, "ERR:", err)
	}
}

func rowsToResult(rows *sql.Rows) (*exporter.Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := &exporter.Result{Cols: cols}
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, cells)
	}
	return res, rows.Err()
}
