// Package importer loads delimited text (CSV/TSV) into tinycol tables.
//
// It detects gzip compression, byte order marks (UTF-8, UTF-16LE/BE), the
// delimiter and the presence of a header row, and infers INT, FLOAT, BOOL or
// TEXT per column when it has to create the table.
//
// Example:
//
//	f, _ := os.Open("data.csv")
//	res, err := importer.ImportCSV(ctx, db, "mytable", f, nil)
//	fmt.Printf("imported %d rows into %d columns\n", res.RowsInserted, len(res.Columns))
package importer

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/SimonWaldherr/tinycol"
	"github.com/SimonWaldherr/tinycol/internal/engine"
)

// ============================================================================
// Public API Types
// ============================================================================

// Options configures the importer. All fields are optional.
type Options struct {
	// NullLiterals are read as NULL (case-insensitive, trimmed).
	// Defaults: "", "null", "na", "n/a", "none", "#n/a"
	NullLiterals []string

	// HeaderMode is "auto" (default), "present" or "absent". Without a
	// header, columns are named col_1, col_2, ...
	HeaderMode string

	// DelimiterCandidates tested during detection. Default: , ; \t |
	DelimiterCandidates []rune

	// SampleRecords caps the records used for delimiter and header
	// detection (default 500). Type inference always sees every record.
	SampleRecords int

	// Truncate deletes all rows of an existing table before loading.
	Truncate bool

	// Strict aborts on the first record that does not fit the column
	// types. Otherwise such records are skipped and listed in Errors.
	Strict bool
}

// Result describes a finished import.
type Result struct {
	Table        string
	Created      bool // the table did not exist and was created
	RowsInserted int64
	RowsSkipped  int64
	Delimiter    rune
	HadHeader    bool
	Encoding     string // "utf-8", "utf-8-bom", "utf-16le" or "utf-16be"
	Columns      []tinycol.ColumnDef
	Errors       []string
}

// ============================================================================
// CSV/TSV Import
// ============================================================================

// ImportCSV reads delimited records from src into table. A missing table is
// created from the inferred column types; an existing one dictates the
// types and must have at least as many columns as the input.
func ImportCSV(ctx context.Context, db *tinycol.DB, table string, src io.Reader, opts *Options) (*Result, error) {
	if table == "" {
		return nil, errors.New("importer: table name is required")
	}
	o := withDefaults(opts)
	res := &Result{Table: table}

	br := bufio.NewReader(maybeGzip(src))
	head, _ := br.Peek(3)
	res.Encoding = detectEncoding(head)
	dec := transform.NewReader(br, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("importer: read input: %w", err)
	}
	lines := splitUniversal(string(data))
	if len(lines) == 0 {
		return nil, errors.New("importer: empty input")
	}
	res.Delimiter = detectDelimiter(lines, o.DelimiterCandidates)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = res.Delimiter
	cr.FieldsPerRecord = -1 // allow ragged rows
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("importer: %w", err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, errors.New("importer: empty input")
	}

	sample := records
	if len(sample) > o.SampleRecords {
		sample = sample[:o.SampleRecords]
	}
	res.HadHeader = decideHeader(sample, o.HeaderMode)
	var names []string
	if res.HadHeader {
		names = sanitizeColumnNames(records[0])
		records = records[1:]
	} else {
		names = generateColumnNames(len(records[0]))
	}

	if cols, err := db.Schema(table); err == nil {
		if len(cols) < len(names) {
			return nil, fmt.Errorf("importer: table %q has %d columns, input has %d", table, len(cols), len(names))
		}
		res.Columns = cols[:len(names)]
		if o.Truncate {
			if _, err := db.ExecuteStatement(&engine.Delete{Table: table}); err != nil {
				return nil, fmt.Errorf("importer: truncate: %w", err)
			}
		}
	} else {
		res.Columns = make([]tinycol.ColumnDef, len(names))
		types := inferColumnTypes(records, len(names), o.NullLiterals)
		for i, n := range names {
			res.Columns[i] = tinycol.ColumnDef{Name: n, Type: types[i], Nullable: true}
		}
		if _, err := db.ExecuteStatement(createStatement(table, res.Columns)); err != nil {
			return nil, fmt.Errorf("importer: create table: %w", err)
		}
		res.Created = true
	}

	line := 1
	if res.HadHeader {
		line = 2
	}
	for i, rec := range records {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		st, err := insertStatement(table, res.Columns, rec, o.NullLiterals)
		if err == nil {
			_, err = db.ExecuteStatement(st)
		}
		if err != nil {
			if o.Strict {
				return res, fmt.Errorf("importer: record %d: %w", line+i, err)
			}
			res.RowsSkipped++
			res.Errors = append(res.Errors, fmt.Sprintf("record %d: %v", line+i, err))
			continue
		}
		res.RowsInserted++
	}
	return res, nil
}

// ============================================================================
// Detection
// ============================================================================

func withDefaults(opts *Options) Options {
	var o Options
	if opts != nil {
		o = *opts
	}
	if len(o.NullLiterals) == 0 {
		o.NullLiterals = []string{"", "null", "na", "n/a", "none", "#n/a"}
	}
	if o.HeaderMode == "" {
		o.HeaderMode = "auto"
	}
	if len(o.DelimiterCandidates) == 0 {
		o.DelimiterCandidates = []rune{',', ';', '\t', '|'}
	}
	if o.SampleRecords <= 0 {
		o.SampleRecords = 500
	}
	return o
}

func maybeGzip(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	magic, _ := br.Peek(2)
	if len(magic) == 2 && magic[0] == 0x1F && magic[1] == 0x8B {
		if gr, err := gzip.NewReader(br); err == nil {
			return gr
		}
	}
	return br
}

func detectEncoding(b []byte) string {
	switch {
	case len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF:
		return "utf-8-bom"
	case len(b) >= 2 && b[0] == 0xFF && b[1] == 0xFE:
		return "utf-16le"
	case len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF:
		return "utf-16be"
	}
	return "utf-8"
}

func splitUniversal(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		if strings.TrimSpace(ln) != "" {
			out = append(out, ln)
		}
	}
	return out
}

// detectDelimiter picks the candidate whose per-line field count is the
// most stable, preferring more fields on ties.
func detectDelimiter(lines []string, cands []rune) rune {
	best, bestSD, bestFields := ',', math.Inf(1), 0
	if len(lines) > 200 {
		lines = lines[:200]
	}
	for _, cand := range cands {
		counts := make([]int, len(lines))
		for i, ln := range lines {
			counts[i] = countDelimsOutsideQuotes(ln, cand) + 1
		}
		sd := stddev(counts)
		fields := mode(counts)
		if fields <= 1 {
			continue
		}
		if sd < bestSD || (math.Abs(sd-bestSD) < 1e-9 && fields > bestFields) {
			best, bestSD, bestFields = cand, sd, fields
		}
	}
	return best
}

func countDelimsOutsideQuotes(ln string, delim rune) int {
	inQ := false
	count := 0
	for i := 0; i < len(ln); {
		r, w := utf8.DecodeRuneInString(ln[i:])
		i += w
		switch {
		case r == '"':
			inQ = !inQ
		case !inQ && r == delim:
			count++
		}
	}
	return count
}

func stddev(xs []int) float64 {
	var sum float64
	for _, x := range xs {
		sum += float64(x)
	}
	mean := sum / float64(len(xs))
	var v float64
	for _, x := range xs {
		d := float64(x) - mean
		v += d * d
	}
	return math.Sqrt(v / float64(len(xs)))
}

func mode(xs []int) int {
	freq := make(map[int]int)
	best, bestN := 0, 0
	for _, x := range xs {
		freq[x]++
		if n := freq[x]; n > bestN || (n == bestN && x > best) {
			best, bestN = x, n
		}
	}
	return best
}

// decideHeader treats the first record as a header when at least half of
// its fields are non-numeric above columns whose data is mostly numeric.
func decideHeader(records [][]string, mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "present":
		return true
	case "absent":
		return false
	}
	if len(records) < 2 {
		return false
	}
	first, body := records[0], records[1:]
	headerish := 0
	for c, h := range first {
		if looksNumeric(h) {
			continue
		}
		dataNum, rows := 0, 0
		for _, r := range body {
			if c >= len(r) {
				continue
			}
			if looksNumeric(r[c]) {
				dataNum++
			}
			rows++
		}
		if rows > 0 && float64(dataNum)/float64(rows) > 0.6 {
			headerish++
		}
	}
	return float64(headerish)/float64(len(first)) >= 0.5
}

// sanitizeColumnNames turns header fields into identifiers: letters,
// digits and underscores, never starting with a digit, unique ignoring case.
func sanitizeColumnNames(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]int)
	for i, h := range header {
		var sb strings.Builder
		for _, r := range strings.TrimSpace(h) {
			if isIdentRune(r) {
				sb.WriteRune(r)
			} else {
				sb.WriteByte('_')
			}
		}
		name := strings.Trim(sb.String(), "_")
		if name == "" {
			name = fmt.Sprintf("col_%d", i+1)
		} else if name[0] >= '0' && name[0] <= '9' {
			name = "c_" + name
		}
		key := strings.ToLower(name)
		if n := used[key]; n > 0 {
			name = fmt.Sprintf("%s_%d", name, n+1)
			key = strings.ToLower(name)
		}
		used[key]++
		out[i] = name
	}
	return out
}

func generateColumnNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("col_%d", i+1)
	}
	return out
}

func isIdentRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
