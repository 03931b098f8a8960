// Package exporter renders query results as aligned text, CSV, JSON, YAML
// or XML.
package exporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/SimonWaldherr/tinycol/internal/engine"
)

// Result is a positional result: Rows[i][j] belongs to Cols[j]. Cells hold
// nil, int64, float64, string or bool.
type Result struct {
	Cols []string
	Rows [][]any
}

// FromResultSet converts an engine result.
func FromResultSet(rs *engine.ResultSet) *Result {
	r := &Result{Cols: rs.Cols, Rows: make([][]any, len(rs.Rows))}
	for i, row := range rs.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v.Any()
		}
		r.Rows[i] = cells
	}
	return r
}

// Options controls exporter behavior.
type Options struct {
	PrettyJSON   bool
	CSVNoHeader  bool
	CSVDelimiter rune
}

// Formats lists the names accepted by Export.
var Formats = []string{"table", "csv", "json", "yaml", "xml"}

// Export writes r in the named format.
func Export(w io.Writer, format string, r *Result, opts Options) error {
	switch strings.ToLower(format) {
	case "", "table":
		return ExportTable(w, r)
	case "csv":
		return ExportCSV(w, r, opts)
	case "json":
		return ExportJSON(w, r, opts)
	case "yaml":
		return ExportYAML(w, r)
	case "xml":
		return ExportXML(w, r)
	}
	return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

func valueToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func displayString(v any) string {
	if v == nil {
		return "NULL"
	}
	return valueToString(v)
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

// ExportTable writes an aligned text table followed by a row count.
func ExportTable(w io.Writer, r *Result) error {
	width := make([]int, len(r.Cols))
	for i, c := range r.Cols {
		width[i] = len(c)
	}
	cells := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			cells[i][j] = displayString(v)
			if n := len(cells[i][j]); n > width[j] {
				width[j] = n
			}
		}
	}
	var sb strings.Builder
	line := func(fields []string) {
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = padRight(f, width[i])
		}
		sb.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
		sb.WriteByte('\n')
	}
	line(r.Cols)
	dashes := make([]string, len(r.Cols))
	for i := range dashes {
		dashes[i] = strings.Repeat("-", width[i])
	}
	line(dashes)
	for _, row := range cells {
		line(row)
	}
	fmt.Fprintf(&sb, "(%d rows)\n", len(r.Rows))
	_, err := io.WriteString(w, sb.String())
	return err
}

// ExportCSV writes rows as CSV to w. NULL becomes an empty field.
func ExportCSV(w io.Writer, r *Result, opts Options) error {
	csvw := csv.NewWriter(w)
	if opts.CSVDelimiter != 0 {
		csvw.Comma = opts.CSVDelimiter
	}
	if !opts.CSVNoHeader {
		if err := csvw.Write(r.Cols); err != nil {
			return err
		}
	}
	for _, row := range r.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = valueToString(v)
		}
		if err := csvw.Write(rec); err != nil {
			return err
		}
	}
	csvw.Flush()
	return csvw.Error()
}

// record is one row keyed by column name, encoded in column order.
type record struct {
	keys []string
	vals []any
}

func (r record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.vals[i])
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (r record) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for i, k := range r.keys {
		var kn, vn yaml.Node
		if err := kn.Encode(k); err != nil {
			return nil, err
		}
		if err := vn.Encode(r.vals[i]); err != nil {
			return nil, err
		}
		n.Content = append(n.Content, &kn, &vn)
	}
	return n, nil
}

// records keys each row by column name. A repeated column name gets a _2,
// _3, ... suffix so no cell is lost.
func records(r *Result) []record {
	keys := uniqueKeys(r.Cols)
	out := make([]record, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = record{keys: keys, vals: row}
	}
	return out
}

func uniqueKeys(cols []string) []string {
	keys := make([]string, len(cols))
	seen := make(map[string]bool, len(cols))
	for i, c := range cols {
		k := c
		for n := 2; seen[k]; n++ {
			k = c + "_" + strconv.Itoa(n)
		}
		seen[k] = true
		keys[i] = k
	}
	return keys
}

// ExportJSON writes rows as a JSON array of objects.
func ExportJSON(w io.Writer, r *Result, opts Options) error {
	enc := json.NewEncoder(w)
	if opts.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(records(r))
}

// ExportYAML writes rows as a YAML sequence of mappings.
func ExportYAML(w io.Writer, r *Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records(r)); err != nil {
		return err
	}
	return enc.Close()
}

type xmlField struct {
	XMLName xml.Name
	Null    bool   `xml:"null,attr,omitempty"`
	Value   string `xml:",chardata"`
}

type xmlRow struct {
	Fields []xmlField `xml:",any"`
}

type xmlRows struct {
	XMLName xml.Name `xml:"rows"`
	Rows    []xmlRow `xml:"row"`
}

// ExportXML writes rows as <rows><row><col>value</col>...</row>...</rows>.
func ExportXML(w io.Writer, r *Result) error {
	xr := xmlRows{Rows: make([]xmlRow, 0, len(r.Rows))}
	for _, row := range r.Rows {
		xrRow := xmlRow{Fields: make([]xmlField, 0, len(r.Cols))}
		for i, c := range r.Cols {
			xrRow.Fields = append(xrRow.Fields, xmlField{
				XMLName: xml.Name{Local: c},
				Null:    row[i] == nil,
				Value:   valueToString(row[i]),
			})
		}
		xr.Rows = append(xr.Rows, xrRow)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(xr); err != nil {
		return err
	}
	return enc.Flush()
}
