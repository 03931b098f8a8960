package exporter

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/SimonWaldherr/tinycol/internal/engine"
	"github.com/SimonWaldherr/tinycol/internal/storage"
)

func makeSample() *Result {
	return &Result{
		Cols: []string{"id", "name", "active", "score"},
		Rows: [][]any{
			{int64(1), "alice", true, 2.5},
			{int64(2), nil, false, nil},
		},
	}
}

func TestFromResultSet(t *testing.T) {
	rs := &engine.ResultSet{
		Cols:  []string{"id", "name"},
		Types: []storage.DataType{storage.IntType, storage.TextType},
		Rows:  []storage.Row{{storage.IntValue(7), storage.NullValue()}},
	}
	r := FromResultSet(rs)
	if len(r.Rows) != 1 || r.Rows[0][0] != int64(7) || r.Rows[0][1] != nil {
		t.Fatalf("unexpected conversion: %#v", r.Rows)
	}
}

func TestExportTable(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportTable(&buf, makeSample()); err != nil {
		t.Fatalf("ExportTable failed: %v", err)
	}
	want := `id  name   active  score
--  -----  ------  -----
1   alice  TRUE    2.5
2   NULL   FALSE   NULL
(2 rows)
`
	if buf.String() != want {
		t.Fatalf("unexpected table:\n%s", buf.String())
	}
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(&buf, makeSample(), Options{}); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	if want := "id,name,active,score\n1,alice,TRUE,2.5\n2,,FALSE,\n"; buf.String() != want {
		t.Fatalf("unexpected CSV: %q", buf.String())
	}

	buf.Reset()
	if err := ExportCSV(&buf, makeSample(), Options{CSVNoHeader: true, CSVDelimiter: ';'}); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "1;alice;TRUE;2.5\n") {
		t.Fatalf("unexpected CSV: %q", buf.String())
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, makeSample(), Options{PrettyJSON: true}); err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}
	var arr []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &arr); err != nil {
		t.Fatalf("JSON unmarshal failed: %v", err)
	}
	if len(arr) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(arr))
	}
	if arr[1]["name"] != nil || arr[0]["active"] != true {
		t.Fatalf("unexpected rows: %v", arr)
	}
}

func TestExportYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportYAML(&buf, makeSample()); err != nil {
		t.Fatalf("ExportYAML failed: %v", err)
	}
	var arr []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &arr); err != nil {
		t.Fatalf("YAML unmarshal failed: %v", err)
	}
	if len(arr) != 2 || arr[0]["name"] != "alice" || arr[1]["score"] != nil {
		t.Fatalf("unexpected rows: %v", arr)
	}
}

func TestExportKeepsColumnOrderAndDuplicates(t *testing.T) {
	r := &Result{
		Cols: []string{"name", "id", "id", "id_2"},
		Rows: [][]any{{"bob", int64(1), int64(2), nil}},
	}
	var buf bytes.Buffer
	if err := ExportJSON(&buf, r, Options{}); err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}
	if want := `[{"name":"bob","id":1,"id_2":2,"id_2_2":null}]` + "\n"; buf.String() != want {
		t.Fatalf("unexpected JSON: %q", buf.String())
	}

	buf.Reset()
	if err := ExportYAML(&buf, r); err != nil {
		t.Fatalf("ExportYAML failed: %v", err)
	}
	if want := "- name: bob\n  id: 1\n  id_2: 2\n  id_2_2: null\n"; buf.String() != want {
		t.Fatalf("unexpected YAML: %q", buf.String())
	}
}

func TestExportXML(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportXML(&buf, makeSample()); err != nil {
		t.Fatalf("ExportXML failed: %v", err)
	}
	var xr struct {
		Rows []struct {
			Name struct {
				Null bool   `xml:"null,attr"`
				Text string `xml:",chardata"`
			} `xml:"name"`
		} `xml:"row"`
	}
	if err := xml.Unmarshal(buf.Bytes(), &xr); err != nil {
		t.Fatalf("XML unmarshal failed: %v", err)
	}
	if len(xr.Rows) != 2 {
		t.Fatalf("expected 2 xml rows, got %d", len(xr.Rows))
	}
	if xr.Rows[0].Name.Text != "alice" || !xr.Rows[1].Name.Null {
		t.Fatalf("unexpected xml rows: %+v", xr.Rows)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, "html", makeSample(), Options{}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if err := Export(&buf, "CSV", makeSample(), Options{}); err != nil {
		t.Fatalf("Export CSV failed: %v", err)
	}
}
