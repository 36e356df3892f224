// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package render

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"remotesql/cli/internal/wire"

	"github.com/pterm/pterm"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

func sample() *wire.Table {
	t := wire.NewTable("id", "name")
	t.AddRow(wire.Strings("1", "Ann")...)
	t.AddRow(wire.String("2"), wire.Null())
	return t
}

func TestTableData(t *testing.T) {
	data := TableData(sample())
	want := [][]string{{"id", "name"}, {"1", "Ann"}, {"2", NullText}}
	if len(data) != len(want) {
		t.Fatalf("TableData() has %d rows, want %d", len(data), len(want))
	}
	for i := range want {
		if strings.Join(data[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d = %v, want %v", i, data[i], want[i])
		}
	}
}

func TestTableDataPadsShortRows(t *testing.T) {
	tbl := &wire.Table{Columns: []string{"a", "b"}, Rows: [][]sql.NullString{wire.Strings("x")}}
	data := TableData(tbl)
	if len(data[1]) != 2 || data[1][0] != "x" || data[1][1] != "" {
		t.Errorf("padded row = %q", data[1])
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Table(&buf, sample()); err != nil {
		t.Fatalf("Table() error = %v", err)
	}
	out := buf.String()
	for _, s := range []string{"id", "name", "Ann", NullText, "(2 rows)"} {
		if !strings.Contains(out, s) {
			t.Errorf("output missing %q:\n%s", s, out)
		}
	}

	buf.Reset()
	if err := Table(&buf, wire.NewTable("id")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "(0 rows)") {
		t.Errorf("empty table output = %q", buf.String())
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Result(&buf, FormatJSON, sample()); err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	var got struct {
		Columns []string    `json:"columns"`
		Rows    [][]*string `json:"rows"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if len(got.Rows) != 2 || *got.Rows[0][1] != "Ann" || got.Rows[1][1] != nil {
		t.Errorf("JSON rows = %s", buf.String())
	}
}

func TestResultRejectsUnknownFormat(t *testing.T) {
	if err := Result(&bytes.Buffer{}, "xml", sample()); err == nil {
		t.Error("Result() accepted an unknown format")
	}
}

func TestPeers(t *testing.T) {
	var buf bytes.Buffer
	if err := Peers(&buf, "me", nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No peers") {
		t.Errorf("Peers(nil) = %q", buf.String())
	}

	buf.Reset()
	if err := Peers(&buf, "me", []string{"db-1", "db-2"}); err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"db-1", "db-2", "2 peer(s)"} {
		if !strings.Contains(buf.String(), s) {
			t.Errorf("output missing %q: %q", s, buf.String())
		}
	}
}
