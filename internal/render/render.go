// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package render prints query results and peer lists for humans and scripts.
package render

import (
	"encoding/json"
	"fmt"
	"io"

	"remotesql/cli/internal/wire"

	"github.com/pterm/pterm"
)

// NullText is how a SQL NULL cell is shown in tables.
const NullText = "NULL"

// Output formats accepted by Result.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// TableData converts t into pterm rows, header first. Short rows are padded
// so every row has one cell per column.
func TableData(t *wire.Table) pterm.TableData {
	data := pterm.TableData{append([]string(nil), t.Columns...)}
	for _, row := range t.Rows {
		cells := make([]string, max(len(t.Columns), len(row)))
		for i := range cells {
			switch {
			case i >= len(row):
			case row[i].Valid:
				cells[i] = row[i].String
			default:
				cells[i] = pterm.Gray(NullText)
			}
		}
		data = append(data, cells)
	}
	return data
}

// Table writes t as a boxed table followed by a row count.
func Table(w io.Writer, t *wire.Table) error {
	if len(t.Columns) == 0 {
		_, err := fmt.Fprintln(w, "(no columns)")
		return err
	}
	s, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(TableData(t)).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n%s\n", s, rowCount(len(t.Rows)))
	return err
}

func rowCount(n int) string {
	if n == 1 {
		return "(1 row)"
	}
	return fmt.Sprintf("(%d rows)", n)
}

type jsonTable struct {
	Columns []string    `json:"columns"`
	Rows    [][]*string `json:"rows"`
}

// JSON writes t as {"columns": [...], "rows": [[...]]} with null for SQL NULL.
func JSON(w io.Writer, t *wire.Table) error {
	out := jsonTable{Columns: t.Columns, Rows: make([][]*string, 0, len(t.Rows))}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	for _, row := range t.Rows {
		cells := make([]*string, len(row))
		for i, v := range row {
			if v.Valid {
				s := v.String
				cells[i] = &s
			}
		}
		out.Rows = append(out.Rows, cells)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Result writes t in the named format.
func Result(w io.Writer, format string, t *wire.Table) error {
	switch format {
	case FormatTable, "":
		return Table(w, t)
	case FormatJSON:
		return JSON(w, t)
	default:
		return fmt.Errorf("unknown output format %q (use %s or %s)", format, FormatTable, FormatJSON)
	}
}

// Peers writes the peers reachable from self as a bullet list.
func Peers(w io.Writer, self string, peers []string) error {
	if len(peers) == 0 {
		_, err := fmt.Fprintf(w, "No peers reachable from %s\n", self)
		return err
	}
	items := make([]pterm.BulletListItem, 0, len(peers))
	for _, p := range peers {
		items = append(items, pterm.BulletListItem{Level: 0, Text: p})
	}
	s, err := pterm.DefaultBulletList.WithItems(items).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%d peer(s) reachable from %s\n%s", len(peers), self, s)
	return err
}
