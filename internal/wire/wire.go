// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package wire encodes the two payload shapes exchanged by the remote query
// protocol: a query Request travelling to the responder and a result Table
// travelling back. Cells and bind arguments are nullable strings; there are no
// typed columns on the wire.
//
// The byte format is a single kind byte followed by a protobuf-wire message.
// The kind byte lets a receiver tell requests and results apart when both share
// one routing key on the same inbound channel.
package wire

import "database/sql"

// String returns a non-null cell or argument.
func String(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

// Null returns a null cell or argument.
func Null() sql.NullString { return sql.NullString{} }

// Strings converts plain strings into non-null values.
func Strings(ss ...string) []sql.NullString {
	out := make([]sql.NullString, len(ss))
	for i, s := range ss {
		out[i] = String(s)
	}
	return out
}

// Request is a SQL statement with positional bind arguments.
// A nil Args is distinct from an empty one and survives a round trip.
type Request struct {
	Text string
	Args []sql.NullString
}

// Equal reports whether r and o carry the same text and arguments.
func (r Request) Equal(o Request) bool {
	if r.Text != o.Text || (r.Args == nil) != (o.Args == nil) {
		return false
	}
	return valuesEqual(r.Args, o.Args)
}

// Table is a fully materialized, string-typed query result.
// Rows are aligned positionally with Columns; column names need not be unique.
type Table struct {
	Columns []string
	Rows    [][]sql.NullString
}

// NewTable returns an empty table with the given columns.
func NewTable(columns ...string) *Table {
	if columns == nil {
		columns = []string{}
	}
	return &Table{Columns: columns, Rows: [][]sql.NullString{}}
}

// AddRow appends a row of cells.
func (t *Table) AddRow(cells ...sql.NullString) {
	if cells == nil {
		cells = []sql.NullString{}
	}
	t.Rows = append(t.Rows, cells)
}

// Equal reports whether t and o have the same columns and cells.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.Columns) != len(o.Columns) || len(t.Rows) != len(o.Rows) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i] != o.Columns[i] {
			return false
		}
	}
	for i := range t.Rows {
		if !valuesEqual(t.Rows[i], o.Rows[i]) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b []sql.NullString) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Valid != b[i].Valid {
			return false
		}
		if a[i].Valid && a[i].String != b[i].String {
			return false
		}
	}
	return true
}
