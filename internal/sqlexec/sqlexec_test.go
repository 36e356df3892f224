// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"reflect"
	"testing"
	"time"

	rqerrors "remotesql/cli/internal/errors"
)

func openMemory(t *testing.T) *SQLDatabase {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	if err := db.Exec(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT, note TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := db.Exec(ctx, "INSERT INTO t (id, name, note) VALUES (1, 'Ann', NULL), (2, 'Bob', 'x')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return db
}

func collect(t *testing.T, rows Rows) [][]sql.NullString {
	t.Helper()
	defer rows.Close()
	var out [][]sql.NullString
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			t.Fatalf("Values() error = %v", err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	return out
}

func TestSQLiteQuery(t *testing.T) {
	db := openMemory(t)

	rows, err := db.Query(context.Background(), "SELECT id, name, note FROM t ORDER BY id", nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got := rows.Columns(); !reflect.DeepEqual(got, []string{"id", "name", "note"}) {
		t.Errorf("Columns() = %v", got)
	}
	want := [][]sql.NullString{
		{{String: "1", Valid: true}, {String: "Ann", Valid: true}, {}},
		{{String: "2", Valid: true}, {String: "Bob", Valid: true}, {String: "x", Valid: true}},
	}
	if got := collect(t, rows); !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestSQLitePositionalArgs(t *testing.T) {
	db := openMemory(t)

	rows, err := db.Query(context.Background(), "SELECT name FROM t WHERE id = ?", []sql.NullString{{String: "2", Valid: true}})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	got := collect(t, rows)
	if len(got) != 1 || got[0][0].String != "Bob" {
		t.Errorf("rows = %v, want [[Bob]]", got)
	}

	rows, err = db.Query(context.Background(), "SELECT ? IS NULL", []sql.NullString{{}})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	got = collect(t, rows)
	if len(got) != 1 || got[0][0].String != "1" {
		t.Errorf("null arg rows = %v, want [[1]]", got)
	}
}

func TestSQLiteInvalidQuery(t *testing.T) {
	db := openMemory(t)
	if _, err := db.Query(context.Background(), "SELEC nothing", nil); err == nil {
		t.Error("Query() with invalid SQL should fail")
	}
}

func TestOpen(t *testing.T) {
	db, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()
	if _, ok := db.(*SQLDatabase); !ok {
		t.Errorf("Open(:memory:) = %T, want *SQLDatabase", db)
	}

	_, err = Open(context.Background(), "mongodb://localhost/db")
	if rqerrors.KindOf(err) != rqerrors.SetupFailed {
		t.Errorf("Open(mongodb) kind = %q, want %q", rqerrors.KindOf(err), rqerrors.SetupFailed)
	}
}

type valuer struct{ v any }

func (v valuer) Value() (driver.Value, error) { return v.v, nil }

func TestCoerce(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 8, time.UTC)
	uuidBytes := []byte{0x12, 0x3e, 0x45, 0x67, 0xe8, 0x9b, 0x12, 0xd3, 0xa4, 0x56, 0x42, 0x66, 0x14, 0x17, 0x40, 0x00}

	tests := []struct {
		name    string
		in      any
		dialect Dialect
		want    sql.NullString
	}{
		{"nil", nil, DialectPostgres, sql.NullString{}},
		{"string", "abc", DialectPostgres, str("abc")},
		{"int64", int64(-42), DialectSQLite, str("-42")},
		{"float", 1.5, DialectSQLite, str("1.5")},
		{"bool", true, DialectPostgres, str("true")},
		{"time", ts, DialectPostgres, str("2025-03-04T05:06:07.000000008Z")},
		{"bytea of uuid length", uuidBytes, DialectPostgres, str(`\x123e4567e89b12d3a456426614174000`)},
		{"bytea digest", []byte("0123456789abcdef"), DialectPostgres, str(`\x30313233343536373839616263646566`)},
		{"uuid array", [16]byte(uuidBytes), DialectPostgres, str("123e4567-e89b-12d3-a456-426614174000")},
		{"bytea", []byte{0xde, 0xad}, DialectPostgres, str(`\xdead`)},
		{"sqlite blob", []byte("raw"), DialectSQLite, str("raw")},
		{"json", map[string]any{"a": 1}, DialectPostgres, str(`{"a":1}`)},
		{"valuer", valuer{int64(7)}, DialectPostgres, str("7")},
		{"null valuer", valuer{nil}, DialectPostgres, sql.NullString{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Coerce(tt.in, tt.dialect); got != tt.want {
				t.Errorf("Coerce(%v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}
