// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package wire

import (
	"database/sql"
	"errors"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{name: "nil args", req: Request{Text: "SELECT 1"}},
		{name: "empty args", req: Request{Text: "SELECT 1", Args: []sql.NullString{}}},
		{name: "string args", req: Request{Text: "SELECT * FROM t WHERE a = ? AND b = ?", Args: Strings("x", "y")}},
		{name: "null and empty string args", req: Request{Text: "SELECT ?, ?, ?", Args: []sql.NullString{Null(), String(""), String("z")}}},
		{name: "empty text", req: Request{}},
		{name: "unicode", req: Request{Text: "SELECT 'päivää'", Args: Strings("日本語")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRequest(EncodeRequest(tt.req))
			if err != nil {
				t.Fatalf("DecodeRequest() error = %v", err)
			}
			if !got.Equal(tt.req) {
				t.Errorf("round trip = %+v, want %+v", got, tt.req)
			}
			if (got.Args == nil) != (tt.req.Args == nil) {
				t.Errorf("args nil-ness changed: got nil=%v, want nil=%v", got.Args == nil, tt.req.Args == nil)
			}
		})
	}
}

func TestResultRoundTrip(t *testing.T) {
	withNulls := NewTable("id", "name", "note")
	withNulls.AddRow(String("1"), String("Ann"), Null())
	withNulls.AddRow(String("2"), Null(), String(""))

	duplicateColumns := NewTable("a", "a")
	duplicateColumns.AddRow(String("x"), String("y"))

	emptyRow := NewTable()
	emptyRow.AddRow()

	tests := []struct {
		name  string
		table *Table
	}{
		{name: "zero rows", table: NewTable("id", "name")},
		{name: "no columns", table: NewTable()},
		{name: "null cells", table: withNulls},
		{name: "duplicate column names", table: duplicateColumns},
		{name: "row without cells", table: emptyRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeResult(EncodeResult(tt.table))
			if err != nil {
				t.Fatalf("DecodeResult() error = %v", err)
			}
			if !got.Equal(tt.table) {
				t.Errorf("round trip = %+v, want %+v", got, tt.table)
			}
			if got.Columns == nil || got.Rows == nil {
				t.Errorf("decoded table has nil slices: %+v", got)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	req := EncodeRequest(Request{Text: "SELECT 1", Args: Strings("a")})
	res := EncodeResult(NewTable("a"))

	tests := []struct {
		name   string
		data   []byte
		decode func([]byte) error
	}{
		{name: "empty request", data: nil, decode: decodeReq},
		{name: "empty result", data: []byte{}, decode: decodeRes},
		{name: "result as request", data: res, decode: decodeReq},
		{name: "request as result", data: req, decode: decodeRes},
		{name: "truncated request", data: req[:len(req)-3], decode: decodeReq},
		{name: "garbage after kind", data: []byte{KindRequest, 0xff, 0xff, 0xff}, decode: decodeReq},
		{name: "foreign bytes", data: []byte("hello world"), decode: decodeRes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decode(tt.data)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestKindDetection(t *testing.T) {
	if !IsRequest(EncodeRequest(Request{})) || IsResult(EncodeRequest(Request{})) {
		t.Errorf("request kind not detected")
	}
	if !IsResult(EncodeResult(nil)) || IsRequest(EncodeResult(nil)) {
		t.Errorf("result kind not detected")
	}
	if IsRequest(nil) || IsResult(nil) {
		t.Errorf("empty payload detected as a frame")
	}
}

func TestTableEqual(t *testing.T) {
	a := NewTable("x")
	a.AddRow(String("1"))
	b := NewTable("x")
	b.AddRow(String("1"))
	c := NewTable("x")
	c.AddRow(Null())

	if !a.Equal(b) {
		t.Errorf("expected equal tables")
	}
	if a.Equal(c) {
		t.Errorf("null cell compared equal to value")
	}
	var nilTable *Table
	if a.Equal(nilTable) || !nilTable.Equal(nil) {
		t.Errorf("nil handling wrong")
	}
}

func decodeReq(b []byte) error { _, err := DecodeRequest(b); return err }
func decodeRes(b []byte) error { _, err := DecodeResult(b); return err }
