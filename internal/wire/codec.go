// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package wire

import (
	"database/sql"

	rqerrors "remotesql/cli/internal/errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned for any payload the codec cannot decode.
var ErrMalformed = rqerrors.New(rqerrors.MalformedPayload, "malformed payload")

// Kind bytes prefixing every payload.
const (
	KindRequest byte = 'Q'
	KindResult  byte = 'R'
)

// Field numbers. Request: text=1, arg=2, args_present=3.
// Result: column=1, row=2. Row: value=1. Value: string=1 (absent means null).
const (
	fieldText        protowire.Number = 1
	fieldArg         protowire.Number = 2
	fieldArgsPresent protowire.Number = 3

	fieldColumn protowire.Number = 1
	fieldRow    protowire.Number = 2

	fieldRowValue protowire.Number = 1
	fieldString   protowire.Number = 1
)

// IsRequest reports whether data carries the request kind byte.
func IsRequest(data []byte) bool { return len(data) > 0 && data[0] == KindRequest }

// IsResult reports whether data carries the result kind byte.
func IsResult(data []byte) bool { return len(data) > 0 && data[0] == KindResult }

// EncodeRequest serializes a query request.
func EncodeRequest(r Request) []byte {
	b := []byte{KindRequest}
	b = protowire.AppendTag(b, fieldText, protowire.BytesType)
	b = protowire.AppendString(b, r.Text)
	for _, a := range r.Args {
		b = protowire.AppendTag(b, fieldArg, protowire.BytesType)
		b = protowire.AppendBytes(b, appendValue(nil, a))
	}
	if r.Args != nil {
		b = protowire.AppendTag(b, fieldArgsPresent, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	return b
}

// DecodeRequest parses bytes produced by EncodeRequest.
func DecodeRequest(data []byte) (Request, error) {
	var r Request
	if !IsRequest(data) {
		return r, ErrMalformed
	}
	var args []sql.NullString
	present := false
	err := eachField(data[1:], func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldText && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return 0, malformed(protowire.ParseError(n))
			}
			r.Text = v
			return n, nil
		case num == fieldArg && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, malformed(protowire.ParseError(n))
			}
			val, err := decodeValue(v)
			if err != nil {
				return 0, err
			}
			args = append(args, val)
			return n, nil
		case num == fieldArgsPresent && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, malformed(protowire.ParseError(n))
			}
			present = v != 0
			return n, nil
		}
		return skip(num, typ, b)
	})
	if err != nil {
		return Request{}, err
	}
	if present && args == nil {
		args = []sql.NullString{}
	}
	r.Args = args
	return r, nil
}

// EncodeResult serializes a result table. A nil table encodes as an empty one.
func EncodeResult(t *Table) []byte {
	b := []byte{KindResult}
	if t == nil {
		return b
	}
	for _, c := range t.Columns {
		b = protowire.AppendTag(b, fieldColumn, protowire.BytesType)
		b = protowire.AppendString(b, c)
	}
	var row []byte
	for _, cells := range t.Rows {
		row = row[:0]
		for _, v := range cells {
			row = protowire.AppendTag(row, fieldRowValue, protowire.BytesType)
			row = protowire.AppendBytes(row, appendValue(nil, v))
		}
		b = protowire.AppendTag(b, fieldRow, protowire.BytesType)
		b = protowire.AppendBytes(b, row)
	}
	return b
}

// DecodeResult parses bytes produced by EncodeResult.
// The returned table always has non-nil Columns and Rows.
func DecodeResult(data []byte) (*Table, error) {
	if !IsResult(data) {
		return nil, ErrMalformed
	}
	t := NewTable()
	err := eachField(data[1:], func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldColumn && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return 0, malformed(protowire.ParseError(n))
			}
			t.Columns = append(t.Columns, v)
			return n, nil
		case num == fieldRow && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, malformed(protowire.ParseError(n))
			}
			row, err := decodeRow(v)
			if err != nil {
				return 0, err
			}
			t.Rows = append(t.Rows, row)
			return n, nil
		}
		return skip(num, typ, b)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func decodeRow(data []byte) ([]sql.NullString, error) {
	row := []sql.NullString{}
	err := eachField(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == fieldRowValue && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, malformed(protowire.ParseError(n))
			}
			val, err := decodeValue(v)
			if err != nil {
				return 0, err
			}
			row = append(row, val)
			return n, nil
		}
		return skip(num, typ, b)
	})
	return row, err
}

func appendValue(b []byte, v sql.NullString) []byte {
	if !v.Valid {
		return b
	}
	b = protowire.AppendTag(b, fieldString, protowire.BytesType)
	return protowire.AppendString(b, v.String)
}

func decodeValue(data []byte) (sql.NullString, error) {
	var out sql.NullString
	err := eachField(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == fieldString && typ == protowire.BytesType {
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return 0, malformed(protowire.ParseError(n))
			}
			out = sql.NullString{String: v, Valid: true}
			return n, nil
		}
		return skip(num, typ, b)
	})
	return out, err
}

// eachField walks the top-level fields of a message. fn consumes the value
// bytes following the tag and returns how many it used.
func eachField(b []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed(protowire.ParseError(n))
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}

func skip(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, malformed(protowire.ParseError(n))
	}
	return n, nil
}

func malformed(cause error) error {
	return rqerrors.Wrap(rqerrors.MalformedPayload, "malformed payload", cause)
}
