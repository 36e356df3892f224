// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"net/url"
	"sort"
	"strings"
)

// MemoryDatabase is the SQLite in-memory database name.
const MemoryDatabase = ":memory:"

// SQLiteResolver handles SQLite DSNs: sqlite://path, sqlite:path, file:path,
// :memory:, or a bare path ending in .db, .sqlite or .sqlite3.
type SQLiteResolver struct{}

// NewSQLiteResolver creates a new SQLite resolver
func NewSQLiteResolver() *SQLiteResolver {
	return &SQLiteResolver{}
}

// isSQLite reports whether dsn looks like a SQLite location. lower is dsn lower-cased.
func isSQLite(lower string) bool {
	if lower == MemoryDatabase ||
		strings.HasPrefix(lower, "sqlite://") ||
		strings.HasPrefix(lower, "sqlite:") ||
		strings.HasPrefix(lower, "file:") {
		return true
	}
	if strings.Contains(lower, "://") {
		return false
	}
	path := lower
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	for _, ext := range []string{".db", ".sqlite", ".sqlite3"} {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// Parse extracts the file path and query parameters.
func (r *SQLiteResolver) Parse(dsn string) (*DSNInfo, error) {
	if dsn == "" {
		return nil, NewParseError(dsn, "empty DSN", "provide a SQLite file path or :memory:")
	}

	rest := dsn
	lower := strings.ToLower(dsn)
	for _, prefix := range []string{"sqlite://", "sqlite:", "file:"} {
		if strings.HasPrefix(lower, prefix) {
			rest = dsn[len(prefix):]
			break
		}
	}

	info := &DSNInfo{
		Type:     DBTypeSQLite,
		Params:   make(map[string]string),
		Original: dsn,
	}
	path, rawQuery, _ := strings.Cut(rest, "?")
	if rawQuery != "" {
		values, err := url.ParseQuery(rawQuery)
		if err != nil {
			return nil, NewParseError(dsn, "invalid query parameters", "use file:path?key=value&key=value")
		}
		for key, v := range values {
			if len(v) > 0 {
				info.Params[key] = v[0]
			}
		}
	}
	info.Database = strings.TrimSpace(path)
	if info.Database == "" {
		return nil, NewParseError(dsn, "missing database path", "provide a file path, e.g. file:data.db, or :memory:")
	}
	return info, nil
}

// Normalize produces the file: form the sqlite driver opens.
func (r *SQLiteResolver) Normalize(info *DSNInfo) (string, error) {
	if info == nil {
		return "", NewParseError("", "nil DSN info", "")
	}
	if info.Database == MemoryDatabase && len(info.Params) == 0 {
		return MemoryDatabase, nil
	}

	var b strings.Builder
	b.WriteString("file:")
	b.WriteString(info.Database)
	if len(info.Params) > 0 {
		keys := make([]string, 0, len(info.Params))
		for k := range info.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i == 0 {
				b.WriteString("?")
			} else {
				b.WriteString("&")
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteString("=")
			b.WriteString(url.QueryEscape(info.Params[k]))
		}
	}
	return b.String(), nil
}

// Validate checks if the DSN is a usable SQLite location.
func (r *SQLiteResolver) Validate(dsn string) error {
	_, err := r.Parse(dsn)
	return err
}
