// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Dialect selects engine-specific coercion rules.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

// Coerce converts a driver value into the string form carried on the wire.
// nil becomes null.
func Coerce(v any, d Dialect) sql.NullString {
	switch x := v.(type) {
	case nil:
		return sql.NullString{}
	case string:
		return str(x)
	case []byte:
		if d == DialectSQLite {
			return str(string(x))
		}
		return str(fmt.Sprintf("\\x%x", x))
	case [16]byte:
		// pgx hands back uuid columns as [16]byte; bytea stays []byte.
		return str(uuid.UUID(x).String())
	case uuid.UUID:
		return str(x.String())
	case bool:
		return str(strconv.FormatBool(x))
	case int64:
		return str(strconv.FormatInt(x, 10))
	case int32:
		return str(strconv.FormatInt(int64(x), 10))
	case int16:
		return str(strconv.FormatInt(int64(x), 10))
	case int8:
		return str(strconv.FormatInt(int64(x), 10))
	case int:
		return str(strconv.Itoa(x))
	case uint64:
		return str(strconv.FormatUint(x, 10))
	case uint32:
		return str(strconv.FormatUint(uint64(x), 10))
	case float64:
		return str(strconv.FormatFloat(x, 'g', -1, 64))
	case float32:
		return str(strconv.FormatFloat(float64(x), 'g', -1, 32))
	case time.Time:
		return str(x.Format(time.RFC3339Nano))
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return str(fmt.Sprint(x))
		}
		return str(string(b))
	case driver.Valuer:
		inner, err := x.Value()
		if err != nil {
			return str(fmt.Sprint(x))
		}
		if _, again := inner.(driver.Valuer); again {
			return str(fmt.Sprint(inner))
		}
		return Coerce(inner, d)
	case fmt.Stringer:
		return str(x.String())
	}
	return str(fmt.Sprint(v))
}

func str(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }
