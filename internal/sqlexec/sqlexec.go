// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sqlexec runs query text against the local database on behalf of the
// responder. Two engines are supported: PostgreSQL through a pgx pool and SQLite
// through database/sql. Every cell comes back as a nullable string, since the
// wire format carries no column types.
package sqlexec

import (
	"context"
	"database/sql"
	"fmt"

	"remotesql/cli/internal/dsn"
	rqerrors "remotesql/cli/internal/errors"

	"github.com/jackc/pgx/v5/pgxpool"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// Database executes query text with positional string arguments.
type Database interface {
	// Query runs text with args bound positionally. A null arg binds SQL NULL.
	Query(ctx context.Context, text string, args []sql.NullString) (Rows, error)
	Ping(ctx context.Context) error
	Close() error
}

// Rows is a live cursor. It must be closed after use.
type Rows interface {
	Columns() []string
	Next() bool
	// Values returns the current row, coerced to strings.
	Values() ([]sql.NullString, error)
	Err() error
	Close()
}

// Open connects to the database named by rawDSN and pings it.
// Failures are reported with the SetupFailed kind.
func Open(ctx context.Context, rawDSN string) (Database, error) {
	resolver, err := dsn.ResolverFor(rawDSN)
	if err != nil {
		return nil, rqerrors.Wrap(rqerrors.SetupFailed, "invalid DSN", err)
	}
	info, err := resolver.Parse(rawDSN)
	if err != nil {
		return nil, rqerrors.Wrap(rqerrors.SetupFailed, "invalid DSN", err)
	}
	normalized, err := resolver.Normalize(info)
	if err != nil {
		return nil, rqerrors.Wrap(rqerrors.SetupFailed, "invalid DSN", err)
	}

	var db Database
	switch info.Type {
	case dsn.DBTypePostgreSQL:
		pool, err := pgxpool.New(ctx, normalized)
		if err != nil {
			return nil, rqerrors.Wrap(rqerrors.SetupFailed, "create postgres pool", err)
		}
		db = NewPgx(pool)
	case dsn.DBTypeSQLite:
		sqlDB, err := OpenSQLite(normalized)
		if err != nil {
			return nil, rqerrors.Wrap(rqerrors.SetupFailed, "open sqlite", err)
		}
		db = sqlDB
	default:
		return nil, rqerrors.New(rqerrors.SetupFailed, fmt.Sprintf("unsupported database type %q", info.Type))
	}

	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, rqerrors.Wrap(rqerrors.SetupFailed, "connect to "+info.Location(), err)
	}
	return db, nil
}

func bindArgs(args []sql.NullString) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if a.Valid {
			out[i] = a.String
		}
	}
	return out
}
