// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxDatabase executes queries over a PostgreSQL connection pool.
type PgxDatabase struct {
	// Pool is the PostgreSQL connection pool
	Pool *pgxpool.Pool
}

// NewPgx wraps an existing pgx pool.
func NewPgx(pool *pgxpool.Pool) *PgxDatabase {
	return &PgxDatabase{Pool: pool}
}

// Query runs text on a pooled connection. The connection returns to the pool
// when the rows are closed.
func (d *PgxDatabase) Query(ctx context.Context, text string, args []sql.NullString) (Rows, error) {
	rows, err := d.Pool.Query(ctx, text, bindArgs(args)...)
	if err != nil {
		return nil, err
	}
	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}
	return &pgxRows{rows: rows, cols: cols}, nil
}

func (d *PgxDatabase) Ping(ctx context.Context) error { return d.Pool.Ping(ctx) }

func (d *PgxDatabase) Close() error {
	d.Pool.Close()
	return nil
}

type pgxRows struct {
	rows pgx.Rows
	cols []string
}

func (r *pgxRows) Columns() []string { return r.cols }
func (r *pgxRows) Next() bool        { return r.rows.Next() }
func (r *pgxRows) Err() error        { return r.rows.Err() }
func (r *pgxRows) Close()            { r.rows.Close() }

func (r *pgxRows) Values() ([]sql.NullString, error) {
	vals, err := r.rows.Values()
	if err != nil {
		return nil, err
	}
	out := make([]sql.NullString, len(vals))
	for i, v := range vals {
		out[i] = Coerce(v, DialectPostgres)
	}
	return out, nil
}
