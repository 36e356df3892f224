// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"database/sql"
)

// SQLDatabase executes queries through database/sql.
type SQLDatabase struct {
	DB      *sql.DB
	dialect Dialect
}

// NewSQL wraps db. Cells are coerced using the SQLite rules.
func NewSQL(db *sql.DB) *SQLDatabase {
	return &SQLDatabase{DB: db, dialect: DialectSQLite}
}

// OpenSQLite opens a SQLite database with the modernc driver. A single
// connection is kept so :memory: databases are shared by every query.
func OpenSQLite(path string) (*SQLDatabase, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return NewSQL(db), nil
}

func (d *SQLDatabase) Query(ctx context.Context, text string, args []sql.NullString) (Rows, error) {
	rows, err := d.DB.QueryContext(ctx, text, bindArgs(args)...)
	if err != nil {
		return nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return &sqlRows{rows: rows, cols: cols, dialect: d.dialect}, nil
}

func (d *SQLDatabase) Ping(ctx context.Context) error { return d.DB.PingContext(ctx) }
func (d *SQLDatabase) Close() error                   { return d.DB.Close() }

// Exec runs a statement that returns no rows, e.g. schema setup.
func (d *SQLDatabase) Exec(ctx context.Context, text string, args ...any) error {
	_, err := d.DB.ExecContext(ctx, text, args...)
	return err
}

type sqlRows struct {
	rows    *sql.Rows
	cols    []string
	dialect Dialect
}

func (r *sqlRows) Columns() []string { return r.cols }
func (r *sqlRows) Next() bool        { return r.rows.Next() }
func (r *sqlRows) Err() error        { return r.rows.Err() }
func (r *sqlRows) Close()            { _ = r.rows.Close() }

func (r *sqlRows) Values() ([]sql.NullString, error) {
	raw := make([]any, len(r.cols))
	ptrs := make([]any, len(r.cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	out := make([]sql.NullString, len(raw))
	for i, v := range raw {
		out[i] = Coerce(v, r.dialect)
	}
	return out, nil
}
