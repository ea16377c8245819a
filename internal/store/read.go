package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/recon/internal/ir"
	"github.com/roach88/recon/internal/queryir"
	"github.com/roach88/recon/internal/querysql"
)

// ErrTableNotFound is returned when a selection names a missing table.
var ErrTableNotFound = errors.New("table not found")

// LoadTable runs sel and materializes the result as an ir.Table named name.
//
// Columns keep their selection order (storage order for SELECT *); rows
// keep rowid order. A table with no matching rows loads as an empty table
// that still carries its columns, so schema checks downstream still apply.
func (s *Store) LoadTable(ctx context.Context, name string, sel queryir.Select) (*ir.Table, error) {
	if _, err := s.Columns(ctx, sel.From); err != nil {
		return nil, err
	}

	query, params, err := querysql.NewSQLCompiler().Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", sel.From, err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", sel.From, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("load %s: columns: %w", sel.From, err)
	}

	table := ir.NewTable(name, cols...)
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("load %s: scan row %d: %w", sel.From, len(table.Rows), err)
		}
		row := make(ir.Row, len(cols))
		for i, col := range cols {
			v, err := scanValue(raw[i])
			if err != nil {
				return nil, fmt.Errorf("load %s: row %d, column %s: %w", sel.From, len(table.Rows), col, err)
			}
			row[col] = v
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load %s: iterate rows: %w", sel.From, err)
	}

	return table, nil
}

// Columns returns the declared columns of table in declaration order.
// Returns ErrTableNotFound (wrapped) if the table does not exist.
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	query, err := querysql.ColumnsQuery(table)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("columns of %s: %w", table, err)
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, table)
	}
	return cols, nil
}

// Tables lists the dataset tables in the database, sorted by name.
// SQLite internals are excluded.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// scanValue maps a driver value to a cell value by its storage class.
func scanValue(v any) (ir.Value, error) {
	switch val := v.(type) {
	case nil:
		return ir.Null{}, nil
	case int64:
		return ir.Int(val), nil
	case float64:
		return ir.FromFloat(val)
	case string:
		return ir.String(val), nil
	case []byte:
		return ir.String(string(val)), nil
	case bool:
		return ir.Bool(val), nil
	case time.Time:
		// go-sqlite3 parses DATE/DATETIME/TIMESTAMP columns.
		return ir.String(val.UTC().Format(time.RFC3339Nano)), nil
	default:
		return nil, fmt.Errorf("unsupported storage value %T", v)
	}
}
