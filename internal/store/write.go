package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/recon/internal/ir"
	"github.com/roach88/recon/internal/queryir"
)

// SaveTable creates a table named t.Name holding t's rows in order.
// The table must not already exist.
//
// Columns are declared without a type so every value keeps its storage
// class. Decimals are stored as REAL, which is exact for the
// shortest-representation values LoadTable produces but not in general;
// Bools are stored as INTEGER 0/1 and load back as ints.
func (s *Store) SaveTable(ctx context.Context, t *ir.Table) error {
	if s.readOnly {
		return fmt.Errorf("save table %s: store is read-only", t.Name)
	}
	if !queryir.IsIdentifier(t.Name) {
		return fmt.Errorf("save table: name %q is not a plain identifier", t.Name)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("save table %s: no columns", t.Name)
	}
	quoted := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		if !queryir.IsIdentifier(col) {
			return fmt.Errorf("save table %s: column %q is not a plain identifier", t.Name, col)
		}
		quoted[i] = `"` + col + `"`
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save table %s: %w", t.Name, err)
	}
	defer tx.Rollback()

	create := fmt.Sprintf(`CREATE TABLE "%s" (%s)`, t.Name, strings.Join(quoted, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("save table %s: %w", t.Name, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
	insert := fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s)`, t.Name, strings.Join(quoted, ", "), placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("save table %s: %w", t.Name, err)
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns))
	for i, row := range t.Rows {
		for j, col := range t.Columns {
			arg, err := storageValue(row.Get(col))
			if err != nil {
				return fmt.Errorf("save table %s: row %d, column %s: %w", t.Name, i, col, err)
			}
			args[j] = arg
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("save table %s: row %d: %w", t.Name, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save table %s: commit: %w", t.Name, err)
	}
	return nil
}

func storageValue(v ir.Value) (any, error) {
	switch val := v.(type) {
	case nil, ir.Null:
		return nil, nil
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case ir.Bool:
		return bool(val), nil
	case ir.Decimal:
		return val.InexactFloat64(), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
