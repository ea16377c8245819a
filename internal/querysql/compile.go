package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/recon/internal/ir"
	"github.com/roach88/recon/internal/queryir"
)

// SQLCompiler compiles a queryir.Select to parameterized SQL for SQLite.
//
// CRITICAL: every query ends in ORDER BY so rows come back in a stable
// order; the left dataset's row order is part of the report.
// CRITICAL: values are always parameterized, never interpolated.
type SQLCompiler struct {
	// OrderKey is the column (or pseudo-column) rows are ordered by.
	// Defaults to SQLite's rowid, i.e. insertion order for ordinary tables.
	OrderKey string
}

// NewSQLCompiler creates a compiler ordering by rowid.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{OrderKey: "rowid"}
}

// Compile converts a Select to parameterized SQL.
// Returns (sql, params, error). The Select is validated first; names that
// fail queryir.Validate never reach the SQL text.
func (c *SQLCompiler) Compile(q queryir.Select) (string, []any, error) {
	if err := queryir.Validate(q).Err(); err != nil {
		return "", nil, err
	}
	orderKey := c.OrderKey
	if orderKey == "" {
		orderKey = "rowid"
	}
	if !queryir.IsIdentifier(orderKey) {
		return "", nil, fmt.Errorf("order key %q is not a plain identifier", orderKey)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(compileColumns(q.Columns))
	sb.WriteString(" FROM ")
	sb.WriteString(quoteIdent(q.From))

	var params []any
	if q.Filter != nil {
		where, whereParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
		params = whereParams
	}

	// rowid is left unquoted: quoted, SQLite would look for a real column.
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderKey)
	sb.WriteString(" ASC")

	return sb.String(), params, nil
}

// ColumnsQuery returns SQL listing the columns of a table via
// PRAGMA table_info, in declaration order.
func ColumnsQuery(table string) (string, error) {
	if !queryir.IsIdentifier(table) {
		return "", fmt.Errorf("table name %q is not a plain identifier", table)
	}
	return fmt.Sprintf("SELECT name FROM pragma_table_info('%s') ORDER BY cid ASC", table), nil
}

// compileColumns renders the select list. Order is preserved: it becomes
// the column order of the loaded table.
func compileColumns(cols []string) string {
	if len(cols) == 0 {
		return "*"
	}
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = quoteIdent(col)
	}
	return strings.Join(parts, ", ")
}

// compilePredicate compiles a predicate to a WHERE fragment.
// CRITICAL: values NEVER interpolated - always ? placeholders.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	param, err := valueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %s: %w", eq.Field, err)
	}
	return quoteIdent(eq.Field) + " = ?", []any{param}, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // vacuous truth
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, ps, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		switch pred.(type) {
		case queryir.And, *queryir.And:
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// quoteIdent double-quotes a validated identifier so reserved words
// ("order", "group") work as column names.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

// valueToParam converts an ir.Value to a driver parameter.
// Decimals are passed as their exact text; SQLite applies the column's
// numeric affinity before comparing.
func valueToParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case ir.Bool:
		return bool(val), nil
	case ir.Decimal:
		return val.String(), nil
	case ir.Null, nil:
		return nil, fmt.Errorf("NULL cannot be used as an equality parameter")
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
