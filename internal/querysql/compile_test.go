package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recon/internal/ir"
	"github.com/roach88/recon/internal/queryir"
)

func TestCompile_AllColumns(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.All("positions"))
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "positions" ORDER BY rowid ASC`, sql)
	assert.Empty(t, params)
}

func TestCompile_ColumnsKeepOrder(t *testing.T) {
	q := queryir.Select{
		From:    "positions",
		Columns: []string{"version", "trade_id", "quantity"},
	}
	sql, _, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "version", "trade_id", "quantity" FROM "positions" ORDER BY rowid ASC`, sql)
}

func TestCompile_FilterIsParameterized(t *testing.T) {
	q := queryir.All("positions").
		Where(queryir.Equals{Field: "book", Value: ir.String("EQ'; DROP TABLE positions; --")}).
		Where(&queryir.Equals{Field: "version", Value: ir.Int(2)})

	sql, params, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "positions" WHERE "book" = ? AND "version" = ? ORDER BY rowid ASC`, sql)
	assert.NotContains(t, sql, "DROP")
	assert.Equal(t, []any{"EQ'; DROP TABLE positions; --", int64(2)}, params)
}

func TestCompile_ParamKinds(t *testing.T) {
	q := queryir.All("t").
		Where(queryir.Equals{Field: "price", Value: ir.MustDecimal("10.50")}).
		Where(queryir.Equals{Field: "live", Value: ir.Bool(true)})

	_, params, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.Equal(t, []any{"10.5", true}, params)
}

func TestCompile_NestedAnd(t *testing.T) {
	q := queryir.All("t").Where(queryir.And{Predicates: []queryir.Predicate{
		queryir.Equals{Field: "a", Value: ir.Int(1)},
		queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "b", Value: ir.Int(2)},
			queryir.Equals{Field: "c", Value: ir.Int(3)},
		}},
	}})

	sql, params, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, `WHERE "a" = ? AND ("b" = ? AND "c" = ?)`)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, params)
}

func TestCompile_EmptyAnd(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.All("t").Where(queryir.And{}))
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE 1 = 1")
	assert.Empty(t, params)
}

func TestCompile_OrderKey(t *testing.T) {
	c := &SQLCompiler{OrderKey: "seq"}
	sql, _, err := c.Compile(queryir.All("t"))
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY seq ASC")

	sql, _, err = (&SQLCompiler{}).Compile(queryir.All("t"))
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY rowid ASC", "zero value orders by rowid")

	_, _, err = (&SQLCompiler{OrderKey: "seq DESC"}).Compile(queryir.All("t"))
	assert.ErrorContains(t, err, "order key")
}

func TestCompile_RejectsInvalidSelect(t *testing.T) {
	tests := []struct {
		name string
		q    queryir.Select
	}{
		{"bad table", queryir.All("positions; DROP TABLE x")},
		{"bad column", queryir.Select{From: "t", Columns: []string{`a"b`}}},
		{"null filter", queryir.All("t").Where(queryir.Equals{Field: "a", Value: ir.Null{}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := NewSQLCompiler().Compile(tt.q)
			assert.Error(t, err)
			assert.Empty(t, sql)
			assert.Nil(t, params)
		})
	}
}

func TestColumnsQuery(t *testing.T) {
	sql, err := ColumnsQuery("positions")
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM pragma_table_info('positions') ORDER BY cid ASC", sql)

	_, err = ColumnsQuery("x') UNION SELECT 1 --")
	assert.Error(t, err)
}
