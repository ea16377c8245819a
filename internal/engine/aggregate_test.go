package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recon/internal/ir"
	"github.com/roach88/recon/internal/testutil"
)

func TestAggregate_SumsPerKey(t *testing.T) {
	right := testutil.Trades("right",
		testutil.Trade("T1", 1, 95),
		testutil.Trade("T2", 1, 10),
		testutil.Trade("T1", 1, 6),
		testutil.Trade("T1", 2, 3),
	)

	agg, err := Aggregate(right)
	require.NoError(t, err)

	assert.Equal(t, []string{ColTradeID, ColVersion, ColQuantity}, agg.Columns)
	require.Len(t, agg.Rows, 3)

	// First-appearance order
	assert.Equal(t, testutil.Trade("T1", 1, 101), agg.Rows[0])
	assert.Equal(t, testutil.Trade("T2", 1, 10), agg.Rows[1])
	assert.Equal(t, testutil.Trade("T1", 2, 3), agg.Rows[2])
}

func TestAggregate_ExactDecimalSum(t *testing.T) {
	right := testutil.Trades("right",
		testutil.Trade("T1", 1, ir.MustDecimal("0.1")),
		testutil.Trade("T1", 1, ir.MustDecimal("0.2")),
		testutil.Trade("T1", 1, 1),
	)

	agg, err := Aggregate(right)
	require.NoError(t, err)

	q, ok := agg.Rows[0][ColQuantity].(ir.Decimal)
	require.True(t, ok, "mixed int/decimal sums stay decimal")
	assert.Equal(t, "1.3", q.String())
}

func TestAggregate_DropsExtraColumns(t *testing.T) {
	right := testutil.Trades("right",
		testutil.With(testutil.Trade("T1", 1, 5), "venue", "XNAS"),
	)

	agg, err := Aggregate(right)
	require.NoError(t, err)
	assert.NotContains(t, agg.Rows[0], "venue")
	assert.False(t, agg.HasColumn("venue"))
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	right := testutil.Trades("right",
		testutil.Trade("T1", 1, 1),
		testutil.Trade("T1", 1, 2),
	)
	before := right.Clone()

	_, err := Aggregate(right)
	require.NoError(t, err)
	assert.Equal(t, before, right)
}

func TestAggregate_KeyKindsAreDistinct(t *testing.T) {
	right := testutil.Trades("right",
		testutil.Trade(1, 1, 10),
		testutil.Trade("1", 1, 20),
	)

	agg, err := Aggregate(right)
	require.NoError(t, err)
	assert.Len(t, agg.Rows, 2, "Int(1) and String(\"1\") are different trade IDs")
}

func TestAggregate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		table  *ir.Table
		code   ErrorCode
		column string
	}{
		{
			name:   "missing quantity column",
			table:  ir.NewTable("right", ColTradeID, ColVersion),
			code:   ErrCodeSchema,
			column: ColQuantity,
		},
		{
			name:   "text quantity",
			table:  testutil.Trades("right", testutil.Trade("T1", 1, "12")),
			code:   ErrCodeTypeKind,
			column: ColQuantity,
		},
		{
			name:   "null quantity",
			table:  testutil.Trades("right", testutil.Trade("T1", 1, nil)),
			code:   ErrCodeTypeKind,
			column: ColQuantity,
		},
		{
			name:   "bool version",
			table:  testutil.Trades("right", testutil.Trade("T1", true, 1)),
			code:   ErrCodeTypeKind,
			column: ColVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate(tt.table)
			require.Error(t, err)

			var re *Error
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.code, re.Code)
			assert.Equal(t, tt.column, re.Column)
			assert.Equal(t, DatasetRight, re.Dataset)
		})
	}
}

func TestAggregate_NilTable(t *testing.T) {
	_, err := Aggregate(nil)
	assert.True(t, IsSchemaError(err))
}
