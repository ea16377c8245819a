package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recon/internal/ir"
	"github.com/roach88/recon/internal/queryir"
	"github.com/roach88/recon/internal/testutil"
)

func TestSaveTable_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	src := testutil.Trades("positions",
		testutil.With(testutil.Trade("A", 1, 100), "book", "EQ"),
		testutil.Trade(7, 2, ir.MustDecimal("10.25")),
		testutil.Trade("C", 1, nil),
	)
	require.NoError(t, s.SaveTable(ctx, src))

	got, err := s.LoadTable(ctx, "positions", queryir.All("positions"))
	require.NoError(t, err)

	assert.Equal(t, src.Columns, got.Columns)
	require.Equal(t, src.Len(), got.Len())
	for i := range src.Rows {
		for _, col := range src.Columns {
			assert.True(t, ir.Equal(src.Rows[i].Get(col), got.Rows[i].Get(col)),
				"row %d column %s: want %#v, got %#v", i, col, src.Rows[i].Get(col), got.Rows[i].Get(col))
		}
	}
}

func TestSaveTable_Errors(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTable(ctx, testutil.Trades("positions")))
	assert.Error(t, s.SaveTable(ctx, testutil.Trades("positions")), "table already exists")

	assert.ErrorContains(t, s.SaveTable(ctx, testutil.Trades("bad name")), "not a plain identifier")
	assert.ErrorContains(t, s.SaveTable(ctx, ir.NewTable("empty")), "no columns")
	assert.ErrorContains(t, s.SaveTable(ctx, ir.NewTable("t", "qty; --")), "not a plain identifier")
}

func TestSaveTable_RollsBackOnFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	bad := ir.NewTable("positions", "trade_id")
	bad.Rows = append(bad.Rows, ir.Row{"trade_id": ir.String("A")}, ir.Row{"trade_id": unsupported{}})
	assert.Error(t, s.SaveTable(ctx, bad))

	names, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Empty(t, names, "failed save must not leave a partial table")
}

// unsupported is a Value implementation the store cannot persist.
type unsupported struct{ ir.Null }
