package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recon/internal/ir"
	"github.com/roach88/recon/internal/queryir"
)

func TestLoadTable_TypeMapping(t *testing.T) {
	s := createTestStore(t)
	execAll(t, s,
		`CREATE TABLE positions (trade_id, version INTEGER, quantity, note TEXT, raw BLOB)`,
		`INSERT INTO positions VALUES ('A', 1, 100, 'x', x'6869')`,
		`INSERT INTO positions VALUES (7, 2, 10.5, NULL, NULL)`,
	)

	tbl, err := s.LoadTable(context.Background(), "left", queryir.All("positions"))
	require.NoError(t, err)

	assert.Equal(t, "left", tbl.Name)
	assert.Equal(t, []string{"trade_id", "version", "quantity", "note", "raw"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())

	first := tbl.Rows[0]
	assert.Equal(t, ir.String("A"), first["trade_id"])
	assert.Equal(t, ir.Int(1), first["version"])
	assert.Equal(t, ir.Int(100), first["quantity"])
	assert.Equal(t, ir.String("x"), first["note"])
	assert.Equal(t, ir.String("hi"), first["raw"])

	second := tbl.Rows[1]
	assert.Equal(t, ir.Int(7), second["trade_id"])
	assert.True(t, ir.Equal(ir.MustDecimal("10.5"), second["quantity"]), "REAL loads as exact decimal, got %#v", second["quantity"])
	assert.Equal(t, ir.Null{}, second["note"])
}

func TestLoadTable_RowidOrder(t *testing.T) {
	s := createTestStore(t)
	execAll(t, s,
		`CREATE TABLE positions (trade_id, version, quantity)`,
		`INSERT INTO positions VALUES ('C', 1, 1)`,
		`INSERT INTO positions VALUES ('A', 1, 2)`,
		`INSERT INTO positions VALUES ('B', 1, 3)`,
	)

	tbl, err := s.LoadTable(context.Background(), "left", queryir.All("positions"))
	require.NoError(t, err)

	var ids []ir.Value
	for _, r := range tbl.Rows {
		ids = append(ids, r["trade_id"])
	}
	assert.Equal(t, []ir.Value{ir.String("C"), ir.String("A"), ir.String("B")}, ids)
}

func TestLoadTable_ColumnsAndFilter(t *testing.T) {
	s := createTestStore(t)
	execAll(t, s,
		`CREATE TABLE fills (trade_id, version, quantity, book)`,
		`INSERT INTO fills VALUES ('A', 1, 60, 'EQ')`,
		`INSERT INTO fills VALUES ('A', 1, 40, 'FX')`,
		`INSERT INTO fills VALUES ('B', 2, 5, 'EQ')`,
	)

	sel := queryir.Select{
		From:    "fills",
		Columns: []string{"quantity", "trade_id", "version"},
	}.Where(queryir.Equals{Field: "book", Value: ir.String("EQ")})

	tbl, err := s.LoadTable(context.Background(), "right", sel)
	require.NoError(t, err)

	assert.Equal(t, []string{"quantity", "trade_id", "version"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, ir.Int(60), tbl.Rows[0]["quantity"])
	assert.Equal(t, ir.String("B"), tbl.Rows[1]["trade_id"])
	assert.NotContains(t, tbl.Rows[0], "book")
}

func TestLoadTable_EmptyKeepsColumns(t *testing.T) {
	s := createTestStore(t)
	execAll(t, s, `CREATE TABLE positions (trade_id, version, quantity)`)

	tbl, err := s.LoadTable(context.Background(), "left", queryir.All("positions"))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, []string{"trade_id", "version", "quantity"}, tbl.Columns)
}

func TestLoadTable_Errors(t *testing.T) {
	s := createTestStore(t)
	execAll(t, s, `CREATE TABLE positions (trade_id, version, quantity)`)
	ctx := context.Background()

	_, err := s.LoadTable(ctx, "left", queryir.All("missing"))
	assert.ErrorIs(t, err, ErrTableNotFound)

	_, err = s.LoadTable(ctx, "left", queryir.All("positions; DROP TABLE positions"))
	assert.ErrorContains(t, err, "not a plain identifier")

	_, err = s.LoadTable(ctx, "left", queryir.Select{From: "positions", Columns: []string{"nope"}})
	assert.Error(t, err)
}

func TestLoadTable_Cancelled(t *testing.T) {
	s := createTestStore(t)
	execAll(t, s, `CREATE TABLE positions (trade_id, version, quantity)`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.LoadTable(ctx, "left", queryir.All("positions"))
	assert.Error(t, err)
}

func TestTables(t *testing.T) {
	s := createTestStore(t)
	execAll(t, s,
		`CREATE TABLE right_fills (a)`,
		`CREATE TABLE left_positions (a)`,
	)

	names, err := s.Tables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"left_positions", "right_fills"}, names, "sorted by name")
}

func TestColumns(t *testing.T) {
	s := createTestStore(t)
	execAll(t, s, `CREATE TABLE positions (trade_id, version, quantity)`)

	cols, err := s.Columns(context.Background(), "positions")
	require.NoError(t, err)
	assert.Equal(t, []string{"trade_id", "version", "quantity"}, cols)
}
