package testutil

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/recon/internal/ir"
)

// Value converts a Go literal into a cell value for table fixtures.
//
//	Value(7)        -> ir.Int(7)
//	Value("T1")     -> ir.String("T1")
//	Value(nil)      -> ir.Null{}
//	Value(ir.MustDecimal("1.5")) is passed through
//
// Floats are rejected with a panic: fixtures must spell decimals exactly.
func Value(x any) ir.Value {
	switch v := x.(type) {
	case nil:
		return ir.Null{}
	case ir.Value:
		return v
	case int:
		return ir.Int(v)
	case int64:
		return ir.Int(v)
	case string:
		return ir.String(v)
	case bool:
		return ir.Bool(v)
	case decimal.Decimal:
		return ir.NewDecimal(v)
	default:
		panic(fmt.Sprintf("testutil.Value: unsupported fixture type %T", x))
	}
}

// Trade builds a row with trade_id, version and quantity.
func Trade(id, version, quantity any) ir.Row {
	return ir.Row{
		"trade_id": Value(id),
		"version":  Value(version),
		"quantity": Value(quantity),
	}
}

// With returns a copy of row with an extra column set.
func With(row ir.Row, col string, x any) ir.Row {
	out := row.Clone()
	out[col] = Value(x)
	return out
}

// Trades builds a table with columns trade_id, version, quantity followed
// by any extra columns the rows carry, in sorted order.
func Trades(name string, rows ...ir.Row) *ir.Table {
	t := ir.NewTable(name, "trade_id", "version", "quantity")
	for _, r := range rows {
		t.Append(r)
	}
	return t
}
