package engine

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/recon/internal/ir"
)

// Aggregate collapses the right dataset to one row per (trade_id, version),
// summing quantity exactly. Columns other than the key and quantity are
// dropped.
//
// Output rows appear in first-appearance order of their key. The quantity
// stays an Int when every contribution was an Int and the sum fits in
// int64; otherwise it is a Decimal.
//
// The input table is never modified.
func Aggregate(right *ir.Table) (*ir.Table, error) {
	if err := checkSchema(DatasetRight, right, false); err != nil {
		return nil, err
	}

	type group struct {
		key    Key
		sum    decimal.Decimal
		allInt bool
	}

	groups := make(map[string]*group, len(right.Rows))
	order := make([]*group, 0, len(right.Rows))

	for i, row := range right.Rows {
		key, err := keyOf(DatasetRight, i, row)
		if err != nil {
			return nil, err
		}
		q, err := quantityOf(DatasetRight, ColQuantity, i, row)
		if err != nil {
			return nil, err
		}
		d, _ := ir.AsDecimal(q)
		_, isInt := q.(ir.Int)

		g, ok := groups[key.ID()]
		if !ok {
			g = &group{key: key, sum: decimal.Zero, allInt: true}
			groups[key.ID()] = g
			order = append(order, g)
		}
		g.sum = g.sum.Add(d)
		g.allInt = g.allInt && isInt
	}

	out := ir.NewTable(right.Name, ColTradeID, ColVersion, ColQuantity)
	out.Rows = make([]ir.Row, 0, len(order))
	for _, g := range order {
		out.Rows = append(out.Rows, ir.Row{
			ColTradeID:  g.key.TradeID,
			ColVersion:  g.key.Version,
			ColQuantity: numeric(g.sum, g.allInt),
		})
	}
	return out, nil
}

// numeric returns d as an Int when asInt and it fits, else as a Decimal.
func numeric(d decimal.Decimal, asInt bool) ir.Value {
	if asInt {
		return ir.FromDecimal(d)
	}
	return ir.NewDecimal(d)
}
