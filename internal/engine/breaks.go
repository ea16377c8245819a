package engine

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/recon/internal/ir"
)

// relativeDiffPlaces is the number of decimal places reported for the
// relative difference. Break classification never uses the rounded value.
const relativeDiffPlaces = 6

// Break is a matched pair whose quantities disagree beyond tolerance.
type Break struct {
	Key Key

	// Row holds the matched columns plus quantity_difference.
	Row ir.Row

	// Difference is quantity_left - quantity_right.
	Difference decimal.Decimal

	// RelativeDiff is |l - r| / r rounded for display; nil when ZeroBase.
	RelativeDiff *decimal.Decimal

	// ZeroBase is set when quantity_right is zero and quantity_left is not.
	ZeroBase bool
}

// IsBreak reports whether left and right disagree beyond tolerance.
//
// The relative difference is |l - r| / r with the signed r, compared
// exactly without dividing: |l - r| > tolerance * r for a positive r, and
// |l - r| < tolerance * r for a negative one. A relative difference exactly
// equal to the tolerance is not a break. With a non-negative tolerance a
// negative r therefore never breaks.
//
// When r is zero there is no relative measure: the pair is a break iff l is
// non-zero, and zeroBase reports that the edge case applied.
func IsBreak(left, right, tolerance decimal.Decimal) (isBreak, zeroBase bool) {
	if right.IsZero() {
		return !left.IsZero(), true
	}
	diff := left.Sub(right).Abs()
	bound := tolerance.Mul(right)
	if right.IsNegative() {
		return diff.LessThan(bound), false
	}
	return diff.GreaterThan(bound), false
}

// DetectBreaks classifies the matched rows. The result holds the breaks in
// join order plus one DIVISION_EDGE_CASE warning per zero-base pair (break
// or not).
//
// Rows must come from Match with status both; other rows are ignored.
func DetectBreaks(matched []MatchRow, tolerance decimal.Decimal) ([]Break, []Warning) {
	var (
		breaks   []Break
		warnings []Warning
	)
	for _, mr := range matched {
		if mr.Status != StatusBoth {
			continue
		}
		lv, rv := mr.Row.Get(ColQuantityLeft), mr.Row.Get(ColQuantityRight)
		l, _ := ir.AsDecimal(lv)
		r, _ := ir.AsDecimal(rv)

		isBreak, zeroBase := IsBreak(l, r, tolerance)
		if zeroBase {
			outcome := "not a break"
			if isBreak {
				outcome = "break"
			}
			warnings = append(warnings, Warning{
				Code:    WarnDivisionEdgeCase,
				Message: fmt.Sprintf("quantity_right is zero for %s; no relative difference, treated as %s", mr.Key, outcome),
				Key:     mr.Key.String(),
			})
		}
		if !isBreak {
			continue
		}

		diff := l.Sub(r)
		row := mr.Row.Clone()
		_, lInt := lv.(ir.Int)
		_, rInt := rv.(ir.Int)
		row[ColQuantityDifference] = numeric(diff, lInt && rInt)

		b := Break{Key: mr.Key, Row: row, Difference: diff, ZeroBase: zeroBase}
		if !zeroBase {
			rel := diff.Abs().DivRound(r, relativeDiffPlaces)
			b.RelativeDiff = &rel
		}
		breaks = append(breaks, b)
	}
	return breaks, warnings
}

// FilterBreaks keeps the breaks whose difference lies within rng, bounds
// included. The input slice is not modified.
func FilterBreaks(breaks []Break, rng Range) []Break {
	if rng.IsUnbounded() {
		return slices.Clone(breaks)
	}
	out := make([]Break, 0, len(breaks))
	for _, b := range breaks {
		if rng.Contains(b.Difference) {
			out = append(out, b)
		}
	}
	return out
}

// BreaksTable renders breaks as a table: the joined columns followed by
// quantity_difference.
func BreaksTable(joinedColumns []string, breaks []Break) *ir.Table {
	cols := append(slices.Clone(joinedColumns), ColQuantityDifference)
	out := ir.NewTable("breaks", cols...)
	for _, b := range breaks {
		out.Rows = append(out.Rows, b.Row.Clone())
	}
	return out
}
