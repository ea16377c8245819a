package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/recon/internal/ir"
)

// MatchStatus tags a joined row with the side(s) its key was found on.
type MatchStatus string

const (
	StatusLeftOnly  MatchStatus = "left_only"
	StatusRightOnly MatchStatus = "right_only"
	StatusBoth      MatchStatus = "both"
)

// MatchRow is one row of the outer join.
//
// Row holds the joined columns: the left columns with quantity renamed to
// quantity_left, plus quantity_right. Columns absent for the row's status
// are absent from Row (never Null placeholders).
type MatchRow struct {
	Key     Key
	Status  MatchStatus
	Row     ir.Row
	LeftRow int // index in the left input, -1 for right_only
}

// MatchSet is the result of Match.
//
// INVARIANTS:
//   - Every left row (after the duplicate policy) appears exactly once
//   - Every aggregated right row appears exactly once: in a both row, or as right_only
//   - Rows are left input order, followed by right_only rows in aggregated order
type MatchSet struct {
	// Columns is the joined column order.
	Columns []string

	// LeftColumns is the left-only output column order.
	LeftColumns []string

	Rows     []MatchRow
	Warnings []Warning

	// LeftRows is the number of left rows that took part in the join.
	LeftRows int
}

// Match performs a full outer hash join of left against the aggregated
// right dataset on (trade_id, version).
//
// The right side must already be unique per key (see Aggregate); a repeated
// right key is reported as a duplicate-key error. Repeated left keys are
// handled by policy; see DuplicatePolicy.
func Match(left, aggregated *ir.Table, policy DuplicatePolicy) (*MatchSet, error) {
	if err := checkSchema(DatasetLeft, left, true); err != nil {
		return nil, err
	}
	if err := checkSchema(DatasetRight, aggregated, false); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = DuplicateWarn
	}
	if _, err := ParseDuplicatePolicy(string(policy)); err != nil {
		return nil, err
	}

	// Index the right side. Keys and quantities are validated here so a
	// caller passing a hand-built table gets the same errors as Aggregate.
	rightIdx := make(map[string]int, len(aggregated.Rows))
	for i, row := range aggregated.Rows {
		key, err := keyOf(DatasetRight, i, row)
		if err != nil {
			return nil, err
		}
		if _, err := quantityOf(DatasetRight, ColQuantity, i, row); err != nil {
			return nil, err
		}
		if first, dup := rightIdx[key.ID()]; dup {
			e := NewDuplicateKeyError(DatasetRight, key, first, i)
			e.Message = fmt.Sprintf("key %s appears more than once; aggregate the right side before matching", key)
			return nil, e
		}
		rightIdx[key.ID()] = i
	}

	joined := joinedColumns(left.Columns)
	set := &MatchSet{
		Columns:     joined,
		LeftColumns: slices.DeleteFunc(slices.Clone(joined), func(c string) bool { return c == ColQuantityRight }),
		Rows:        make([]MatchRow, 0, len(left.Rows)+len(aggregated.Rows)),
	}

	firstSeen := make(map[string]int, len(left.Rows))
	warned := make(map[string]bool)
	matchedRight := make([]bool, len(aggregated.Rows))

	for i, row := range left.Rows {
		key, err := keyOf(DatasetLeft, i, row)
		if err != nil {
			return nil, err
		}
		q, err := quantityOf(DatasetLeft, ColQuantity, i, row)
		if err != nil {
			return nil, err
		}

		if first, dup := firstSeen[key.ID()]; dup {
			switch policy {
			case DuplicateReject:
				return nil, NewDuplicateKeyError(DatasetLeft, key, first, i)
			case DuplicateFirst:
				if !warned[key.ID()] {
					warned[key.ID()] = true
					set.Warnings = append(set.Warnings, Warning{
						Code:    WarnDuplicateKey,
						Message: fmt.Sprintf("left key %s repeats; keeping row %d only", key, first),
						Key:     key.String(),
					})
				}
				continue
			default:
				if !warned[key.ID()] {
					warned[key.ID()] = true
					set.Warnings = append(set.Warnings, Warning{
						Code:    WarnDuplicateKey,
						Message: fmt.Sprintf("left key %s repeats; each occurrence is matched separately", key),
						Key:     key.String(),
					})
				}
			}
		} else {
			firstSeen[key.ID()] = i
		}

		out := make(ir.Row, len(row)+1)
		for col, v := range row {
			if col == ColQuantity {
				continue
			}
			out[col] = v
		}
		out[ColQuantityLeft] = q

		mr := MatchRow{Key: key, Status: StatusLeftOnly, Row: out, LeftRow: i}
		if j, ok := rightIdx[key.ID()]; ok {
			out[ColQuantityRight] = aggregated.Rows[j].Get(ColQuantity)
			mr.Status = StatusBoth
			matchedRight[j] = true
		}
		set.Rows = append(set.Rows, mr)
		set.LeftRows++
	}

	for j, row := range aggregated.Rows {
		if matchedRight[j] {
			continue
		}
		key, _ := keyOf(DatasetRight, j, row)
		set.Rows = append(set.Rows, MatchRow{
			Key:    key,
			Status: StatusRightOnly,
			Row: ir.Row{
				ColTradeID:       key.TradeID,
				ColVersion:       key.Version,
				ColQuantityRight: row.Get(ColQuantity),
			},
			LeftRow: -1,
		})
	}

	return set, nil
}

// joinedColumns replaces quantity with quantity_left in place and appends
// quantity_right, matching the suffixing of a two-sided merge.
func joinedColumns(left []string) []string {
	out := make([]string, 0, len(left)+1)
	for _, c := range left {
		if c == ColQuantity {
			out = append(out, ColQuantityLeft)
			continue
		}
		out = append(out, c)
	}
	return append(out, ColQuantityRight)
}

// Count returns the number of rows with the given status.
func (m *MatchSet) Count(status MatchStatus) int {
	n := 0
	for _, r := range m.Rows {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Matched returns the rows found on both sides, in join order.
func (m *MatchSet) Matched() []MatchRow {
	out := make([]MatchRow, 0, len(m.Rows))
	for _, r := range m.Rows {
		if r.Status == StatusBoth {
			out = append(out, r)
		}
	}
	return out
}

// LeftOnly returns the rows found only on the left: the left columns with
// quantity reported as quantity_left.
func (m *MatchSet) LeftOnly() *ir.Table {
	out := ir.NewTable(string(StatusLeftOnly), m.LeftColumns...)
	for _, r := range m.Rows {
		if r.Status == StatusLeftOnly {
			out.Rows = append(out.Rows, r.Row.Clone())
		}
	}
	return out
}

// RightOnly returns the rows found only on the right: the key and quantity_right.
func (m *MatchSet) RightOnly() *ir.Table {
	out := ir.NewTable(string(StatusRightOnly), ColTradeID, ColVersion, ColQuantityRight)
	for _, r := range m.Rows {
		if r.Status == StatusRightOnly {
			out.Rows = append(out.Rows, r.Row.Clone())
		}
	}
	return out
}
