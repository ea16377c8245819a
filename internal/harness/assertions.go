package harness

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/recon/internal/engine"
	"github.com/roach88/recon/internal/ir"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Field    string // expect field, e.g. "breaks"
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Field, e.Expected, e.Actual)
}

// checkExpect evaluates every set expectation and returns one message per
// failure. A run error short-circuits the report checks.
func checkExpect(report *engine.Result, runErr error, exp Expect) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if exp.Error != "" {
		if runErr == nil {
			add(&AssertionError{Field: "error", Expected: exp.Error, Actual: "success"})
			return errs
		}
		if got := engine.ErrorCodeOf(runErr); string(got) != exp.Error {
			add(&AssertionError{Field: "error", Expected: exp.Error, Actual: runErr.Error()})
		}
		return errs
	}
	if runErr != nil {
		add(&AssertionError{Field: "error", Expected: "success", Actual: runErr.Error()})
		return errs
	}

	if exp.Counts != nil {
		add(assertCount("counts.left_only", exp.Counts.LeftOnly, report.Stats.LeftOnly))
		add(assertCount("counts.right_only", exp.Counts.RightOnly, report.Stats.RightOnly))
		add(assertCount("counts.matched", exp.Counts.Matched, report.Stats.Matched))
		add(assertCount("counts.breaks", exp.Counts.Breaks, report.Breaks.Len()))
	}
	if exp.LeftOnly != nil {
		add(assertRows("left_only", exp.LeftOnly, report.LeftOnly))
	}
	if exp.RightOnly != nil {
		add(assertRows("right_only", exp.RightOnly, report.RightOnly))
	}
	if exp.Breaks != nil {
		add(assertRows("breaks", exp.Breaks, report.Breaks))
	}
	if exp.Summary != nil {
		add(assertSummary(exp.Summary, report.Summary))
	}
	if exp.Warnings != nil {
		add(assertWarnings(exp.Warnings, report.Warnings))
	}
	return errs
}

func assertCount(field string, want *int, got int) error {
	if want == nil || *want == got {
		return nil
	}
	return &AssertionError{Field: field, Expected: fmt.Sprint(*want), Actual: fmt.Sprint(got)}
}

// assertRows matches expected rows to actual rows one-to-one, ignoring
// order. Each expected row constrains only the columns it lists.
func assertRows(field string, want []ir.Row, got *ir.Table) error {
	if len(want) != got.Len() {
		return &AssertionError{
			Field:    field,
			Expected: fmt.Sprintf("%d rows", len(want)),
			Actual:   fmt.Sprintf("%d rows %s", got.Len(), formatRows(got.Rows)),
		}
	}

	used := make([]bool, got.Len())
	for i, w := range want {
		found := false
		for j, g := range got.Rows {
			if !used[j] && rowMatches(g, w) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Field:    fmt.Sprintf("%s[%d]", field, i),
				Expected: "a row matching " + formatRow(w),
				Actual:   formatRows(got.Rows),
			}
		}
	}
	return nil
}

// rowMatches reports whether every column of want has an equal cell in got.
// Numbers compare by value, so an expected 100 matches a decimal 100.0.
func rowMatches(got, want ir.Row) bool {
	for col, wv := range want {
		gv, ok := got[col]
		if !ok {
			if _, isNull := wv.(ir.Null); isNull {
				continue
			}
			return false
		}
		if !cellEqual(gv, wv) {
			return false
		}
	}
	return true
}

func cellEqual(a, b ir.Value) bool {
	ad, aNum := ir.AsDecimal(a)
	bd, bNum := ir.AsDecimal(b)
	if aNum && bNum {
		return ad.Equal(bd)
	}
	return ir.Equal(a, b)
}

func assertSummary(want map[string]int, got engine.BucketSummary) error {
	var diffs []string
	for _, label := range engine.BucketLabels {
		if w, g := want[label], got.Get(label); w != g {
			diffs = append(diffs, fmt.Sprintf("%q: want %d, got %d", label, w, g))
		}
	}
	if len(diffs) == 0 {
		return nil
	}
	return &AssertionError{
		Field:    "summary",
		Expected: formatSummary(want),
		Actual:   strings.Join(diffs, "; "),
	}
}

func assertWarnings(want []string, got []engine.Warning) error {
	gotCodes := make([]string, len(got))
	for i, w := range got {
		gotCodes[i] = string(w.Code)
	}
	w := slices.Sorted(slices.Values(want))
	g := slices.Sorted(slices.Values(gotCodes))
	if slices.Equal(w, g) {
		return nil
	}
	return &AssertionError{
		Field:    "warnings",
		Expected: fmt.Sprintf("%v", w),
		Actual:   fmt.Sprintf("%v", g),
	}
}

func formatRow(r ir.Row) string {
	data, err := ir.MarshalCanonical(r)
	if err != nil {
		return fmt.Sprintf("%v", map[string]ir.Value(r))
	}
	return string(data)
}

func formatRows(rows []ir.Row) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = formatRow(r)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatSummary(m map[string]int) string {
	keys := slices.Sorted(maps.Keys(m))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%q: %d", k, m[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
