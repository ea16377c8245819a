package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/recon/internal/engine"
	"github.com/roach88/recon/internal/ir"
)

// Snapshot renders a report as canonical JSON for golden comparison.
//
// Run ID and digest are left out: the run ID is fixed by the harness, and
// the digest is covered by the rows it summarizes.
func Snapshot(name string, report *engine.Result) ([]byte, error) {
	summary := make([]any, len(report.Summary))
	for i, c := range report.Summary {
		summary[i] = map[string]any{"label": c.Label, "count": c.Count}
	}

	warnings := make([]any, len(report.Warnings))
	for i, w := range report.Warnings {
		warnings[i] = map[string]any{"code": string(w.Code), "key": w.Key}
	}

	trace := make([]any, len(report.Trace))
	for i, ev := range report.Trace {
		trace[i] = map[string]any{
			"seq":      ev.Seq,
			"stage":    ev.Stage,
			"rows_in":  ev.RowsIn,
			"rows_out": ev.RowsOut,
		}
	}

	s := report.Stats
	return ir.MarshalCanonical(map[string]any{
		"name":       name,
		"left_only":  report.LeftOnly,
		"right_only": report.RightOnly,
		"breaks":     report.Breaks,
		"summary":    summary,
		"warnings":   warnings,
		"trace":      trace,
		"stats": map[string]any{
			"left_records":       s.LeftRecords,
			"right_records":      s.RightRecords,
			"aggregated_records": s.AggregatedRecords,
			"joined_left":        s.JoinedLeft,
			"left_only":          s.LeftOnly,
			"right_only":         s.RightOnly,
			"matched":            s.Matched,
			"breaks":             s.Breaks,
			"filtered_breaks":    s.FilteredBreaks,
			"zero_base":          s.ZeroBase,
		},
	})
}

// RunWithGolden executes a case and compares its report against a golden
// file at testdata/golden/{case.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the case result so callers can also check expectations.
func RunWithGolden(t *testing.T, c *Case) (*Result, error) {
	t.Helper()

	result, err := Run(c)
	if err != nil {
		return nil, err
	}
	if result.Report == nil {
		return result, result.RunErr
	}
	if err := AssertGolden(t, c.Name, result.Report); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing report against a golden file without
// re-running the case.
func AssertGolden(t *testing.T, name string, report *engine.Result) error {
	t.Helper()

	data, err := Snapshot(name, report)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
