package engine

import (
	"bytes"
	"slices"

	"github.com/roach88/recon/internal/ir"
)

// Stage names recorded in the run trace.
const (
	StageAggregate = "aggregate"
	StageMatch     = "match"
	StageDetect    = "detect"
	StageFilter    = "filter"
	StageBucketize = "bucketize"
)

// StageEvent records one completed pipeline stage.
type StageEvent struct {
	Seq     int64  `json:"seq"`
	Stage   string `json:"stage"`
	RowsIn  int    `json:"rows_in"`
	RowsOut int    `json:"rows_out"`
}

// Stats counts rows at each point of the pipeline.
//
// INVARIANTS:
//   - LeftOnly + Matched == JoinedLeft
//   - RightOnly + (distinct right keys matched) == AggregatedRecords
//   - FilteredBreaks <= Breaks <= Matched
type Stats struct {
	LeftRecords       int `json:"left_records"`
	RightRecords      int `json:"right_records"`
	AggregatedRecords int `json:"aggregated_records"`
	JoinedLeft        int `json:"joined_left"`
	LeftOnly          int `json:"left_only"`
	RightOnly         int `json:"right_only"`
	Matched           int `json:"matched"`
	Breaks            int `json:"breaks"`
	FilteredBreaks    int `json:"filtered_breaks"`
	ZeroBase          int `json:"zero_base"`
}

// Result is the complete output of one reconciliation run.
type Result struct {
	RunID     string        `json:"run_id"`
	Config    Config        `json:"config"`
	LeftOnly  *ir.Table     `json:"left_only"`
	RightOnly *ir.Table     `json:"right_only"`
	Breaks    *ir.Table     `json:"breaks"`
	Summary   BucketSummary `json:"summary"`
	Stats     Stats         `json:"stats"`
	Warnings  []Warning     `json:"warnings"`
	Trace     []StageEvent  `json:"trace"`

	// Digest identifies the outputs independently of row order, run ID and
	// trace: two runs with equal digests produced the same sets of rows.
	Digest string `json:"digest"`

	// BreakDetails carries per-break numerics (relative difference, zero base)
	// in the same order as Breaks.Rows.
	BreakDetails []Break `json:"-"`
}

// computeDigest hashes the order-independent content of the result.
func (r *Result) computeDigest() (string, error) {
	warnings := make([]any, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		warnings = append(warnings, map[string]any{"code": string(w.Code), "key": w.Key})
	}
	sortCanonical(warnings)

	summary := make([]any, 0, len(r.Summary))
	for _, c := range r.Summary {
		summary = append(summary, map[string]any{"label": c.Label, "count": c.Count})
	}

	return ir.Digest(ir.DomainResult, map[string]any{
		"config":     r.Config.canonical(),
		"left_only":  sortedRows(r.LeftOnly),
		"right_only": sortedRows(r.RightOnly),
		"breaks":     sortedRows(r.Breaks),
		"summary":    summary,
		"warnings":   warnings,
	})
}

// sortedRows returns the rows of t ordered by their canonical encoding.
func sortedRows(t *ir.Table) []any {
	out := make([]any, 0, t.Len())
	if t == nil {
		return out
	}
	for _, row := range t.Rows {
		out = append(out, row)
	}
	sortCanonical(out)
	return out
}

func sortCanonical(items []any) {
	enc := make(map[int][]byte, len(items))
	idx := make([]int, len(items))
	for i, it := range items {
		b, err := ir.MarshalCanonical(it)
		if err != nil {
			b = nil
		}
		enc[i] = b
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int { return bytes.Compare(enc[a], enc[b]) })

	sorted := make([]any, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
}
