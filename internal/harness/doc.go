// Package harness runs reconciliation cases described in YAML and checks
// the report against their expectations.
//
// # Case Format
//
//	name: within_tolerance_after_aggregation
//	description: right side splits the trade in two fills
//	config:                      # optional; or config_file: recon.cue
//	  tolerance: 0.05
//	  duplicate_policy: warn
//	  diff_filter: {min: 0, max: 1000}
//	left:
//	  columns: [trade_id, version, quantity]   # optional
//	  rows:
//	    - {trade_id: 1, version: 1, quantity: 100}
//	right:
//	  rows:
//	    - {trade_id: 1, version: 1, quantity: 95}
//	    - {trade_id: 1, version: 1, quantity: 6}
//	expect:
//	  counts: {left_only: 0, right_only: 0, matched: 1, breaks: 0}
//	  breaks: []
//	  summary: {"50 to 100": 0}
//
// Numbers are read from their YAML literal text, so 0.05 is exactly 0.05.
//
// # Expectations
//
// Every expect field is optional; an omitted field is not checked.
//
//   - error: the run must fail with this error code (SCHEMA_ERROR, ...)
//   - counts: exact row counts of the outputs
//   - left_only, right_only, breaks: expected rows, matched one-to-one and
//     order-independently; each expected row lists a subset of columns.
//     An empty list asserts there are no rows.
//   - summary: bucket counts by label; labels not listed must be 0
//   - warnings: warning codes, compared as a multiset
//
// # Determinism
//
// Cases run on an engine with a deterministic clock and a fixed run ID, so
// a report is byte-identical across runs. RunWithGolden snapshots the
// canonical report under testdata/golden.
package harness
