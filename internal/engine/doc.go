// Package engine implements two-sided quantity reconciliation.
//
// Given a left and a right dataset keyed by (trade_id, version), the engine
// classifies every key as left-only, right-only or matched, flags matched
// pairs whose quantities disagree beyond a relative tolerance ("breaks"),
// and histograms the breaks by signed difference.
//
// PIPELINE:
//
//  1. Aggregate: sum right quantities per key (the right side may hold
//     several fills for one trade)
//  2. Match: full outer hash join of left against the aggregated right
//  3. DetectBreaks: |l - r| / r > tolerance (signed r), with an explicit zero-base rule
//  4. FilterBreaks: inclusive [min, max] window on quantity_difference
//  5. Bucketize: six fixed right-closed ranges, always all six reported
//
// CRITICAL PATTERNS:
//
// Exact arithmetic: quantities are ir.Int or ir.Decimal, never floats, so
// sums are exact and a relative difference equal to the tolerance is
// never a break.
//
// Immutability: each stage returns new tables and never writes to its
// inputs. Callers may share input tables across concurrent runs.
//
// Determinism: output order is a function of input order only (left rows
// first, then right-only rows in first-appearance order), and
// Result.Digest is independent of row order altogether.
package engine
