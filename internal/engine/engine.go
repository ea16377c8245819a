package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/recon/internal/ir"
)

// Engine runs the reconciliation pipeline:
//
//	right ──Aggregate──┐
//	left ──────────────┴──Match──DetectBreaks──FilterBreaks──Bucketize
//
// Every stage is a pure function over immutable tables; the Engine only
// sequences them, stamps the trace and logs.
//
// Thread-safety: Run may be called from any number of goroutines. The
// Engine holds no per-run state; the clock and run ID generator it uses
// must themselves be safe for concurrent use.
type Engine struct {
	logger *slog.Logger
	clock  Sequencer
	runIDs RunIDGenerator
}

// EngineOption allows configuration of engine collaborators.
type EngineOption func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the trace clock. Default: a fresh Clock.
func WithClock(c Sequencer) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithRunIDGenerator sets the run ID source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		if g != nil {
			e.runIDs = g
		}
	}
}

// New creates an Engine.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		logger: slog.Default(),
		clock:  NewClock(),
		runIDs: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run reconciles left against right under cfg.
//
// Schema, type, duplicate-key (reject policy) and config errors abort the
// run and return a *Error with no partial result. Zero-base pairs and
// duplicate left keys under warn/first are resolved and reported as
// Result.Warnings.
//
// The input tables are never modified.
func (e *Engine) Run(left, right *ir.Table, cfg Config) (*Result, error) {
	if cfg.DuplicatePolicy == "" {
		cfg.DuplicatePolicy = DuplicateWarn
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runID := e.runIDs.Generate()
	log := e.logger.With("run_id", runID)
	res := &Result{RunID: runID, Config: cfg, Warnings: []Warning{}}

	stage := func(name string, in, out int) {
		res.Trace = append(res.Trace, StageEvent{Seq: e.clock.Next(), Stage: name, RowsIn: in, RowsOut: out})
		log.Debug("stage complete", "stage", name, "rows_in", in, "rows_out", out)
	}

	aggregated, err := Aggregate(right)
	if err != nil {
		log.Debug("reconciliation failed", "stage", StageAggregate, "error", err)
		return nil, err
	}
	stage(StageAggregate, right.Len(), aggregated.Len())

	set, err := Match(left, aggregated, cfg.DuplicatePolicy)
	if err != nil {
		log.Debug("reconciliation failed", "stage", StageMatch, "error", err)
		return nil, err
	}
	stage(StageMatch, left.Len()+aggregated.Len(), len(set.Rows))
	res.Warnings = append(res.Warnings, set.Warnings...)

	matched := set.Matched()
	breaks, warnings := DetectBreaks(matched, cfg.Tolerance)
	stage(StageDetect, len(matched), len(breaks))
	res.Warnings = append(res.Warnings, warnings...)

	filtered := FilterBreaks(breaks, cfg.DiffRange)
	stage(StageFilter, len(breaks), len(filtered))

	res.Summary = Bucketize(filtered)
	stage(StageBucketize, len(filtered), len(res.Summary))

	res.LeftOnly = set.LeftOnly()
	res.RightOnly = set.RightOnly()
	res.Breaks = BreaksTable(set.Columns, filtered)
	res.BreakDetails = filtered
	res.Stats = Stats{
		LeftRecords:       left.Len(),
		RightRecords:      right.Len(),
		AggregatedRecords: aggregated.Len(),
		JoinedLeft:        set.LeftRows,
		LeftOnly:          res.LeftOnly.Len(),
		RightOnly:         res.RightOnly.Len(),
		Matched:           len(matched),
		Breaks:            len(breaks),
		FilteredBreaks:    len(filtered),
		ZeroBase:          len(warnings),
	}

	digest, err := res.computeDigest()
	if err != nil {
		return nil, fmt.Errorf("result digest: %w", err)
	}
	res.Digest = digest

	for _, w := range res.Warnings {
		log.Warn("reconciliation warning", "code", w.Code, "key", w.Key, "message", w.Message)
	}
	log.Info("reconciliation complete",
		"left_only", res.Stats.LeftOnly,
		"right_only", res.Stats.RightOnly,
		"matched", res.Stats.Matched,
		"breaks", res.Stats.FilteredBreaks,
		"digest", res.Digest[:12],
	)
	return res, nil
}

// Reconcile runs the pipeline with a default Engine.
func Reconcile(left, right *ir.Table, cfg Config) (*Result, error) {
	return New().Run(left, right, cfg)
}
