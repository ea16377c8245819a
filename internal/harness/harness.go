package harness

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/roach88/recon/internal/engine"
	"github.com/roach88/recon/internal/testutil"
)

// DefaultRunID is the run ID stamped on every case report.
const DefaultRunID = "test-run-default"

// Harness executes cases on a deterministic engine.
type Harness struct {
	logger  *slog.Logger
	baseDir string
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger used for the engine. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithBaseDir sets the directory config_file paths are resolved against.
func WithBaseDir(dir string) Option {
	return func(h *Harness) {
		h.baseDir = dir
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a case with a default Harness.
func Run(c *Case) (*Result, error) {
	return New().Run(c)
}

// RunFile loads and executes the case at path, resolving config_file
// relative to the case file.
func RunFile(path string) (*Result, error) {
	c, err := LoadCase(path)
	if err != nil {
		return nil, err
	}
	return New(WithBaseDir(filepath.Dir(path))).Run(c)
}

// Run executes a case and evaluates its expectations.
//
// Each run gets a fresh engine with a deterministic clock and the fixed
// run ID DefaultRunID. An engine error is not a harness error: it is
// checked against expect.error. The returned error is reserved for cases
// that cannot be run at all (an unreadable config file).
func (h *Harness) Run(c *Case) (*Result, error) {
	cfg, err := c.EngineConfig(h.baseDir)
	if err != nil {
		return nil, fmt.Errorf("case %s: %w", c.Name, err)
	}

	eng := engine.New(
		engine.WithLogger(h.logger.With("case", c.Name)),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(DefaultRunID)),
	)

	result := NewResult(c.Name)
	report, runErr := eng.Run(c.Left, c.Right, cfg)
	result.Report = report
	result.RunErr = runErr

	for _, msg := range checkExpect(report, runErr, c.Expect) {
		result.AddError(msg)
	}
	return result, nil
}
