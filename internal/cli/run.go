package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/recon/internal/engine"
	"github.com/roach88/recon/internal/ir"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Source SourceOptions

	Output       string // write the full JSON report here
	ShowRows     bool
	FailOnBreaks bool

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile two datasets",
		Long: `Reconcile the left dataset against the right one and report
left-only rows, right-only rows, breaks and the break bucket summary.

Exit codes:
  0 - Reconciliation completed
  1 - Reconciliation failed (schema, type or duplicate key error),
      or --fail-on-breaks and at least one break remains after filtering
  2 - Command error (missing files, bad flags, invalid config)

Examples:
  recon run --case ./cases/mixed.yaml
  recon run --db ./trades.db --left-table booked --right-table confirmed
  recon run --db ./trades.db --left-where book=EQ1 --right-where book=EQ1
  recon run --db ./trades.db --config ./recon.cue --slider --format json
  recon run --db ./trades.db --out ./report.json --fail-on-breaks`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(opts, cmd)
		},
	}

	opts.Source.AddFlags(cmd.Flags())
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "write the full JSON report to this file")
	cmd.Flags().BoolVar(&opts.ShowRows, "rows", false, "print left-only, right-only and break rows (text format)")
	cmd.Flags().BoolVar(&opts.FailOnBreaks, "fail-on-breaks", false, "exit 1 when any break remains after filtering")

	return cmd
}

func runReconcile(opts *RunOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ds, err := opts.Source.Load(ctx)
	if err != nil {
		return reportCommandError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d left and %d right rows from %s", ds.Left.Len(), ds.Right.Len(), ds.Origin)
	formatter.VerboseLog("Config: tolerance %s, diff filter %s, duplicate policy %s",
		ds.Config.Tolerance, ds.Config.DiffRange, ds.Config.DuplicatePolicy)

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}
	eng := engine.New(engine.WithLogger(logger), engine.WithRunIDGenerator(runIDs))

	start := time.Now()
	res, err := eng.Run(ds.Left, ds.Right, ds.Config)
	if err != nil {
		return formatter.EngineError(err)
	}
	formatter.VerboseLog("Run %s finished in %s", res.RunID, time.Since(start).Round(time.Microsecond))

	if opts.Output != "" {
		if err := writeReport(opts.Output, res); err != nil {
			return reportCommandError(formatter, WrapExitError(ExitCommandError, "failed to write report", err))
		}
	}

	if formatter.IsJSON() {
		if err := formatter.encode(CLIResponse{Status: "ok", Data: res, RunID: res.RunID}); err != nil {
			return err
		}
	} else {
		printReport(formatter.Writer, res, opts.ShowRows)
	}

	if opts.FailOnBreaks && res.Summary.Total() > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d break(s) after filtering", res.Summary.Total()))
	}
	return nil
}

// reportCommandError prints err through the formatter and passes it on.
func reportCommandError(f *OutputFormatter, err error) error {
	code := ErrCodeSource
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"), os.IsNotExist(err):
		code = ErrCodeNotFound
	case strings.Contains(msg, "config"):
		code = ErrCodeConfig
	}
	_ = f.Error(code, msg, nil)
	return err
}

func writeReport(path string, res *engine.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// printReport writes the human-readable report.
func printReport(w io.Writer, res *engine.Result, showRows bool) {
	s := res.Stats
	fmt.Fprintf(w, "Run %s\n", res.RunID)
	fmt.Fprintf(w, "Digest %s\n\n", res.Digest)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Left records\t%d\n", s.LeftRecords)
	fmt.Fprintf(tw, "Right records\t%d (%d after aggregation)\n", s.RightRecords, s.AggregatedRecords)
	fmt.Fprintf(tw, "Matched\t%d\n", s.Matched)
	fmt.Fprintf(tw, "Left only\t%d\n", s.LeftOnly)
	fmt.Fprintf(tw, "Right only\t%d\n", s.RightOnly)
	if res.Config.DiffRange.IsUnbounded() {
		fmt.Fprintf(tw, "Breaks\t%d\n", s.Breaks)
	} else {
		fmt.Fprintf(tw, "Breaks\t%d (%d within %s)\n", s.Breaks, s.FilteredBreaks, res.Config.DiffRange)
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Quantity difference buckets:")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, c := range res.Summary {
		fmt.Fprintf(tw, "  %s\t%d\t\n", c.Label, c.Count)
	}
	tw.Flush()

	if len(res.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Warnings (%d):\n", len(res.Warnings))
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "  %s: %s\n", warn.Code, warn.Message)
		}
	}

	if showRows {
		printRows(w, "Left only", res.LeftOnly)
		printRows(w, "Right only", res.RightOnly)
		printRows(w, "Breaks", res.Breaks)
	}
}

func printRows(w io.Writer, title string, t *ir.Table) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s (%d):\n", title, t.Len())
	if t.Len() == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  %s\n", strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			cells[i] = ir.Format(row.Get(col))
		}
		fmt.Fprintf(tw, "  %s\n", strings.Join(cells, "\t"))
	}
	tw.Flush()
}
