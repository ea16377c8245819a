package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/recon/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter    string // case filter (glob pattern on the file name)
	GoldenDir string // snapshot directory; empty disables golden comparison
	Update    bool   // regenerate golden files
}

// CaseResult holds the result of a single case execution.
type CaseResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Cases  []CaseResult `json:"cases"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Total  int          `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <cases-dir>",
		Short: "Run reconciliation cases",
		Long: `Run every case file in a directory and check its expectations.

Each case runs with a fixed run ID and a deterministic trace clock, so
reports are reproducible. With --golden, each report is also compared
with <golden-dir>/<case name>.golden; --update rewrites those files.

Exit codes:
  0 - All cases passed
  1 - One or more cases failed
  2 - Command error (invalid paths, etc.)

Examples:
  recon test ./cases
  recon test ./cases --filter "*duplicate*"
  recon test ./cases --golden ./golden --update
  recon test ./cases --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter cases by glob pattern on the file name")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "compare reports with golden files in this directory")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files (requires --golden)")

	return cmd
}

func runTests(opts *TestOptions, casesDir string, cmd *cobra.Command) error {
	if info, err := os.Stat(casesDir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("cases directory not found: %s", casesDir))
	}
	if opts.Update && opts.GoldenDir == "" {
		return NewExitError(ExitCommandError, "--update requires --golden")
	}

	caseFiles, err := findCaseFiles(casesDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find cases", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	if len(caseFiles) == 0 {
		if formatter.IsJSON() {
			return outputTestJSON(formatter, TestResult{Cases: []CaseResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No cases found.")
		return nil
	}

	result := TestResult{
		Cases: make([]CaseResult, 0, len(caseFiles)),
		Total: len(caseFiles),
	}
	for _, file := range caseFiles {
		cr := runCase(file, opts)
		if !formatter.IsJSON() {
			printCaseResult(formatter, cr)
		}
		result.Cases = append(result.Cases, cr)
		if cr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if formatter.IsJSON() {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(formatter, result)
}

// findCaseFiles lists the YAML case files directly in dir, sorted.
// A non-empty filter is matched against the file name without extension.
func findCaseFiles(dir, filter string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(e.Name(), ext))
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				continue
			}
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// runCase executes one case file and, when configured, its golden check.
func runCase(file string, opts *TestOptions) CaseResult {
	cr := CaseResult{Name: filepath.Base(file), File: file, Pass: true}

	res, err := harness.RunFile(file)
	if err != nil {
		cr.Pass = false
		cr.Errors = []string{fmt.Sprintf("load error: %v", err)}
		return cr
	}
	cr.Name = res.Name
	cr.Errors = res.Errors
	cr.Pass = res.Pass

	// Error cases have no report to snapshot.
	if opts.GoldenDir == "" || res.Report == nil {
		return cr
	}

	snapshot, err := harness.Snapshot(res.Name, res.Report)
	if err != nil {
		cr.Pass = false
		cr.Errors = append(cr.Errors, fmt.Sprintf("snapshot: %v", err))
		return cr
	}
	goldenPath := filepath.Join(opts.GoldenDir, res.Name+".golden")

	if opts.Update {
		if err := os.MkdirAll(opts.GoldenDir, 0o755); err != nil {
			cr.Pass = false
			cr.Errors = append(cr.Errors, fmt.Sprintf("failed to create golden directory: %v", err))
			return cr
		}
		if err := os.WriteFile(goldenPath, snapshot, 0o644); err != nil {
			cr.Pass = false
			cr.Errors = append(cr.Errors, fmt.Sprintf("failed to write golden file: %v", err))
		}
		return cr
	}

	golden, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		// No golden file - use assertion-based validation only
		return cr
	}
	if err != nil {
		cr.Pass = false
		cr.Errors = append(cr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
		return cr
	}
	if !bytes.Equal(bytes.TrimSpace(golden), bytes.TrimSpace(snapshot)) {
		cr.Pass = false
		cr.Errors = append(cr.Errors, "report does not match golden file (run with --update to regenerate)")
	}
	return cr
}

func printCaseResult(f *OutputFormatter, cr CaseResult) {
	if cr.Pass {
		fmt.Fprintf(f.Writer, "✓ %s\n", cr.Name)
		return
	}
	fmt.Fprintf(f.Writer, "✗ %s\n", cr.Name)
	for _, e := range cr.Errors {
		fmt.Fprintf(f.Writer, "  %s\n", e)
	}
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(f *OutputFormatter, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d case(s) failed", result.Failed),
		}
	}
	if err := f.encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d case(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test summary as text.
func outputTestText(f *OutputFormatter, result TestResult) error {
	fmt.Fprintln(f.Writer)
	fmt.Fprintf(f.Writer, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d case(s) failed", result.Failed))
	}

	fmt.Fprintln(f.Writer, "✓ All cases passed")
	return nil
}
