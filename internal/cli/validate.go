package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/recon/internal/compiler"
	"github.com/roach88/recon/internal/harness"
)

// Validation error codes for files that never reach compiler.Validate.
const (
	ErrCodeUnreadable  = "E100" // file missing or unreadable
	ErrCodeCompile     = "E101" // CUE syntax or schema violation
	ErrCodeCase        = "E102" // case file malformed
	ErrCodeUnsupported = "E103" // not a .cue, .yaml or .yml file
)

// FileValidation is the outcome for one file.
type FileValidation struct {
	Path   string                     `json:"path"`
	Kind   string                     `json:"kind"` // "config" | "case"
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate config and case files without running them",
		Long: `Validate CUE config files and YAML case files.

A .cue file is compiled against the config schema and checked for
cross-field consistency (tolerance >= 0, diff_filter.min <= max, a
known duplicate policy). A .yaml or .yml file is parsed as a case:
required fields, known error and warning codes, bucket labels, and
its config or config_file.

Examples:
  recon validate ./recon.cue
  recon validate ./cases/*.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		fv := validateFile(path)
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	return outputValidation(formatter, result)
}

// validateFile dispatches on the file extension.
func validateFile(path string) FileValidation {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return finish(FileValidation{Path: path, Kind: "config"}, validateConfigFile(path))
	case ".yaml", ".yml":
		return finish(FileValidation{Path: path, Kind: "case"}, validateCaseFile(path))
	default:
		return finish(FileValidation{Path: path}, []compiler.ValidationError{{
			Field:   "file",
			Message: "unsupported file type (want .cue, .yaml or .yml)",
			Code:    ErrCodeUnsupported,
		}})
	}
}

func finish(fv FileValidation, errs []compiler.ValidationError) FileValidation {
	fv.Valid = len(errs) == 0
	fv.Errors = errs
	return fv
}

func validateConfigFile(path string) []compiler.ValidationError {
	src, err := os.ReadFile(path)
	if err != nil {
		return []compiler.ValidationError{{Field: "file", Message: err.Error(), Code: ErrCodeUnreadable}}
	}
	cfg, err := compiler.CompileConfigBytes(path, src)
	if err != nil {
		return []compiler.ValidationError{compileErrorToValidation(err)}
	}
	// Validate collects every cross-field problem, not just the first.
	return compiler.Validate(cfg)
}

func validateCaseFile(path string) []compiler.ValidationError {
	c, err := harness.LoadCase(path)
	if err != nil {
		code := ErrCodeCase
		if errors.Is(err, os.ErrNotExist) {
			code = ErrCodeUnreadable
		}
		return []compiler.ValidationError{{Field: "case", Message: err.Error(), Code: code}}
	}
	cfg, err := c.EngineConfig(filepath.Dir(path))
	if err != nil {
		var ve compiler.ValidationError
		if errors.As(err, &ve) {
			return []compiler.ValidationError{ve}
		}
		return []compiler.ValidationError{compileErrorToValidation(err)}
	}
	return compiler.Validate(cfg)
}

// compileErrorToValidation keeps the line of a CUE error when it has one.
func compileErrorToValidation(err error) compiler.ValidationError {
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		line := 0
		if ce.Pos.IsValid() {
			line = ce.Pos.Line()
		}
		return compiler.ValidationError{Field: ce.Field, Message: ce.Message, Code: ErrCodeCompile, Line: line}
	}
	return compiler.ValidationError{Field: "config", Message: err.Error(), Code: ErrCodeCompile}
}

// outputValidation prints the per-file results and maps failures to
// exit code 1.
func outputValidation(f *OutputFormatter, result ValidationResult) error {
	invalid := 0
	for _, fv := range result.Files {
		if !fv.Valid {
			invalid++
		}
	}

	if f.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if invalid > 0 {
			first := firstError(result)
			resp.Status = "error"
			resp.Error = &CLIError{Code: first.Code, Message: first.Message}
		}
		if err := f.encode(resp); err != nil {
			return err
		}
	} else {
		for _, fv := range result.Files {
			if fv.Valid {
				fmt.Fprintf(f.Writer, "✓ %s\n", fv.Path)
				continue
			}
			fmt.Fprintf(f.Writer, "✗ %s\n", fv.Path)
			for _, e := range fv.Errors {
				if e.Line > 0 {
					fmt.Fprintf(f.Writer, "  line %d: %s: %s\n", e.Line, e.Code, e.Message)
				} else {
					fmt.Fprintf(f.Writer, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
				}
			}
		}
	}

	if invalid > 0 {
		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d file(s)", invalid))
	}
	if !f.IsJSON() {
		fmt.Fprintln(f.Writer, "✓ All files valid")
	}
	return nil
}

func firstError(result ValidationResult) compiler.ValidationError {
	for _, fv := range result.Files {
		if len(fv.Errors) > 0 {
			return fv.Errors[0]
		}
	}
	return compiler.ValidationError{Code: ErrCodeGeneric, Message: "validation failed"}
}
