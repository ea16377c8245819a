package compiler

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/shopspring/decimal"

	"github.com/roach88/recon/internal/engine"
)

//go:embed schema.cue
var schemaSource string

// configFields are the top-level labels accepted in a config file.
var configFields = []string{"tolerance", "diff_filter", "duplicate_policy"}

// CompileConfigBytes compiles CUE source into an engine.Config.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The source is unified with the embedded #Config schema, so omitted
// fields take their schema defaults:
//
//	cfg, err := CompileConfigBytes("recon.cue", []byte(`tolerance: 0.02`))
//	// cfg.Tolerance == 0.02, cfg.DuplicatePolicy == "warn"
func CompileConfigBytes(filename string, src []byte) (*engine.Config, error) {
	ctx := cuecontext.New()
	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileConfig(user)
}

// CompileConfig converts a user CUE value into an engine.Config.
//
// Unknown top-level fields are rejected. Constraint violations (a negative
// tolerance, an unknown policy) surface as *CompileError with position.
// Cross-field checks are left to Validate.
func CompileConfig(user cue.Value) (*engine.Config, error) {
	if err := user.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := checkFields(user); err != nil {
		return nil, err
	}

	schema := user.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(user)
	if err := v.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	cfg := engine.DefaultConfig()

	tol, err := decimalAt(v, "tolerance")
	if err != nil {
		return nil, err
	}
	cfg.Tolerance = tol

	policy, err := stringAt(v, "duplicate_policy")
	if err != nil {
		return nil, err
	}
	cfg.DuplicatePolicy = engine.DuplicatePolicy(policy)

	// Bounds are read only when the user set them: an omitted bound is open.
	if user.LookupPath(cue.ParsePath("diff_filter.min")).Exists() {
		lo, err := decimalAt(v, "diff_filter.min")
		if err != nil {
			return nil, err
		}
		cfg.DiffRange.Min = &lo
	}
	if user.LookupPath(cue.ParsePath("diff_filter.max")).Exists() {
		hi, err := decimalAt(v, "diff_filter.max")
		if err != nil {
			return nil, err
		}
		cfg.DiffRange.Max = &hi
	}

	return &cfg, nil
}

// LoadConfigFile reads, compiles and validates a config file.
// The first validation failure is returned as a ValidationError.
func LoadConfigFile(path string) (*engine.Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := CompileConfigBytes(path, src)
	if err != nil {
		return nil, err
	}
	if errs := Validate(cfg); len(errs) > 0 {
		return nil, errs[0]
	}
	return cfg, nil
}

// checkFields rejects top-level labels the schema does not define.
func checkFields(user cue.Value) error {
	iter, err := user.Fields(cue.Optional(true))
	if err != nil {
		return &CompileError{Field: "config", Message: "config must be a struct", Pos: user.Pos()}
	}
	for iter.Next() {
		label := iter.Label()
		if !slices.Contains(configFields, label) {
			return &CompileError{
				Field:   label,
				Message: fmt.Sprintf("unknown field (want one of %v)", configFields),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

// decimalAt reads a concrete number at path, taking the schema default
// when present. The CUE literal is parsed directly so no precision is lost.
func decimalAt(v cue.Value, path string) (decimal.Decimal, error) {
	f, _ := v.LookupPath(cue.ParsePath(path)).Default()
	if err := f.Err(); err != nil {
		return decimal.Zero, formatCUEError(err)
	}
	raw, err := f.MarshalJSON()
	if err != nil {
		return decimal.Zero, &CompileError{Field: path, Message: "must be a concrete number", Pos: f.Pos()}
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Zero, &CompileError{Field: path, Message: fmt.Sprintf("invalid number %s", raw), Pos: f.Pos()}
	}
	return d, nil
}

func stringAt(v cue.Value, path string) (string, error) {
	f, _ := v.LookupPath(cue.ParsePath(path)).Default()
	s, err := f.String()
	if err != nil {
		return "", &CompileError{Field: path, Message: "must be a concrete string", Pos: f.Pos()}
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
