package compiler

import (
	"fmt"

	"github.com/roach88/recon/internal/engine"
)

// Validation error codes (E200-E299)
const (
	// General validation errors (E200)
	ErrUnsupportedType = "E200" // unsupported type for validation

	// Config errors (E201-E209)
	ErrToleranceNegative = "E201" // tolerance must be >= 0
	ErrRangeInverted     = "E202" // diff_filter.min > diff_filter.max
	ErrUnknownPolicy     = "E203" // duplicate_policy not warn/reject/first
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled config.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch cfg := v.(type) {
	case *engine.Config:
		return validateConfig(cfg)
	case engine.Config:
		return validateConfig(&cfg)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type for validation: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

func validateConfig(cfg *engine.Config) []ValidationError {
	var errs []ValidationError

	if cfg.Tolerance.IsNegative() {
		errs = append(errs, ValidationError{
			Field:   "tolerance",
			Message: fmt.Sprintf("must be >= 0, got %s", cfg.Tolerance),
			Code:    ErrToleranceNegative,
		})
	}

	r := cfg.DiffRange
	if r.Min != nil && r.Max != nil && r.Min.GreaterThan(*r.Max) {
		errs = append(errs, ValidationError{
			Field:   "diff_filter",
			Message: fmt.Sprintf("min %s is greater than max %s", r.Min, r.Max),
			Code:    ErrRangeInverted,
		})
	}

	if _, err := engine.ParseDuplicatePolicy(string(cfg.DuplicatePolicy)); err != nil {
		errs = append(errs, ValidationError{
			Field:   "duplicate_policy",
			Message: fmt.Sprintf("unknown policy %q (want warn, reject or first)", cfg.DuplicatePolicy),
			Code:    ErrUnknownPolicy,
		})
	}

	return errs
}
