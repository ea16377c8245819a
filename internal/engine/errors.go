package engine

import (
	"errors"
	"fmt"
)

// Error represents a fatal condition detected while reconciling.
//
// Errors include:
//   - Schema: a required column is missing or a reserved output name is taken
//   - Type kind: a key or quantity cell has a kind the pipeline cannot use
//   - Duplicate key: a left key repeats under the reject policy
//   - Invalid config: tolerance, range or policy out of bounds
//
// A run that returns an Error produces no output at all.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Dataset names the affected input ("left" or "right"), if any.
	Dataset string

	// Column names the affected column, if any.
	Column string

	// Row is the zero-based row index in the input dataset, or -1.
	Row int

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes reconciliation errors.
type ErrorCode string

const (
	// ErrCodeSchema indicates a missing required column or a reserved column name.
	ErrCodeSchema ErrorCode = "SCHEMA_ERROR"

	// ErrCodeTypeKind indicates a key or quantity value of an unusable kind.
	ErrCodeTypeKind ErrorCode = "TYPE_KIND"

	// ErrCodeDuplicateKey indicates a duplicated left key under DuplicateReject.
	ErrCodeDuplicateKey ErrorCode = "DUPLICATE_KEY"

	// ErrCodeInvalidConfig indicates a configuration that cannot be applied.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Error implements the error interface.
func (e *Error) Error() string {
	loc := e.Dataset
	if e.Column != "" {
		if loc != "" {
			loc += "."
		}
		loc += e.Column
	}
	if e.Row >= 0 && loc != "" {
		loc = fmt.Sprintf("%s, row %d", loc, e.Row)
	}
	if loc != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, loc)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCodeOf returns the code of the first *Error in err's chain, or "".
func ErrorCodeOf(err error) ErrorCode {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsSchemaError returns true if the error is a schema error.
// Uses errors.As to handle wrapped errors.
func IsSchemaError(err error) bool {
	return ErrorCodeOf(err) == ErrCodeSchema
}

// IsTypeError returns true if the error is a type kind error.
func IsTypeError(err error) bool {
	return ErrorCodeOf(err) == ErrCodeTypeKind
}

// IsDuplicateKeyError returns true if the error is a rejected duplicate key.
func IsDuplicateKeyError(err error) bool {
	return ErrorCodeOf(err) == ErrCodeDuplicateKey
}

// IsConfigError returns true if the error is an invalid configuration.
func IsConfigError(err error) bool {
	return ErrorCodeOf(err) == ErrCodeInvalidConfig
}

// NewSchemaError creates an Error for a missing or reserved column.
func NewSchemaError(dataset, column, message string) *Error {
	return &Error{
		Code:    ErrCodeSchema,
		Message: message,
		Dataset: dataset,
		Column:  column,
		Row:     -1,
	}
}

// NewTypeError creates an Error for a cell of the wrong kind.
func NewTypeError(dataset, column string, row int, got string, want string) *Error {
	return &Error{
		Code:    ErrCodeTypeKind,
		Message: fmt.Sprintf("expected %s, got %s", want, got),
		Dataset: dataset,
		Column:  column,
		Row:     row,
		Details: map[string]string{
			"got":  got,
			"want": want,
		},
	}
}

// NewDuplicateKeyError creates an Error for a rejected duplicate left key.
func NewDuplicateKeyError(dataset string, key Key, firstRow, row int) *Error {
	return &Error{
		Code:    ErrCodeDuplicateKey,
		Message: fmt.Sprintf("key %s appears more than once", key),
		Dataset: dataset,
		Row:     row,
		Details: map[string]string{
			"key":       key.String(),
			"first_row": fmt.Sprintf("%d", firstRow),
		},
	}
}

// NewConfigError creates an Error for an unusable configuration field.
func NewConfigError(field, message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidConfig,
		Message: message,
		Column:  field,
		Row:     -1,
	}
}

// WarningCode categorizes non-fatal conditions resolved during a run.
type WarningCode string

const (
	// WarnDuplicateKey indicates a left key appeared more than once and
	// was multiplied or de-duplicated according to the policy.
	WarnDuplicateKey WarningCode = "DUPLICATE_KEY_AMBIGUITY"

	// WarnDivisionEdgeCase indicates a matched pair with a zero right
	// quantity, where no relative difference exists.
	WarnDivisionEdgeCase WarningCode = "DIVISION_EDGE_CASE"
)

// Warning is a non-fatal condition. Warnings never change whether a run
// succeeds; they are reported alongside the result.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
	Key     string      `json:"key,omitempty"`
}
