package queryir

import (
	"fmt"
	"regexp"

	"github.com/roach88/recon/internal/ir"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidationResult lists the problems found in a Select.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems describes each violation, in traversal order.
	Problems []string
}

// Err folds the problems into a single error, or returns nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	if len(r.Problems) == 1 {
		return fmt.Errorf("invalid selection: %s", r.Problems[0])
	}
	return fmt.Errorf("invalid selection: %s (and %d more)", r.Problems[0], len(r.Problems)-1)
}

// Validate checks that a Select only uses plain identifiers and
// comparable literals.
//
// Rules:
//  1. From and every column/field name match [A-Za-z_][A-Za-z0-9_]*
//  2. Columns contains no duplicates
//  3. Equals never compares against NULL
//
// Validate is a pure function with no side effects.
func Validate(s Select) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateSelect(s)
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// IsIdentifier reports whether name is safe to use unquoted in a query.
func IsIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateSelect(s Select) {
	if !IsIdentifier(s.From) {
		v.addProblem("table name %q is not a plain identifier", s.From)
	}

	seen := make(map[string]bool, len(s.Columns))
	for _, col := range s.Columns {
		if !IsIdentifier(col) {
			v.addProblem("column name %q is not a plain identifier", col)
		}
		if seen[col] {
			v.addProblem("column %q selected twice", col)
		}
		seen[col] = true
	}

	v.validatePredicate(s.Filter)
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	if !IsIdentifier(eq.Field) {
		v.addProblem("filter field %q is not a plain identifier", eq.Field)
	}
	if eq.Value == nil {
		v.addProblem("field %q compared to a nil value", eq.Field)
		return
	}
	if _, isNull := eq.Value.(ir.Null); isNull {
		v.addProblem("field %q compared to NULL never matches", eq.Field)
	}
}
