package queryir

import "github.com/roach88/recon/internal/ir"

// Predicate represents a filter condition in a Select.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = literal_value
//   - And: all predicates must be true
//
// OR predicates are not supported; load the rows with two selections and
// concatenate them instead.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select represents access to one source table.
//
// Semantics:
//
//	SELECT <columns> FROM <from> WHERE <filter>
//
// An empty Columns list selects every column in storage order. Column
// names are preserved as-is in the loaded table.
type Select struct {
	From    string    // Table name in the backing store
	Columns []string  // Explicit column list (nil = all columns)
	Filter  Predicate // WHERE conditions (nil = no filter)
}

// All returns a Select over every row and column of table.
func All(table string) Select {
	return Select{From: table}
}

// Where returns a copy of s with p added to its filter.
// Existing conditions are kept: the result is their conjunction.
func (s Select) Where(p Predicate) Select {
	switch existing := s.Filter.(type) {
	case nil:
		s.Filter = p
	case And:
		preds := make([]Predicate, 0, len(existing.Predicates)+1)
		preds = append(preds, existing.Predicates...)
		s.Filter = And{Predicates: append(preds, p)}
	default:
		s.Filter = And{Predicates: []Predicate{existing, p}}
	}
	return s
}

// Equals represents a field-equals-literal predicate.
//
// Semantics:
//
//	<field> = <value>
//
// Value must be a non-null ir.Value. NULL never compares equal in SQL, so
// Validate rejects Equals with an ir.Null value.
type Equals struct {
	Field string   // Column name in the source table
	Value ir.Value // Literal value
}

func (Equals) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// An empty Predicates slice is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
