// Package queryir provides the dataset-selection IR used to load
// reconciliation inputs from a backing store.
//
// The IR is deliberately tiny. A Select names a source table, an optional
// explicit column list and an optional filter built from Equals and And:
//
//	queryir.Select{
//	  From:    "positions",
//	  Columns: []string{"trade_id", "version", "quantity", "book"},
//	  Filter: queryir.And{Predicates: []queryir.Predicate{
//	    queryir.Equals{Field: "book", Value: ir.String("EQ-1")},
//	  }},
//	}
//
// Backends (currently only querysql) compile a Select into their own query
// language. Identifiers are validated here so a backend never has to quote
// or escape untrusted names; literal values are always passed as parameters.
//
// SEALED INTERFACES:
//
// Predicate is a sealed interface using the marker method pattern. Only
// types in this package implement it, so backend compilers can use an
// exhaustive type switch.
//
// ROW ORDER:
//
// A Select carries no ordering. Backends must return rows in a stable
// storage order, because the left dataset's row order is significant for
// the reconciliation report.
package queryir
