// Package store provides the SQLite dataset source.
//
// Datasets are ordinary SQLite tables. LoadTable materializes one as an
// ir.Table using a queryir.Select compiled by querysql:
//
//	INTEGER   → ir.Int
//	REAL      → ir.Decimal (shortest round-tripping representation)
//	TEXT/BLOB → ir.String
//	NULL      → ir.Null
//
// No other coercion happens here: a quantity stored as TEXT is loaded as a
// string and rejected by the engine with TYPE_KIND.
//
// # Row Order
//
// Every load is ordered by rowid, so rows come back in insertion order and
// repeated loads of an unchanged table are identical.
//
// # Writing
//
// SaveTable writes an ir.Table as a new SQLite table, so fixtures and
// extracts can be prepared with the same value mapping LoadTable reads.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - read-only stores open with mode=ro and query_only
package store
