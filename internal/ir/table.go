package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Row maps column names to cell values.
// Use Table.Columns (not map iteration) for display order.
type Row map[string]Value

// Clone returns a shallow copy of the row. Values are immutable, so a
// shallow copy is enough to keep stage outputs independent of their inputs.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Get returns the value of a column, or Null when the column is absent.
func (r Row) Get(col string) Value {
	if v, ok := r[col]; ok && v != nil {
		return v
	}
	return Null{}
}

// SortedKeys returns the row's columns in RFC 8785 canonical order.
func (r Row) SortedKeys() []string {
	return sortedKeys(r)
}

// Table is a named, column-ordered set of rows.
//
// INVARIANTS:
//   - Columns holds each name at most once
//   - Column order is significant for display and preserved by every stage
//   - Rows may lack a listed column (read as Null) but carry no unlisted ones
type Table struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
	Rows    []Row    `json:"rows" yaml:"rows"`
}

// NewTable creates an empty table with the given columns.
// The columns slice is copied to prevent aliasing with the caller.
func NewTable(name string, columns ...string) *Table {
	return &Table{
		Name:    name,
		Columns: slices.Clone(columns),
		Rows:    []Row{},
	}
}

// HasColumn reports whether the table declares the column.
func (t *Table) HasColumn(col string) bool {
	return slices.Contains(t.Columns, col)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Append adds a row. Unknown columns are appended to Columns in
// sorted order so the table stays self-describing.
func (t *Table) Append(r Row) {
	for _, k := range r.SortedKeys() {
		if !t.HasColumn(k) {
			t.Columns = append(t.Columns, k)
		}
	}
	t.Rows = append(t.Rows, r)
}

// Clone returns a copy of the table whose rows and column list can be
// modified without affecting t.
func (t *Table) Clone() *Table {
	out := &Table{
		Name:    t.Name,
		Columns: slices.Clone(t.Columns),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// MarshalJSON writes the table with each row's keys in column order.
// Decimals keep their exact digits.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"name":`)
	name, err := json.Marshal(t.Name)
	if err != nil {
		return nil, err
	}
	buf.Write(name)

	buf.WriteString(`,"columns":`)
	cols := t.Columns
	if cols == nil {
		cols = []string{}
	}
	colBytes, err := json.Marshal(cols)
	if err != nil {
		return nil, err
	}
	buf.Write(colBytes)

	buf.WriteString(`,"rows":[`)
	for i, r := range t.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		rowBytes, err := MarshalRow(r, t.Columns)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		buf.Write(rowBytes)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a table written by MarshalJSON.
// Row key order is not significant; missing Columns are derived from rows.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name    string                       `json:"name"`
		Columns []string                     `json:"columns"`
		Rows    []map[string]json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := NewTable(raw.Name, raw.Columns...)
	for i, rr := range raw.Rows {
		row := make(Row, len(rr))
		for k, v := range rr {
			val, err := UnmarshalValue(v)
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", i, k, err)
			}
			row[k] = val
		}
		out.Append(row)
	}
	*t = *out
	return nil
}

// MarshalRow writes a row as a JSON object with keys in the given order.
// Keys present in the row but not in columns follow in canonical order.
func MarshalRow(r Row, columns []string) ([]byte, error) {
	order := slices.Clone(columns)
	for _, k := range r.SortedKeys() {
		if !slices.Contains(order, k) {
			order = append(order, k)
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, k := range order {
		v, ok := r[k]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
