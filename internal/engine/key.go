package engine

import (
	"fmt"

	"github.com/roach88/recon/internal/ir"
)

// Column names with fixed meaning in inputs and outputs.
const (
	ColTradeID            = "trade_id"
	ColVersion            = "version"
	ColQuantity           = "quantity"
	ColQuantityLeft       = "quantity_left"
	ColQuantityRight      = "quantity_right"
	ColQuantityDifference = "quantity_difference"
)

// Dataset names used in errors and warnings.
const (
	DatasetLeft  = "left"
	DatasetRight = "right"
)

// requiredColumns must be present on both inputs.
var requiredColumns = []string{ColTradeID, ColVersion, ColQuantity}

// reservedColumns are produced by the matcher and break detector; a left
// input carrying one of them would be silently overwritten.
var reservedColumns = []string{ColQuantityLeft, ColQuantityRight, ColQuantityDifference}

// Key is the composite join key (trade_id, version).
//
// Two keys are equal iff their canonical encodings are equal: String("1")
// and Int(1) are different keys, and strings compare after NFC normalization.
type Key struct {
	TradeID ir.Value
	Version ir.Value
	id      string
}

// NewKey builds a key from its two components.
// Both must be String or Int; anything else is a type error.
func NewKey(tradeID, version ir.Value) (Key, error) {
	if !isKeyKind(tradeID) {
		return Key{}, fmt.Errorf("trade_id must be string or int, got %s", ir.Kind(tradeID))
	}
	if !isKeyKind(version) {
		return Key{}, fmt.Errorf("version must be string or int, got %s", ir.Kind(version))
	}
	canonical, err := ir.MarshalCanonical([]ir.Value{tradeID, version})
	if err != nil {
		return Key{}, fmt.Errorf("key: %w", err)
	}
	return Key{TradeID: tradeID, Version: version, id: string(canonical)}, nil
}

// ID returns the canonical identity of the key, e.g. ["T1",1].
func (k Key) ID() string {
	return k.id
}

// String returns the key for display, e.g. (T1, 1).
func (k Key) String() string {
	return fmt.Sprintf("(%s, %s)", displayValue(k.TradeID), displayValue(k.Version))
}

func isKeyKind(v ir.Value) bool {
	switch v.(type) {
	case ir.String, ir.Int:
		return true
	}
	return false
}

func displayValue(v ir.Value) string {
	switch val := v.(type) {
	case ir.String:
		return string(val)
	case ir.Int:
		return fmt.Sprintf("%d", int64(val))
	default:
		b, err := ir.MarshalValue(v)
		if err != nil {
			return "?"
		}
		return string(b)
	}
}

// keyOf extracts and validates the key of a row.
func keyOf(dataset string, idx int, row ir.Row) (Key, error) {
	tradeID, version := row.Get(ColTradeID), row.Get(ColVersion)
	if !isKeyKind(tradeID) {
		return Key{}, NewTypeError(dataset, ColTradeID, idx, ir.Kind(tradeID), "string or int")
	}
	if !isKeyKind(version) {
		return Key{}, NewTypeError(dataset, ColVersion, idx, ir.Kind(version), "string or int")
	}
	return NewKey(tradeID, version)
}

// quantityOf validates that a cell is numeric. No coercion: text, bool
// and null quantities are type errors.
func quantityOf(dataset, column string, idx int, row ir.Row) (ir.Value, error) {
	q := row.Get(column)
	if !ir.IsNumeric(q) {
		return nil, NewTypeError(dataset, column, idx, ir.Kind(q), "int or decimal")
	}
	return q, nil
}

// checkSchema verifies the required columns, and for the left side that
// no reserved output column is present.
func checkSchema(dataset string, t *ir.Table, rejectReserved bool) error {
	if t == nil {
		return NewSchemaError(dataset, "", "dataset is missing")
	}
	for _, col := range requiredColumns {
		if !t.HasColumn(col) {
			return NewSchemaError(dataset, col, fmt.Sprintf("required column %q is missing", col))
		}
	}
	if rejectReserved {
		for _, col := range reservedColumns {
			if t.HasColumn(col) {
				return NewSchemaError(dataset, col, fmt.Sprintf("column %q is reserved for reconciliation output", col))
			}
		}
	}
	return nil
}
