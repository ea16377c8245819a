package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"github.com/shopspring/decimal"
)

// Value is a sealed interface representing a single table cell.
// Only Null, String, Int, Bool and Decimal implement this.
// NO float type - binary floats make tolerance comparisons and sums
// inexact, so every non-integer number is carried as a Decimal.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null represents a missing cell (SQL NULL, YAML ~).
type Null struct{}

func (Null) irValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a text cell.
type String string

func (String) irValue() {}

// Int represents an integer cell.
// Always int64, never float64.
type Int int64

func (Int) irValue() {}

// Bool represents a boolean cell.
type Bool bool

func (Bool) irValue() {}

// Decimal represents an exact, arbitrary-precision number.
type Decimal struct {
	decimal.Decimal
}

func (Decimal) irValue() {}

// NewDecimal wraps a decimal.Decimal as a cell value.
func NewDecimal(d decimal.Decimal) Decimal {
	return Decimal{Decimal: d}
}

// MustDecimal parses a decimal literal, panicking on malformed input.
// Use only in tests or with constant literals.
func MustDecimal(s string) Decimal {
	return Decimal{Decimal: decimal.RequireFromString(s)}
}

// Kind returns the lower-case kind name of a value, used in error messages.
func Kind(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case Decimal:
		return "decimal"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Format renders a value for human-readable tables: NULL as an empty
// string, decimals without trailing zeros.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return ""
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Bool:
		return strconv.FormatBool(bool(val))
	case Decimal:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// IsNumeric reports whether v is an Int or a Decimal.
func IsNumeric(v Value) bool {
	switch v.(type) {
	case Int, Decimal:
		return true
	}
	return false
}

// AsDecimal returns the exact decimal form of a numeric value.
// The second result is false for non-numeric kinds.
func AsDecimal(v Value) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case Int:
		return decimal.NewFromInt(int64(val)), true
	case Decimal:
		return val.Decimal, true
	default:
		return decimal.Zero, false
	}
}

// FromDecimal returns the narrowest value representing d: an Int when
// d is integral and fits in int64, otherwise a Decimal.
func FromDecimal(d decimal.Decimal) Value {
	if d.IsInteger() {
		bi := d.BigInt()
		if bi.IsInt64() {
			return Int(bi.Int64())
		}
	}
	return Decimal{Decimal: d}
}

// FromFloat converts a binary float read from an external source into an
// exact value using its shortest round-tripping decimal representation.
// NaN and infinities have no decimal form and are rejected.
func FromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number %v cannot be represented", f)
	}
	return Decimal{Decimal: decimal.NewFromFloat(f)}, nil
}

// MarshalValue marshals a Value to JSON bytes.
// Decimals are written as JSON numbers without trailing zeros.
// NOTE: This is NOT canonical marshaling. Use MarshalCanonical for hashing.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	case Bool:
		return json.Marshal(bool(val))
	case Decimal:
		return []byte(val.String()), nil
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// UnmarshalValue decodes a single JSON scalar into a Value.
// Numbers with a fraction or exponent become Decimals, never floats.
// Arrays and objects are rejected: cells are scalar.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return convertJSON(raw)
}

func convertJSON(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return Int(n), nil
		}
		d, err := decimal.NewFromString(string(val))
		if err != nil {
			return nil, fmt.Errorf("invalid number %s: %w", val, err)
		}
		return Decimal{Decimal: d}, nil
	default:
		return nil, fmt.Errorf("unsupported cell type: %T (cells must be scalar)", v)
	}
}

// Equal reports whether two values are identical in kind and content.
// Decimals compare numerically (1.50 equals 1.5); Int(1) never equals String("1").
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil, Null:
		switch b.(type) {
		case nil, Null:
			return true
		}
		return false
	case Decimal:
		bv, ok := b.(Decimal)
		return ok && av.Equal(bv.Decimal)
	default:
		return a == b
	}
}

// sortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	// If all compared units are equal, shorter string comes first
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
