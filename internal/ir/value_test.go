package ir

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealedInterface(t *testing.T) {
	values := []Value{Null{}, String("x"), Int(1), Bool(true), MustDecimal("1.5")}
	for _, v := range values {
		assert.NotEmpty(t, Kind(v))
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, "null", Kind(Null{}))
	assert.Equal(t, "null", Kind(nil))
	assert.Equal(t, "string", Kind(String("a")))
	assert.Equal(t, "int", Kind(Int(1)))
	assert.Equal(t, "bool", Kind(Bool(false)))
	assert.Equal(t, "decimal", Kind(MustDecimal("0.1")))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "", Format(Null{}))
	assert.Equal(t, "", Format(nil))
	assert.Equal(t, "T-1", Format(String("T-1")))
	assert.Equal(t, "-42", Format(Int(-42)))
	assert.Equal(t, "true", Format(Bool(true)))
	assert.Equal(t, "10.5", Format(MustDecimal("10.50")))
}

func TestAsDecimal(t *testing.T) {
	d, ok := AsDecimal(Int(-7))
	require.True(t, ok)
	assert.True(t, d.Equal(decimal.NewFromInt(-7)))

	d, ok = AsDecimal(MustDecimal("2.25"))
	require.True(t, ok)
	assert.Equal(t, "2.25", d.String())

	_, ok = AsDecimal(String("5"))
	assert.False(t, ok, "text is never coerced to a number")

	_, ok = AsDecimal(Null{})
	assert.False(t, ok)
}

func TestFromDecimal(t *testing.T) {
	assert.Equal(t, Int(100), FromDecimal(decimal.RequireFromString("100.00")))
	assert.Equal(t, "0.5", FromDecimal(decimal.RequireFromString("0.5")).(Decimal).String())

	huge := decimal.RequireFromString("123456789012345678901234567890")
	_, isDecimal := FromDecimal(huge).(Decimal)
	assert.True(t, isDecimal, "values outside int64 stay decimal")
}

func TestFromFloat(t *testing.T) {
	v, err := FromFloat(0.1)
	require.NoError(t, err)
	assert.Equal(t, "0.1", v.(Decimal).String(), "shortest representation, not the binary expansion")

	_, err = FromFloat(math.NaN())
	assert.Error(t, err)
	_, err = FromFloat(math.Inf(1))
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Int(1), Int(1)))
	assert.False(t, Equal(Int(1), String("1")))
	assert.True(t, Equal(MustDecimal("1.50"), MustDecimal("1.5")))
	assert.False(t, Equal(MustDecimal("1"), Int(1)), "kinds differ")
	assert.True(t, Equal(Null{}, nil))
	assert.False(t, Equal(Null{}, String("")))
}

func TestMarshalValue(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected string
	}{
		{"null", Null{}, "null"},
		{"string html", String("<x>"), `"<x>"`},
		{"int", Int(-3), "-3"},
		{"bool", Bool(true), "true"},
		{"decimal", MustDecimal("12.340"), "12.34"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := MarshalValue(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(b))
		})
	}
}

func TestUnmarshalValue(t *testing.T) {
	v, err := UnmarshalValue([]byte("42"))
	require.NoError(t, err)
	assert.Equal(t, Int(42), v)

	v, err = UnmarshalValue([]byte("42.125"))
	require.NoError(t, err)
	assert.Equal(t, "42.125", v.(Decimal).String())

	v, err = UnmarshalValue([]byte("null"))
	require.NoError(t, err)
	assert.Equal(t, Null{}, v)

	_, err = UnmarshalValue([]byte(`[1,2]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scalar")
}
