package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTableYAMLPreservesColumnOrder(t *testing.T) {
	doc := `
rows:
  - {trade_id: T1, version: 1, quantity: 100, book: EQ}
  - {trade_id: T2, version: 2, quantity: 10.50, desk: NY}
`
	var tbl Table
	require.NoError(t, yaml.Unmarshal([]byte(doc), &tbl))

	assert.Equal(t, []string{"trade_id", "version", "quantity", "book", "desk"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, String("T1"), tbl.Rows[0]["trade_id"])
	assert.Equal(t, Int(100), tbl.Rows[0]["quantity"])
	assert.Equal(t, "10.5", tbl.Rows[1]["quantity"].(Decimal).String())
}

func TestTableYAMLExactDecimals(t *testing.T) {
	// 0.1 + 0.2 style literals must not pass through float64
	var tbl Table
	require.NoError(t, yaml.Unmarshal([]byte("rows: [{q: 0.1}, {q: 0.2}]"), &tbl))

	a, _ := AsDecimal(tbl.Rows[0]["q"])
	b, _ := AsDecimal(tbl.Rows[1]["q"])
	assert.Equal(t, "0.3", a.Add(b).String())
}

func TestTableYAMLScalarKinds(t *testing.T) {
	doc := `
columns: [a, b, c, d]
rows:
  - {a: "100", b: ~, c: true, d: 99999999999999999999}
`
	var tbl Table
	require.NoError(t, yaml.Unmarshal([]byte(doc), &tbl))

	row := tbl.Rows[0]
	assert.Equal(t, String("100"), row["a"], "quoted numbers stay text")
	assert.Equal(t, Null{}, row["b"])
	assert.Equal(t, Bool(true), row["c"])
	assert.Equal(t, "99999999999999999999", row["d"].(Decimal).String())
}

func TestTableYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"nested cell", "rows: [{a: [1, 2]}]", "must be a scalar"},
		{"unknown field", "rowz: []", "field rowz not found"},
		{"undeclared column", "columns: [a]\nrows: [{a: 1, b: 2}]", `column "b" not in declared columns`},
		{"duplicate declared column", "columns: [a, a]", `duplicate column "a"`},
		{"infinite", "rows: [{q: .inf}]", "no exact decimal form"},
		{"row not mapping", "rows: [1]", "row must be a mapping"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tbl Table
			err := yaml.Unmarshal([]byte(tt.doc), &tbl)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTableJSONRoundTripKeepsColumnOrder(t *testing.T) {
	tbl := NewTable("left", "trade_id", "version", "quantity")
	tbl.Append(Row{"trade_id": String("T1"), "version": Int(1), "quantity": MustDecimal("2.50")})

	data, err := json.Marshal(tbl)
	require.NoError(t, err)
	assert.Equal(t,
		`{"name":"left","columns":["trade_id","version","quantity"],"rows":[{"trade_id":"T1","version":1,"quantity":2.5}]}`,
		string(data))

	var back Table
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, tbl.Columns, back.Columns)
	assert.True(t, Equal(tbl.Rows[0]["quantity"], back.Rows[0]["quantity"]))
}

func TestTableCloneIsIndependent(t *testing.T) {
	tbl := NewTable("t", "a")
	tbl.Append(Row{"a": Int(1)})

	cp := tbl.Clone()
	cp.Rows[0]["a"] = Int(2)
	cp.Columns[0] = "z"

	assert.Equal(t, Int(1), tbl.Rows[0]["a"])
	assert.Equal(t, "a", tbl.Columns[0])
}

func TestRowGetMissingIsNull(t *testing.T) {
	assert.Equal(t, Null{}, Row{}.Get("quantity"))
}
