package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recon/internal/engine"
	"github.com/roach88/recon/internal/ir"
)

func mustParse(t *testing.T, src string) *Case {
	t.Helper()
	c, err := ParseCase([]byte(src))
	require.NoError(t, err)
	return c
}

func TestParseCase_Full(t *testing.T) {
	c := mustParse(t, `
name: full
description: every field set
config:
  tolerance: 0.025
  duplicate_policy: first
  diff_filter: {min: -10.5}
left:
  rows:
    - {trade_id: T1, version: 1, quantity: 100, book: EQ}
right:
  name: fills
  rows:
    - {trade_id: T1, version: 1, quantity: 99.5}
expect:
  counts: {matched: 1}
  left_only: []
  summary: {"0 to 50": 0}
  warnings: []
`)

	assert.Equal(t, "full", c.Name)
	assert.Equal(t, "left", c.Left.Name, "unnamed datasets take their side as name")
	assert.Equal(t, "fills", c.Right.Name)
	assert.Equal(t, []string{"trade_id", "version", "quantity", "book"}, c.Left.Columns)
	assert.True(t, ir.Equal(ir.MustDecimal("99.5"), c.Right.Rows[0]["quantity"]))

	require.NotNil(t, c.Expect.Counts)
	assert.Nil(t, c.Expect.Counts.Breaks)
	assert.Equal(t, 1, *c.Expect.Counts.Matched)
	assert.NotNil(t, c.Expect.LeftOnly, "an empty list is an expectation")
	assert.Empty(t, c.Expect.LeftOnly)
	assert.Nil(t, c.Expect.Breaks, "an omitted list is not")
	assert.NotNil(t, c.Expect.Warnings)

	cfg, err := c.EngineConfig("")
	require.NoError(t, err)
	assert.Equal(t, "0.025", cfg.Tolerance.String())
	assert.Equal(t, engine.DuplicateFirst, cfg.DuplicatePolicy)
	assert.Equal(t, "[-10.5, +inf)", cfg.DiffRange.String())
}

func TestEngineConfig_Defaults(t *testing.T) {
	c := mustParse(t, `
name: defaults
description: no config
left: {columns: [trade_id, version, quantity]}
right: {columns: [trade_id, version, quantity]}
`)
	cfg, err := c.EngineConfig("")
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultConfig(), cfg)
}

func TestEngineConfig_File(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recon.cue"), []byte(`tolerance: 0.2`), 0o644))

	c := mustParse(t, `
name: file
description: config from CUE
config_file: recon.cue
left: {columns: [trade_id, version, quantity]}
right: {columns: [trade_id, version, quantity]}
`)
	cfg, err := c.EngineConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "0.2", cfg.Tolerance.String())
}

func TestParseCase_Invalid(t *testing.T) {
	base := "name: x\ndescription: y\nleft: {columns: [trade_id, version, quantity]}\nright: {columns: [trade_id, version, quantity]}\n"
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing name", "description: y\nleft: {}\nright: {}\n", "name is required"},
		{"missing description", "name: x\nleft: {}\nright: {}\n", "description is required"},
		{"missing left", "name: x\ndescription: y\nright: {}\n", "left dataset is required"},
		{"missing right", "name: x\ndescription: y\nleft: {}\n", "right dataset is required"},
		{"unknown field", base + "expectations: {}\n", "field expectations not found"},
		{"unknown table field", "name: x\ndescription: y\nleft: {colums: [a]}\nright: {}\n", "field colums not found in table"},
		{"both configs", base + "config: {tolerance: 0.1}\nconfig_file: a.cue\n", "mutually exclusive"},
		{"bad error code", base + "expect: {error: OOPS}\n", `unknown error code "OOPS"`},
		{"bad bucket", base + "expect: {summary: {\">1000\": 1}}\n", `unknown bucket ">1000"`},
		{"bad warning", base + "expect: {warnings: [LOUD]}\n", `unknown warning code "LOUD"`},
		{"negative count", base + "expect: {counts: {breaks: -1}}\n", "counts.breaks must be non-negative"},
		{"text tolerance", base + "config: {tolerance: five}\n", "expected a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCase([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadCases_Filter(t *testing.T) {
	cases, paths, err := LoadCases(casesDir, "*duplicate*")
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "duplicate_left_warn", cases[0].Name)
	assert.Equal(t, "duplicate_left_reject", cases[1].Name)
	assert.Equal(t, "07_duplicate_left_warn.yaml", filepath.Base(paths[0]))

	_, _, err = LoadCases(casesDir, "[")
	assert.Error(t, err)
}

func TestLoadCase_MissingFile(t *testing.T) {
	_, err := LoadCase(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read case file")
}
