package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recon/internal/compiler"
)

func TestValidate_RequiresArgs(t *testing.T) {
	_, _, err := execute(t, "validate")
	require.Error(t, err)
}

func TestValidate_ValidFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "recon.cue", "tolerance: 0.02\ndiff_filter: {min: -500, max: 500}\n")
	mixed := writeFile(t, dir, "mixed.yaml", mixedCase)
	errCase := writeFile(t, dir, "bad.yml", schemaErrorCase)

	out, _, err := execute(t, "validate", cfg, mixed, errCase)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+cfg)
	assert.Contains(t, out, "✓ "+mixed)
	assert.Contains(t, out, "✓ "+errCase, "a case expecting an engine error is still a valid case")
	assert.Contains(t, out, "✓ All files valid")
}

func TestValidate_InvalidFiles(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		file string
		body string
		code string
	}{
		{"unknown config field", "typo.cue", "tolerence: 0.1\n", ErrCodeCompile},
		{"negative tolerance", "neg.cue", "tolerance: -1\n", ErrCodeCompile},
		{"unknown policy", "policy.cue", "duplicate_policy: \"last\"\n", ErrCodeCompile},
		{"inverted range", "range.cue", "diff_filter: {min: 10, max: 1}\n", compiler.ErrRangeInverted},
		{"case missing description", "nodesc.yaml", "name: x\nleft:\n  rows:\n    - {trade_id: A, version: 1, quantity: 1}\nright:\n  rows:\n    - {trade_id: A, version: 1, quantity: 1}\n", ErrCodeCase},
		{"case inverted range", "caserange.yaml", mixedCase + "config:\n  diff_filter: {min: 10, max: 1}\n", compiler.ErrRangeInverted},
		{"unsupported extension", "notes.txt", "hello", ErrCodeUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.body)

			out, _, err := execute(t, "validate", path)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, out, "✗ "+path)
			assert.Contains(t, out, tt.code)
			assert.NotContains(t, out, "All files valid")
		})
	}
}

func TestValidate_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.cue")

	out, _, err := execute(t, "validate", missing)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeUnreadable)
}

func TestValidate_CompileErrorKeepsLine(t *testing.T) {
	path := writeFile(t, t.TempDir(), "typo.cue", "// tolerance\n\ntolerence: 1\n")

	out, _, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "line 3:")
}

func TestValidate_JSON(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.cue", "tolerance: 0.1\n")
	bad := writeFile(t, dir, "bad.cue", "diff_filter: {min: 10, max: 1}\n")

	out, _, err := execute(t, "validate", good, bad, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, compiler.ErrRangeInverted, resp.Error.Code)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Files, 2)
	assert.True(t, resp.Data.Files[0].Valid)
	assert.Equal(t, "config", resp.Data.Files[0].Kind)
	assert.False(t, resp.Data.Files[1].Valid)
}
