package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommand_MissingArgs(t *testing.T) {
	_, _, err := execute(t, "test")
	require.Error(t, err)
}

func TestTestCommand_MissingDirectory(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "cases directory not found")
}

func TestTestCommand_UpdateRequiresGolden(t *testing.T) {
	_, _, err := execute(t, "test", t.TempDir(), "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "README.md", "not a case")

	out, _, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No cases found.")
}

func TestTestCommand_AllPass(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mixed.yaml", mixedCase)
	writeFile(t, dir, "schema.yml", schemaErrorCase)

	out, _, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ mixed")
	assert.Contains(t, out, "✓ missing_version")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All cases passed")
}

func TestTestCommand_Failure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mixed.yaml", mixedCase)
	writeFile(t, dir, "wrong.yaml", failingCase)

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_expectation")
	assert.Contains(t, out, "breaks")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommand_UnloadableCase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: [unterminated\n")

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "load error")
}

func TestTestCommand_Filter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mixed.yaml", mixedCase)
	writeFile(t, dir, "wrong.yaml", failingCase)

	out, _, err := execute(t, "test", dir, "--filter", "mix*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
	assert.NotContains(t, out, "wrong_expectation")

	_, _, err = execute(t, "test", dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_Golden(t *testing.T) {
	dir := t.TempDir()
	casesDir := filepath.Join(dir, "cases")
	goldenDir := filepath.Join(dir, "golden")
	writeFile(t, casesDir, "mixed.yaml", mixedCase)
	writeFile(t, casesDir, "schema.yaml", schemaErrorCase)

	_, _, err := execute(t, "test", casesDir, "--golden", goldenDir, "--update")
	require.NoError(t, err)

	goldenPath := filepath.Join(goldenDir, "mixed.golden")
	first, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(first), `"-50 to 0"`)
	assert.NoFileExists(t, filepath.Join(goldenDir, "missing_version.golden"), "error cases have no report")

	// A second run reproduces the same snapshot.
	_, _, err = execute(t, "test", casesDir, "--golden", goldenDir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"stale": true}`), 0o644))
	out, _, err := execute(t, "test", casesDir, "--golden", goldenDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mixed.yaml", mixedCase)
	writeFile(t, dir, "wrong.yaml", failingCase)

	out, _, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Cases, 2)
	assert.Equal(t, "mixed", resp.Data.Cases[0].Name)
	assert.True(t, resp.Data.Cases[0].Pass)
	assert.NotEmpty(t, resp.Data.Cases[1].Errors)
}

func TestTestCommand_HarnessCases(t *testing.T) {
	out, _, err := execute(t, "test", filepath.Join("..", "harness", "testdata", "cases"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "12 passed, 0 failed, 12 total")
}
