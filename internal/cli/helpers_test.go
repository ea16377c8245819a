package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/recon/internal/store"
	"github.com/roach88/recon/internal/testutil"
)

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const mixedCase = `name: mixed
description: aggregation, one-sided rows and a negative break
left:
  rows:
    - {trade_id: A, version: 1, quantity: 100}
    - {trade_id: B, version: 1, quantity: 50}
right:
  rows:
    - {trade_id: A, version: 1, quantity: 60}
    - {trade_id: A, version: 1, quantity: 60}
    - {trade_id: C, version: 1, quantity: 10}
expect:
  counts: {left_only: 1, right_only: 1, matched: 1, breaks: 1}
  summary: {"-50 to 0": 1}
`

const schemaErrorCase = `name: missing_version
description: no version column on the left
left:
  rows:
    - {trade_id: 1, quantity: 10}
right:
  rows:
    - {trade_id: 1, version: 1, quantity: 10}
expect:
  error: SCHEMA_ERROR
`

const failingCase = `name: wrong_expectation
description: expects a break that does not exist
left:
  rows:
    - {trade_id: A, version: 1, quantity: 100}
right:
  rows:
    - {trade_id: A, version: 1, quantity: 100}
expect:
  counts: {breaks: 1}
`

// createTradesDB writes a database with two books of trades:
//
//	booked:    A/1=100 (EQ), B/1=200 (EQ), X/1=5 (FX), L/1=7 (EQ)
//	confirmed: A/1=101 (EQ), B/1=100 (EQ), X/1=50 (FX), R/1=9 (EQ)
func createTradesDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trades.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	booked := testutil.Trades("booked",
		testutil.With(testutil.Trade("A", 1, 100), "book", "EQ"),
		testutil.With(testutil.Trade("B", 1, 200), "book", "EQ"),
		testutil.With(testutil.Trade("X", 1, 5), "book", "FX"),
		testutil.With(testutil.Trade("L", 1, 7), "book", "EQ"),
	)
	confirmed := testutil.Trades("confirmed",
		testutil.With(testutil.Trade("A", 1, 101), "book", "EQ"),
		testutil.With(testutil.Trade("B", 1, 100), "book", "EQ"),
		testutil.With(testutil.Trade("X", 1, 50), "book", "FX"),
		testutil.With(testutil.Trade("R", 1, 9), "book", "EQ"),
	)

	ctx := context.Background()
	require.NoError(t, st.SaveTable(ctx, booked))
	require.NoError(t, st.SaveTable(ctx, confirmed))
	return path
}
