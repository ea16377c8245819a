package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/recon/internal/store"
)

// TableInfo describes one dataset table.
type TableInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	var database string

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the dataset tables in a database",
		Long: `List the tables of a SQLite database that can be passed to
--left-table and --right-table, with their columns.

Example:
  recon tables --db ./trades.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListTables(rootOpts, database, cmd)
		},
	}

	cmd.Flags().StringVar(&database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runListTables(opts *RootOptions, database string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.OpenReadOnly(database)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	names, err := st.Tables(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list tables", err)
	}

	tables := make([]TableInfo, 0, len(names))
	for _, name := range names {
		cols, err := st.Columns(ctx, name)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read columns", err)
		}
		tables = append(tables, TableInfo{Name: name, Columns: cols})
	}

	if formatter.IsJSON() {
		return formatter.Success(tables)
	}
	if len(tables) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tables found.")
		return nil
	}
	for _, t := range tables {
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", t.Name, strings.Join(t.Columns, ", "))
	}
	return nil
}
