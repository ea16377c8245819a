package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/roach88/recon/internal/compiler"
	"github.com/roach88/recon/internal/engine"
	"github.com/roach88/recon/internal/harness"
	"github.com/roach88/recon/internal/ir"
	"github.com/roach88/recon/internal/queryir"
	"github.com/roach88/recon/internal/store"
)

// SourceOptions selects the two datasets and the config for a run.
//
// Datasets come either from a case file (--case) or from SQLite tables
// (--db, or --left-db/--right-db for separate files). The config starts
// from the case's config or the defaults, is replaced by --config when
// given, and finally takes the individual override flags.
type SourceOptions struct {
	CaseFile string

	Database   string
	LeftDB     string
	RightDB    string
	LeftTable  string
	RightTable string
	LeftWhere  []string
	RightWhere []string

	ConfigFile      string
	Tolerance       string
	DiffMin         string
	DiffMax         string
	Slider          bool
	DuplicatePolicy string

	flags *pflag.FlagSet
}

// Datasets is a loaded left/right pair and its resolved config.
type Datasets struct {
	Left   *ir.Table
	Right  *ir.Table
	Config engine.Config
	// Origin describes where the tables came from, for log lines.
	Origin string
}

// AddFlags registers the source and config flags on fs.
func (o *SourceOptions) AddFlags(fs *pflag.FlagSet) {
	o.flags = fs
	fs.StringVar(&o.CaseFile, "case", "", "read both datasets (and their config) from a case file")
	fs.StringVar(&o.Database, "db", "", "SQLite database holding both datasets")
	fs.StringVar(&o.LeftDB, "left-db", "", "SQLite database holding the left dataset (default --db)")
	fs.StringVar(&o.RightDB, "right-db", "", "SQLite database holding the right dataset (default --db)")
	fs.StringVar(&o.LeftTable, "left-table", engine.DatasetLeft, "left table name")
	fs.StringVar(&o.RightTable, "right-table", engine.DatasetRight, "right table name")
	fs.StringArrayVar(&o.LeftWhere, "left-where", nil, "left row filter field=value (repeatable, ANDed)")
	fs.StringArrayVar(&o.RightWhere, "right-where", nil, "right row filter field=value (repeatable, ANDed)")

	fs.StringVar(&o.ConfigFile, "config", "", "CUE config file")
	fs.StringVar(&o.Tolerance, "tolerance", "", "relative tolerance (default 0.05)")
	fs.StringVar(&o.DiffMin, "diff-min", "", `lower bound of the break filter ("none" opens it)`)
	fs.StringVar(&o.DiffMax, "diff-max", "", `upper bound of the break filter ("none" opens it)`)
	fs.BoolVar(&o.Slider, "slider", false, "filter breaks to the [0, 1000] slider range")
	fs.StringVar(&o.DuplicatePolicy, "duplicate-policy", "", "duplicate left key policy: warn, reject or first")
}

// Overrides collects the config flags that were set.
func (o *SourceOptions) Overrides() compiler.Overrides {
	var ov compiler.Overrides
	if o.changed("tolerance") {
		ov.Tolerance = &o.Tolerance
	}
	if o.changed("slider") {
		ov.Slider = &o.Slider
	}
	if o.changed("diff-min") {
		ov.Min = &o.DiffMin
	}
	if o.changed("diff-max") {
		ov.Max = &o.DiffMax
	}
	if o.changed("duplicate-policy") {
		ov.DuplicatePolicy = &o.DuplicatePolicy
	}
	return ov
}

func (o *SourceOptions) changed(name string) bool {
	return o.flags != nil && o.flags.Changed(name)
}

// Load reads both datasets and resolves the config. Failures are
// returned as ExitCommandError.
func (o *SourceOptions) Load(ctx context.Context) (*Datasets, error) {
	var ds *Datasets
	var err error
	switch {
	case o.CaseFile != "" && (o.Database != "" || o.LeftDB != "" || o.RightDB != ""):
		return nil, NewExitError(ExitCommandError, "--case cannot be combined with --db, --left-db or --right-db")
	case o.CaseFile != "":
		ds, err = o.loadCase()
	default:
		ds, err = o.loadDatabases(ctx)
	}
	if err != nil {
		return nil, err
	}

	if o.ConfigFile != "" {
		cfg, err := compiler.LoadConfigFile(o.ConfigFile)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		ds.Config = *cfg
	}

	ds.Config, err = compiler.ApplyOverrides(ds.Config, o.Overrides())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config flag", err)
	}
	if errs := compiler.Validate(ds.Config); len(errs) > 0 {
		return nil, WrapExitError(ExitCommandError, "invalid config", errs[0])
	}
	return ds, nil
}

func (o *SourceOptions) loadCase() (*Datasets, error) {
	c, err := harness.LoadCase(o.CaseFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load case", err)
	}
	cfg, err := c.EngineConfig(filepath.Dir(o.CaseFile))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load case config", err)
	}
	return &Datasets{Left: c.Left, Right: c.Right, Config: cfg, Origin: o.CaseFile}, nil
}

func (o *SourceOptions) loadDatabases(ctx context.Context) (*Datasets, error) {
	leftPath := firstNonEmpty(o.LeftDB, o.Database)
	rightPath := firstNonEmpty(o.RightDB, o.Database)
	if leftPath == "" || rightPath == "" {
		return nil, NewExitError(ExitCommandError, "no datasets: set --case, or --db (or both --left-db and --right-db)")
	}

	leftStore, err := store.OpenReadOnly(leftPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open left database", err)
	}
	defer leftStore.Close()

	rightStore := leftStore
	if rightPath != leftPath {
		rightStore, err = store.OpenReadOnly(rightPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open right database", err)
		}
		defer rightStore.Close()
	}

	left, err := loadSide(ctx, leftStore, engine.DatasetLeft, o.LeftTable, o.LeftWhere)
	if err != nil {
		return nil, err
	}
	right, err := loadSide(ctx, rightStore, engine.DatasetRight, o.RightTable, o.RightWhere)
	if err != nil {
		return nil, err
	}

	origin := leftPath
	if rightPath != leftPath {
		origin = leftPath + " + " + rightPath
	}
	return &Datasets{Left: left, Right: right, Config: engine.DefaultConfig(), Origin: origin}, nil
}

func loadSide(ctx context.Context, st *store.Store, side, table string, where []string) (*ir.Table, error) {
	filter, err := queryir.ParseFilter(where)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --%s-where", side), err)
	}
	t, err := st.LoadTable(ctx, side, queryir.All(table).Where(filter))
	if err != nil {
		if errors.Is(err, store.ErrTableNotFound) {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("%s table not found", side), err)
		}
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s table", side), err)
	}
	return t, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
