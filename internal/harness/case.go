package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/roach88/recon/internal/compiler"
	"github.com/roach88/recon/internal/engine"
	"github.com/roach88/recon/internal/ir"
)

// Case defines one reconciliation scenario and its expected report.
type Case struct {
	// Name uniquely identifies this case; it also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this case validates.
	Description string `yaml:"description"`

	// Config overrides the default engine config. Omitted fields keep
	// their defaults.
	Config *ConfigSpec `yaml:"config,omitempty"`

	// ConfigFile is a CUE config path, relative to the case file.
	// Mutually exclusive with Config.
	ConfigFile string `yaml:"config_file,omitempty"`

	Left  *ir.Table `yaml:"left"`
	Right *ir.Table `yaml:"right"`

	Expect Expect `yaml:"expect"`
}

// ConfigSpec is the inline form of an engine config.
type ConfigSpec struct {
	Tolerance       *Number    `yaml:"tolerance,omitempty"`
	DiffFilter      *RangeSpec `yaml:"diff_filter,omitempty"`
	DuplicatePolicy string     `yaml:"duplicate_policy,omitempty"`
}

// RangeSpec is an inline diff filter; an omitted bound is open.
type RangeSpec struct {
	Min *Number `yaml:"min,omitempty"`
	Max *Number `yaml:"max,omitempty"`
}

// Number is an exact decimal decoded from a YAML number literal.
type Number struct {
	decimal.Decimal
}

// UnmarshalYAML decodes the literal text without going through float64.
func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	v, err := ir.ValueFromYAML(node)
	if err != nil {
		return err
	}
	d, ok := ir.AsDecimal(v)
	if !ok {
		return fmt.Errorf("line %d: expected a number, got %s", node.Line, ir.Kind(v))
	}
	n.Decimal = d
	return nil
}

// Expect lists the checks applied to the report. Nil fields are skipped.
type Expect struct {
	Error     string         `yaml:"error,omitempty"`
	Counts    *Counts        `yaml:"counts,omitempty"`
	LeftOnly  []ir.Row       `yaml:"left_only,omitempty"`
	RightOnly []ir.Row       `yaml:"right_only,omitempty"`
	Breaks    []ir.Row       `yaml:"breaks,omitempty"`
	Summary   map[string]int `yaml:"summary,omitempty"`
	Warnings  []string       `yaml:"warnings,omitempty"`
}

// Counts are exact output sizes. Nil fields are skipped.
type Counts struct {
	LeftOnly  *int `yaml:"left_only,omitempty"`
	RightOnly *int `yaml:"right_only,omitempty"`
	Matched   *int `yaml:"matched,omitempty"`
	Breaks    *int `yaml:"breaks,omitempty"`
}

// EngineConfig resolves the case's config. baseDir anchors ConfigFile.
func (c *Case) EngineConfig(baseDir string) (engine.Config, error) {
	if c.ConfigFile != "" {
		path := c.ConfigFile
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		cfg, err := compiler.LoadConfigFile(path)
		if err != nil {
			return engine.Config{}, fmt.Errorf("config_file: %w", err)
		}
		return *cfg, nil
	}

	cfg := engine.DefaultConfig()
	if c.Config == nil {
		return cfg, nil
	}
	if c.Config.Tolerance != nil {
		cfg.Tolerance = c.Config.Tolerance.Decimal
	}
	if c.Config.DuplicatePolicy != "" {
		cfg.DuplicatePolicy = engine.DuplicatePolicy(c.Config.DuplicatePolicy)
	}
	if f := c.Config.DiffFilter; f != nil {
		if f.Min != nil {
			lo := f.Min.Decimal
			cfg.DiffRange.Min = &lo
		}
		if f.Max != nil {
			hi := f.Max.Decimal
			cfg.DiffRange.Max = &hi
		}
	}
	return cfg, nil
}

// LoadCase reads and parses a case YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadCase(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}
	return ParseCase(data)
}

// ParseCase parses case YAML with strict field validation.
func ParseCase(data []byte) (*Case, error) {
	var c Case
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateCase(&c); err != nil {
		return nil, fmt.Errorf("invalid case: %w", err)
	}

	if c.Left.Name == "" {
		c.Left.Name = engine.DatasetLeft
	}
	if c.Right.Name == "" {
		c.Right.Name = engine.DatasetRight
	}
	return &c, nil
}

// LoadCases loads every *.yaml and *.yml file in dir, sorted by file name.
// A pattern other than "" keeps only files whose base name matches it.
func LoadCases(dir, pattern string) ([]*Case, []string, error) {
	var paths []string
	for _, glob := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, glob))
		if err != nil {
			return nil, nil, err
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)

	var cases []*Case
	var kept []string
	for _, p := range paths {
		if pattern != "" {
			ok, err := filepath.Match(pattern, filepath.Base(p))
			if err != nil {
				return nil, nil, fmt.Errorf("filter %q: %w", pattern, err)
			}
			if !ok {
				continue
			}
		}
		c, err := LoadCase(p)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		cases = append(cases, c)
		kept = append(kept, p)
	}
	return cases, kept, nil
}

// validateCase checks that required fields are present and valid.
func validateCase(c *Case) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Description == "" {
		return fmt.Errorf("description is required")
	}
	if c.Left == nil {
		return fmt.Errorf("left dataset is required")
	}
	if c.Right == nil {
		return fmt.Errorf("right dataset is required")
	}
	if c.Config != nil && c.ConfigFile != "" {
		return fmt.Errorf("config and config_file are mutually exclusive")
	}

	if c.Expect.Error != "" {
		switch engine.ErrorCode(c.Expect.Error) {
		case engine.ErrCodeSchema, engine.ErrCodeTypeKind, engine.ErrCodeDuplicateKey, engine.ErrCodeInvalidConfig:
		default:
			return fmt.Errorf("expect.error: unknown error code %q", c.Expect.Error)
		}
	}
	for label := range c.Expect.Summary {
		if !slices.Contains(engine.BucketLabels, label) {
			return fmt.Errorf("expect.summary: unknown bucket %q", label)
		}
	}
	for i, code := range c.Expect.Warnings {
		switch engine.WarningCode(code) {
		case engine.WarnDuplicateKey, engine.WarnDivisionEdgeCase:
		default:
			return fmt.Errorf("expect.warnings[%d]: unknown warning code %q", i, code)
		}
	}
	if n := c.Expect.Counts; n != nil {
		for name, v := range map[string]*int{
			"left_only": n.LeftOnly, "right_only": n.RightOnly,
			"matched": n.Matched, "breaks": n.Breaks,
		} {
			if v != nil && *v < 0 {
				return fmt.Errorf("expect.counts.%s must be non-negative", name)
			}
		}
	}
	return nil
}
