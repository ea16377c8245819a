package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/recon/internal/ir"
)

// DuplicatePolicy selects how repeated (trade_id, version) keys on the
// left side are handled.
type DuplicatePolicy string

const (
	// DuplicateWarn joins every duplicate against the matching right record
	// (one output row per duplicate) and reports a warning per key.
	DuplicateWarn DuplicatePolicy = "warn"

	// DuplicateReject fails the run on the first duplicated key.
	DuplicateReject DuplicatePolicy = "reject"

	// DuplicateFirst keeps the first occurrence and drops later ones,
	// reporting a warning per key.
	DuplicateFirst DuplicatePolicy = "first"
)

// DuplicatePolicies lists the accepted policies in documentation order.
var DuplicatePolicies = []DuplicatePolicy{DuplicateWarn, DuplicateReject, DuplicateFirst}

// ParseDuplicatePolicy parses a policy name. The empty string yields the default.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	if s == "" {
		return DuplicateWarn, nil
	}
	for _, p := range DuplicatePolicies {
		if string(p) == s {
			return p, nil
		}
	}
	return "", NewConfigError("duplicate_policy", fmt.Sprintf("unknown duplicate policy %q (want warn, reject or first)", s))
}

// DefaultTolerance is the maximum relative difference that is not a break.
var DefaultTolerance = decimal.RequireFromString("0.05")

// Range is an inclusive bound on quantity_difference. A nil bound is open.
type Range struct {
	Min *decimal.Decimal `json:"min,omitempty"`
	Max *decimal.Decimal `json:"max,omitempty"`
}

// Unbounded returns a range that accepts every difference.
func Unbounded() Range {
	return Range{}
}

// Between returns the inclusive range [lo, hi].
func Between(lo, hi decimal.Decimal) Range {
	return Range{Min: &lo, Max: &hi}
}

// SliderRange returns [0, 1000], the default of the interactive quantity
// slider. It excludes every negative difference, so it is opt-in only.
func SliderRange() Range {
	return Between(decimal.Zero, decimal.NewFromInt(1000))
}

// Contains reports whether d lies within the range, bounds included.
func (r Range) Contains(d decimal.Decimal) bool {
	if r.Min != nil && d.LessThan(*r.Min) {
		return false
	}
	if r.Max != nil && d.GreaterThan(*r.Max) {
		return false
	}
	return true
}

// IsUnbounded reports whether both bounds are open.
func (r Range) IsUnbounded() bool {
	return r.Min == nil && r.Max == nil
}

// String renders the range in interval notation, e.g. [0, 1000] or (-inf, 50].
func (r Range) String() string {
	lo, hi := "(-inf", "+inf)"
	if r.Min != nil {
		lo = "[" + r.Min.String()
	}
	if r.Max != nil {
		hi = r.Max.String() + "]"
	}
	return lo + ", " + hi
}

// Config is the full set of reconciliation parameters.
type Config struct {
	// Tolerance is the largest relative difference that is still a match.
	// A pair is a break iff |l - r| / r > Tolerance, r signed.
	Tolerance decimal.Decimal `json:"tolerance"`

	// DiffRange filters breaks by quantity_difference after detection.
	DiffRange Range `json:"diff_filter"`

	// DuplicatePolicy handles repeated left keys.
	DuplicatePolicy DuplicatePolicy `json:"duplicate_policy"`
}

// DefaultConfig returns tolerance 0.05, an unbounded filter and the warn policy.
func DefaultConfig() Config {
	return Config{
		Tolerance:       DefaultTolerance,
		DiffRange:       Unbounded(),
		DuplicatePolicy: DuplicateWarn,
	}
}

// Validate checks that the configuration can be applied.
func (c Config) Validate() error {
	if c.Tolerance.IsNegative() {
		return NewConfigError("tolerance", fmt.Sprintf("tolerance must be >= 0, got %s", c.Tolerance))
	}
	if c.DiffRange.Min != nil && c.DiffRange.Max != nil && c.DiffRange.Min.GreaterThan(*c.DiffRange.Max) {
		return NewConfigError("diff_filter", fmt.Sprintf("min %s is greater than max %s", c.DiffRange.Min, c.DiffRange.Max))
	}
	if _, err := ParseDuplicatePolicy(string(c.DuplicatePolicy)); err != nil {
		return err
	}
	return nil
}

// Digest returns the content address of the configuration. Configs that
// reconcile identically (e.g. tolerance 0.05 and 0.050) share a digest.
func (c Config) Digest() (string, error) {
	return ir.Digest(ir.DomainConfig, c.canonical())
}

// canonical returns the configuration as a plain object for digests.
func (c Config) canonical() map[string]any {
	filter := map[string]any{}
	if c.DiffRange.Min != nil {
		filter["min"] = *c.DiffRange.Min
	}
	if c.DiffRange.Max != nil {
		filter["max"] = *c.DiffRange.Max
	}
	policy := c.DuplicatePolicy
	if policy == "" {
		policy = DuplicateWarn
	}
	return map[string]any{
		"tolerance":        c.Tolerance,
		"diff_filter":      filter,
		"duplicate_policy": string(policy),
	}
}
