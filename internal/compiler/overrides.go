package compiler

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/recon/internal/engine"
)

// Overrides are textual config settings from flags, environment or query
// parameters, applied on top of a base config. A nil field leaves the
// base value untouched.
type Overrides struct {
	Tolerance *string
	// Slider selects [0, 1000] (true) or no filter (false) before Min and
	// Max are applied.
	Slider *bool
	// Min and Max replace one bound; "" or "none" opens it.
	Min             *string
	Max             *string
	DuplicatePolicy *string
}

// IsZero reports whether no override is set.
func (o Overrides) IsZero() bool {
	return o == Overrides{}
}

// ApplyOverrides returns base with o applied. The result is not
// validated; a negative tolerance or inverted range is left for
// Validate or engine.Run to report.
func ApplyOverrides(base engine.Config, o Overrides) (engine.Config, error) {
	cfg := base
	if o.Tolerance != nil {
		d, err := decimal.NewFromString(strings.TrimSpace(*o.Tolerance))
		if err != nil {
			return base, &CompileError{Field: "tolerance", Message: "not a decimal: " + *o.Tolerance}
		}
		cfg.Tolerance = d
	}

	if o.Slider != nil {
		if *o.Slider {
			cfg.DiffRange = engine.SliderRange()
		} else {
			cfg.DiffRange = engine.Unbounded()
		}
	}
	if o.Min != nil {
		lo, err := parseBound("diff_filter.min", *o.Min)
		if err != nil {
			return base, err
		}
		cfg.DiffRange.Min = lo
	}
	if o.Max != nil {
		hi, err := parseBound("diff_filter.max", *o.Max)
		if err != nil {
			return base, err
		}
		cfg.DiffRange.Max = hi
	}

	if o.DuplicatePolicy != nil {
		p, err := engine.ParseDuplicatePolicy(strings.TrimSpace(*o.DuplicatePolicy))
		if err != nil {
			return base, &CompileError{Field: "duplicate_policy", Message: err.Error()}
		}
		cfg.DuplicatePolicy = p
	}
	return cfg, nil
}

func parseBound(field, raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "none") {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &CompileError{Field: field, Message: "not a decimal: " + raw}
	}
	return &d, nil
}
