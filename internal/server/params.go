package server

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/roach88/recon/internal/compiler"
	"github.com/roach88/recon/internal/engine"
)

// ParseConfig applies query overrides to base:
//
//	tolerance  decimal >= 0
//	slider     true selects the [0, 1000] range before min/max apply
//	min, max   bounds of the break filter; "" or "none" opens a bound
//	policy     warn | reject | first
//
// Unknown and repeated parameters are rejected so a typo never silently
// falls back to the default and min=1&min=500 never picks one at random. Range and sign checks are left to engine validation.
func ParseConfig(base engine.Config, q url.Values) (engine.Config, error) {
	var o compiler.Overrides
	for name, vs := range q {
		if len(vs) > 1 {
			return base, fmt.Errorf("parameter %q given %d times", name, len(vs))
		}
		v := q.Get(name)
		switch name {
		case "tolerance":
			o.Tolerance = &v
		case "min":
			o.Min = &v
		case "max":
			o.Max = &v
		case "policy":
			o.DuplicatePolicy = &v
		case "slider":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return base, fmt.Errorf("slider: %q is not a boolean", v)
			}
			o.Slider = &b
		default:
			return base, fmt.Errorf("unknown parameter %q", name)
		}
	}
	return compiler.ApplyOverrides(base, o)
}
