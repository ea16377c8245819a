package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recon/internal/engine"
)

func ptr[T any](v T) *T { return &v }

func TestApplyOverrides(t *testing.T) {
	base := engine.DefaultConfig()

	cfg, err := ApplyOverrides(base, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, base, cfg)
	assert.True(t, Overrides{}.IsZero())

	cfg, err = ApplyOverrides(base, Overrides{
		Tolerance:       ptr("0.1"),
		Min:             ptr("-50"),
		DuplicatePolicy: ptr("first"),
	})
	require.NoError(t, err)
	assert.Equal(t, "0.1", cfg.Tolerance.String())
	assert.Equal(t, "[-50, +inf)", cfg.DiffRange.String())
	assert.Equal(t, engine.DuplicateFirst, cfg.DuplicatePolicy)

	cfg, err = ApplyOverrides(base, Overrides{Slider: ptr(true), Max: ptr("none")})
	require.NoError(t, err)
	assert.Equal(t, "[0, +inf)", cfg.DiffRange.String(), "bounds apply after the slider preset")

	slider := base
	slider.DiffRange = engine.SliderRange()
	cfg, err = ApplyOverrides(slider, Overrides{Slider: ptr(false)})
	require.NoError(t, err)
	assert.True(t, cfg.DiffRange.IsUnbounded())
}

func TestApplyOverrides_LeavesValidationToCaller(t *testing.T) {
	cfg, err := ApplyOverrides(engine.DefaultConfig(), Overrides{Tolerance: ptr("-1")})
	require.NoError(t, err)
	errs := Validate(cfg)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrToleranceNegative, errs[0].Code)
}

func TestApplyOverrides_Errors(t *testing.T) {
	tests := []struct {
		name  string
		o     Overrides
		field string
	}{
		{"tolerance", Overrides{Tolerance: ptr("five")}, "tolerance"},
		{"min", Overrides{Min: ptr("1e")}, "diff_filter.min"},
		{"max", Overrides{Max: ptr("x")}, "diff_filter.max"},
		{"policy", Overrides{DuplicatePolicy: ptr("last")}, "duplicate_policy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyOverrides(engine.DefaultConfig(), tt.o)
			require.Error(t, err)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}
