package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wootrat/internal/curve"
)

func validParams() ResponseParams {
	return ResponseParams{
		ActivationPoint:   0.08,
		MaximumActuation:  1,
		CurveFactor:       2,
		CurveType:         curve.Log,
		MoveSensitivity:   23,
		ScrollSensitivity: 0.4,
		YDamping:          0.23,
	}
}

func TestNewResponseConfig(t *testing.T) {
	cfg, err := NewResponseConfig(validParams())
	require.NoError(t, err)
	assert.True(t, cfg.Valid())
	assert.Equal(t, validParams(), cfg.Params())
	assert.False(t, ResponseConfig{}.Valid())
}

func TestNewResponseConfigRejects(t *testing.T) {
	cases := map[string]struct {
		mutate func(*ResponseParams)
		field  string
	}{
		"activation equals maximum": {func(p *ResponseParams) { p.ActivationPoint, p.MaximumActuation = 0.6, 0.6 }, "maximum_actuation"},
		"activation above maximum":  {func(p *ResponseParams) { p.ActivationPoint, p.MaximumActuation = 0.9, 0.4 }, "maximum_actuation"},
		"zero factor":               {func(p *ResponseParams) { p.CurveFactor = 0 }, "curve_factor"},
		"negative factor":           {func(p *ResponseParams) { p.CurveFactor = -1 }, "curve_factor"},
		"unknown curve":             {func(p *ResponseParams) { p.CurveType = "cubic" }, "curve_type"},
		"zero move sensitivity":     {func(p *ResponseParams) { p.MoveSensitivity = 0 }, "mouse_sensitivity"},
		"zero scroll sensitivity":   {func(p *ResponseParams) { p.ScrollSensitivity = 0 }, "scroll_sensitivity"},
		"damping above one":         {func(p *ResponseParams) { p.YDamping = 1.2 }, "y_sensitivity_adjustment"},
		"negative damping":          {func(p *ResponseParams) { p.YDamping = -0.1 }, "y_sensitivity_adjustment"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p := validParams()
			tc.mutate(&p)
			_, err := NewResponseConfig(p)
			require.ErrorIs(t, err, ErrInvalidConfiguration)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestChannelNames(t *testing.T) {
	for _, c := range Channels {
		got, err := ParseChannel(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)

		got, err = ParseChannel(c.Label())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseChannel("jump")
	assert.Error(t, err)
	assert.Equal(t, "Channel(9)", Channel(9).String())
}

func TestChannelMappingOverlaps(t *testing.T) {
	assert.Empty(t, testMapping.Overlaps())

	m := testMapping
	m[ScrollUp] = m[MoveUp]
	m[ScrollRight] = m[MoveUp]
	assert.Equal(t, map[uint16][]Channel{0x68: {MoveUp, ScrollUp, ScrollRight}}, m.Overlaps())
}
