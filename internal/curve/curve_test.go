package curve

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessBelowActivationIsZero(t *testing.T) {
	for _, typ := range Types {
		for _, raw := range []float64{0, 0.01, 0.05, 0.0999} {
			out, err := Process(raw, 0.1, 1.0, 2.0, typ)
			require.NoError(t, err)
			assert.Equal(t, 0.0, out, "type=%s raw=%v", typ, raw)
		}
	}
}

func TestProcessAboveMaximumIsOne(t *testing.T) {
	for _, typ := range Types {
		for _, raw := range []float64{0.81, 0.9, 1.0} {
			out, err := Process(raw, 0.1, 0.8, 3.0, typ)
			require.NoError(t, err)
			assert.Equal(t, 1.0, out, "type=%s raw=%v", typ, raw)
		}
	}
}

func TestProcessLinearMatchesNormalization(t *testing.T) {
	ap, ma := 0.15, 0.85
	for i := 0; i <= 100; i++ {
		raw := float64(i) / 100
		out, err := Process(raw, ap, ma, 4.0, Linear)
		require.NoError(t, err)

		want := 0.0
		switch {
		case raw < ap:
		case raw > ma:
			want = 1
		default:
			want = math.Max(0, math.Min((raw-ap)/(ma-ap), 1))
		}
		assert.Equal(t, want, out, "raw=%v", raw)
	}
}

func TestProcessPowerFactorOneIsLinear(t *testing.T) {
	for i := 0; i <= 50; i++ {
		raw := float64(i) / 50
		lin, err := Process(raw, 0.1, 0.9, 1.0, Linear)
		require.NoError(t, err)
		pow, err := Process(raw, 0.1, 0.9, 1.0, Power)
		require.NoError(t, err)
		assert.Equal(t, lin, pow, "raw=%v", raw)
	}
}

func TestProcessMonotonic(t *testing.T) {
	for _, typ := range Types {
		for _, factor := range []float64{0.5, 1, 2, 10} {
			prev := -1.0
			for i := 0; i <= 1000; i++ {
				raw := float64(i) / 1000
				out, err := Process(raw, 0.08, 0.95, factor, typ)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, out, prev, "type=%s factor=%v raw=%v", typ, factor, raw)
				prev = out
			}
		}
	}
}

func TestProcessBoundaries(t *testing.T) {
	for _, typ := range []Type{Power, Log, Linear} {
		for _, factor := range []float64{0.3, 1, 2.5, 10} {
			lo, err := Process(0.2, 0.2, 0.7, factor, typ)
			require.NoError(t, err)
			assert.Equal(t, 0.0, lo, "type=%s factor=%v", typ, factor)

			hi, err := Process(0.7, 0.2, 0.7, factor, typ)
			require.NoError(t, err)
			assert.Equal(t, 1.0, hi, "type=%s factor=%v", typ, factor)
		}
	}
}

// The logistic shape is deliberately left un-normalized. Its ends do not
// reach 0 and 1 exactly inside the active band; this pins that behavior.
func TestProcessSCurveEndsAreNotNormalized(t *testing.T) {
	lo, err := Process(0.1, 0.1, 1.0, 10, SCurve)
	require.NoError(t, err)
	hi, err := Process(1.0, 0.1, 1.0, 10, SCurve)
	require.NoError(t, err)

	assert.Greater(t, lo, 0.0)
	assert.Less(t, lo, 0.01)
	assert.Less(t, hi, 1.0)
	assert.Greater(t, hi, 0.99)
	assert.InDelta(t, 1/(1+math.Exp(-5)), hi, 1e-15)

	mid, err := Process(0.55, 0.1, 1.0, 10, SCurve)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mid, 1e-12)

	// Gentler factors leave a wider gap at the top of the band.
	soft, err := Process(1.0, 0.1, 1.0, 2, SCurve)
	require.NoError(t, err)
	assert.Less(t, soft, hi)
}

func TestProcessScenarios(t *testing.T) {
	out, err := Process(0.55, 0.1, 1.0, 2.0, Power)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, out, 1e-12)

	out, err = Process(0.05, 0.1, 1.0, 2.0, Power)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out)
}

func TestProcessLogPassesThroughEnds(t *testing.T) {
	out, err := Process(0.5, 0, 1, 9, Log)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(5.5)/math.Log(10), out, 1e-12)
}

func TestProcessRejectsInvalidParameters(t *testing.T) {
	cases := []struct {
		name   string
		ap, ma float64
		factor float64
		typ    Type
		field  string
	}{
		{"activation equals maximum", 0.5, 0.5, 1, Power, "maximum_actuation"},
		{"activation above maximum", 0.6, 0.5, 1, Power, "maximum_actuation"},
		{"negative activation", -0.1, 1, 1, Linear, "activation_point"},
		{"activation of one", 1, 1, 1, Linear, "activation_point"},
		{"maximum above one", 0.1, 1.2, 1, Log, "maximum_actuation"},
		{"zero factor", 0.1, 1, 0, Power, "curve_factor"},
		{"negative factor", 0.1, 1, -2, SCurve, "curve_factor"},
		{"nan factor", 0.1, 1, math.NaN(), Power, "curve_factor"},
		{"infinite factor", 0.1, 1, math.Inf(1), Power, "curve_factor"},
		{"nan activation", math.NaN(), 1, 1, Power, "activation_point"},
		{"unknown type", 0.1, 1, 1, Type("cubic"), "curve_type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Process(0.5, tc.ap, tc.ma, tc.factor, tc.typ)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration))

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestProcessIsReproducible(t *testing.T) {
	for _, typ := range Types {
		a, err := Process(0.4242, 0.07, 0.93, 3.3, typ)
		require.NoError(t, err)
		b, err := Process(0.4242, 0.07, 0.93, 3.3, typ)
		require.NoError(t, err)
		assert.Equal(t, math.Float64bits(a), math.Float64bits(b))
	}
}

func TestProcessNaNRawIsZero(t *testing.T) {
	out, err := Process(math.NaN(), 0.1, 1, 2, Power)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out)
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{
		"power": Power, "POWER": Power, "log": Log, "s_curve": SCurve,
		"scurve": SCurve, "S-Curve": SCurve, " linear ": Linear,
	} {
		got, err := ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseType("exponential")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestSample(t *testing.T) {
	p := Params{ActivationPoint: 0.1, MaximumActuation: 1, Factor: 2, Type: Power}
	pts, err := Sample(p, 10)
	require.NoError(t, err)
	require.Len(t, pts, 11)
	assert.Equal(t, 0.0, pts[0].Raw)
	assert.Equal(t, 1.0, pts[10].Raw)
	assert.Equal(t, 0.0, pts[0].Out)
	assert.Equal(t, 1.0, pts[10].Out)
	for _, pt := range pts {
		want, err := Process(pt.Raw, 0.1, 1, 2, Power)
		require.NoError(t, err)
		assert.Equal(t, want, pt.Out)
	}

	_, err = Sample(Params{ActivationPoint: 0.5, MaximumActuation: 0.5, Factor: 1, Type: Linear}, 4)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
