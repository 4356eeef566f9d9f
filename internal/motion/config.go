package motion

import (
	"wootrat/internal/curve"
)

// ResponseParams is the plain-data form of a ResponseConfig.
type ResponseParams struct {
	ActivationPoint   float64
	MaximumActuation  float64
	CurveFactor       float64
	CurveType         curve.Type
	MoveSensitivity   float64
	ScrollSensitivity float64
	// YDamping is the fraction by which vertical movement is reduced.
	YDamping float64
}

// ResponseConfig is a validated, immutable parameter bundle. The zero value
// is not valid; build one with NewResponseConfig.
type ResponseConfig struct {
	curve             curve.Params
	moveSensitivity   float64
	scrollSensitivity float64
	yDamping          float64
	ok                bool
}

// NewResponseConfig validates p. Values are never clamped or corrected.
func NewResponseConfig(p ResponseParams) (ResponseConfig, error) {
	cp := curve.Params{
		ActivationPoint:  p.ActivationPoint,
		MaximumActuation: p.MaximumActuation,
		Factor:           p.CurveFactor,
		Type:             p.CurveType,
	}
	if err := cp.Validate(); err != nil {
		return ResponseConfig{}, err
	}
	if !(p.MoveSensitivity > 0) {
		return ResponseConfig{}, &ConfigError{Field: "mouse_sensitivity", Value: p.MoveSensitivity, Reason: "must be > 0"}
	}
	if !(p.ScrollSensitivity > 0) {
		return ResponseConfig{}, &ConfigError{Field: "scroll_sensitivity", Value: p.ScrollSensitivity, Reason: "must be > 0"}
	}
	if !(p.YDamping >= 0 && p.YDamping <= 1) {
		return ResponseConfig{}, &ConfigError{Field: "y_sensitivity_adjustment", Value: p.YDamping, Reason: "must be in [0,1]"}
	}
	return ResponseConfig{
		curve:             cp,
		moveSensitivity:   p.MoveSensitivity,
		scrollSensitivity: p.ScrollSensitivity,
		yDamping:          p.YDamping,
		ok:                true,
	}, nil
}

// Valid reports whether c came from NewResponseConfig.
func (c ResponseConfig) Valid() bool { return c.ok }

// Curve returns the shaping parameters.
func (c ResponseConfig) Curve() curve.Params { return c.curve }

// Params returns the plain-data form of c.
func (c ResponseConfig) Params() ResponseParams {
	return ResponseParams{
		ActivationPoint:   c.curve.ActivationPoint,
		MaximumActuation:  c.curve.MaximumActuation,
		CurveFactor:       c.curve.Factor,
		CurveType:         c.curve.Type,
		MoveSensitivity:   c.moveSensitivity,
		ScrollSensitivity: c.scrollSensitivity,
		YDamping:          c.yDamping,
	}
}

// Process runs raw through the configured curve.
func (c ResponseConfig) Process(raw float64) float64 { return c.curve.Apply(raw) }

// ActivationGate optionally requires a key to be held before any channel is
// processed.
type ActivationGate struct {
	Enabled bool
	Key     uint16
}
