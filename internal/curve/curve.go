// Package curve maps raw analog key travel to an output magnitude in [0,1].
//
// Everything here is pure: the same inputs always give bit-identical outputs,
// which is what keeps the settings preview and the live control loop in step.
package curve

import (
	"fmt"
	"math"
	"strings"
)

// Type selects the shape applied to normalized travel.
type Type string

const (
	Power  Type = "power"
	Log    Type = "log"
	SCurve Type = "s_curve"
	Linear Type = "linear"
)

// Types lists every supported shape in display order.
var Types = []Type{Power, Log, SCurve, Linear}

// ParseType accepts the persisted names plus a few common spellings.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "power", "pow":
		return Power, nil
	case "log", "logarithmic":
		return Log, nil
	case "s_curve", "scurve", "s-curve", "sigmoid":
		return SCurve, nil
	case "linear":
		return Linear, nil
	}
	return "", &ConfigError{Field: "curve_type", Value: s, Reason: fmt.Sprintf("must be one of %v", Types)}
}

func (t Type) valid() bool {
	switch t {
	case Power, Log, SCurve, Linear:
		return true
	}
	return false
}

// Params is the shaping part of a response configuration.
type Params struct {
	ActivationPoint  float64
	MaximumActuation float64
	Factor           float64
	Type             Type
}

// Validate checks 0 <= ActivationPoint < MaximumActuation <= 1 and Factor > 0.
// NaN fails every comparison and is rejected with the rest.
func (p Params) Validate() error {
	if !(p.ActivationPoint >= 0 && p.ActivationPoint < 1) {
		return &ConfigError{Field: "activation_point", Value: p.ActivationPoint, Reason: "must be in [0,1)"}
	}
	if !(p.MaximumActuation > p.ActivationPoint && p.MaximumActuation <= 1) {
		return &ConfigError{Field: "maximum_actuation", Value: p.MaximumActuation,
			Reason: fmt.Sprintf("must be in (activation_point=%v, 1]", p.ActivationPoint)}
	}
	if !(p.Factor > 0) || math.IsInf(p.Factor, 1) {
		return &ConfigError{Field: "curve_factor", Value: p.Factor, Reason: "must be a finite value > 0"}
	}
	if !p.Type.valid() {
		return &ConfigError{Field: "curve_type", Value: string(p.Type), Reason: fmt.Sprintf("must be one of %v", Types)}
	}
	return nil
}

// Apply shapes raw without validating p. Callers that hold an already
// validated Params (the control loop) use this on the hot path.
func (p Params) Apply(raw float64) float64 {
	if math.IsNaN(raw) || raw < p.ActivationPoint {
		return 0
	}
	if raw > p.MaximumActuation {
		return 1
	}

	t := (raw - p.ActivationPoint) / (p.MaximumActuation - p.ActivationPoint)
	t = math.Max(0, math.Min(t, 1))

	switch p.Type {
	case Power:
		return math.Pow(t, p.Factor)
	case Log:
		return math.Log1p(p.Factor*t) / math.Log1p(p.Factor)
	case SCurve:
		// Not renormalized: the ends sit slightly inside (0,1) and the gap
		// narrows as Factor grows.
		return 1 / (1 + math.Exp(-p.Factor*(t-0.5)))
	default:
		return t
	}
}

// Process validates the parameters and shapes raw.
func Process(raw, activationPoint, maximumActuation, factor float64, typ Type) (float64, error) {
	p := Params{
		ActivationPoint:  activationPoint,
		MaximumActuation: maximumActuation,
		Factor:           factor,
		Type:             typ,
	}
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return p.Apply(raw), nil
}

// Point is one sample of a curve.
type Point struct {
	Raw float64 `json:"raw"`
	Out float64 `json:"out"`
}

// Sample evaluates p at n+1 evenly spaced raw values covering [0,1].
func Sample(p Params, n int) ([]Point, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if n < 1 {
		n = 1
	}
	pts := make([]Point, n+1)
	for i := 0; i <= n; i++ {
		raw := float64(i) / float64(n)
		pts[i] = Point{Raw: raw, Out: p.Apply(raw)}
	}
	return pts, nil
}
