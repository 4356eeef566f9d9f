package config

import (
	"fmt"
	"time"

	"wootrat/internal/curve"
	"wootrat/internal/keys"
	"wootrat/internal/motion"
)

// Settings is the persisted configuration surface.
type Settings struct {
	MouseSensitivity       float64 `json:"mouse_sensitivity" yaml:"mouse_sensitivity"`
	ScrollSensitivity      float64 `json:"scroll_sensitivity" yaml:"scroll_sensitivity"`
	YSensitivityAdjustment float64 `json:"y_sensitivity_adjustment" yaml:"y_sensitivity_adjustment"`
	CurveFactor            float64 `json:"curve_factor" yaml:"curve_factor"`
	// Deadzone is the activation point: travel below it is ignored.
	Deadzone float64 `json:"deadzone" yaml:"deadzone"`
	// OuterDeadzone is the maximum actuation: travel above it is full output.
	OuterDeadzone float64 `json:"outer_deadzone" yaml:"outer_deadzone"`
	CurveType     string  `json:"curve_type" yaml:"curve_type"`

	MoveUp      string `json:"move_up" yaml:"move_up"`
	MoveDown    string `json:"move_down" yaml:"move_down"`
	MoveLeft    string `json:"move_left" yaml:"move_left"`
	MoveRight   string `json:"move_right" yaml:"move_right"`
	ScrollUp    string `json:"scroll_up" yaml:"scroll_up"`
	ScrollDown  string `json:"scroll_down" yaml:"scroll_down"`
	ScrollLeft  string `json:"scroll_left" yaml:"scroll_left"`
	ScrollRight string `json:"scroll_right" yaml:"scroll_right"`
	// KeyMapping names the preset the bindings were last taken from.
	KeyMapping string `json:"key_mapping" yaml:"key_mapping"`

	ActivationGate bool   `json:"activation_gate" yaml:"activation_gate"`
	ActivationKey  string `json:"activation_key" yaml:"activation_key"`

	Autostart      bool   `json:"autostart" yaml:"autostart"`
	PollIntervalMS int    `json:"poll_interval_ms" yaml:"poll_interval_ms"`
	UIPort         int    `json:"ui_port" yaml:"ui_port"`
	AnalogBackend  string `json:"analog_backend" yaml:"analog_backend"`
}

// Defaults returns the settings used when nothing is stored.
func Defaults() Settings {
	s := Settings{
		MouseSensitivity:       23,
		ScrollSensitivity:      0.4,
		YSensitivityAdjustment: 0.23,
		CurveFactor:            10.0,
		Deadzone:               0.08,
		OuterDeadzone:          1.0,
		CurveType:              string(curve.Power),
		ActivationKey:          "LeftShift",
		PollIntervalMS:         int(motion.DefaultInterval / time.Millisecond),
		AnalogBackend:          "auto",
	}
	if err := s.ApplyPreset(DefaultPreset); err != nil {
		panic(err)
	}
	return s
}

// KeyName returns the key bound to c.
func (s *Settings) KeyName(c motion.Channel) string { return *s.keyField(c) }

// SetKeyName binds c to name without validating it.
func (s *Settings) SetKeyName(c motion.Channel, name string) { *s.keyField(c) = name }

func (s *Settings) keyField(c motion.Channel) *string {
	switch c {
	case motion.MoveUp:
		return &s.MoveUp
	case motion.MoveDown:
		return &s.MoveDown
	case motion.MoveLeft:
		return &s.MoveLeft
	case motion.MoveRight:
		return &s.MoveRight
	case motion.ScrollUp:
		return &s.ScrollUp
	case motion.ScrollDown:
		return &s.ScrollDown
	case motion.ScrollLeft:
		return &s.ScrollLeft
	case motion.ScrollRight:
		return &s.ScrollRight
	}
	panic(fmt.Sprintf("config: no key field for %s", c))
}

// Build validates s and produces the loop's immutable inputs. Every problem
// is reported as a *motion.ConfigError naming the settings key.
func (s Settings) Build() (motion.ResponseConfig, motion.ChannelMapping, motion.ActivationGate, error) {
	var (
		mapping motion.ChannelMapping
		gate    motion.ActivationGate
	)

	typ, err := curve.ParseType(s.CurveType)
	if err != nil {
		return motion.ResponseConfig{}, mapping, gate, err
	}
	cfg, err := motion.NewResponseConfig(motion.ResponseParams{
		ActivationPoint:   s.Deadzone,
		MaximumActuation:  s.OuterDeadzone,
		CurveFactor:       s.CurveFactor,
		CurveType:         typ,
		MoveSensitivity:   s.MouseSensitivity,
		ScrollSensitivity: s.ScrollSensitivity,
		YDamping:          s.YSensitivityAdjustment,
	})
	if err != nil {
		return motion.ResponseConfig{}, mapping, gate, renameField(err)
	}

	for _, c := range motion.Channels {
		name := s.KeyName(c)
		code, err := keys.Parse(name)
		if err != nil {
			return motion.ResponseConfig{}, mapping, gate, &motion.ConfigError{Field: c.String(), Value: name, Reason: err.Error()}
		}
		mapping[c] = code
	}

	if s.ActivationGate {
		code, err := keys.Parse(s.ActivationKey)
		if err != nil {
			return motion.ResponseConfig{}, mapping, gate, &motion.ConfigError{Field: "activation_key", Value: s.ActivationKey, Reason: err.Error()}
		}
		gate = motion.ActivationGate{Enabled: true, Key: code}
	}

	if _, err := s.Interval(); err != nil {
		return motion.ResponseConfig{}, mapping, gate, err
	}
	return cfg, mapping, gate, nil
}

// Interval returns the poll delay.
func (s Settings) Interval() (time.Duration, error) {
	if s.PollIntervalMS < 1 || s.PollIntervalMS > 1000 {
		return 0, &motion.ConfigError{Field: "poll_interval_ms", Value: s.PollIntervalMS, Reason: "must be in [1,1000]"}
	}
	return time.Duration(s.PollIntervalMS) * time.Millisecond, nil
}

// renameField maps curve parameter names onto the settings keys users edit.
func renameField(err error) error {
	ce, ok := err.(*motion.ConfigError)
	if !ok {
		return err
	}
	switch ce.Field {
	case "activation_point":
		ce.Field = "deadzone"
	case "maximum_actuation":
		ce.Field = "outer_deadzone"
	}
	return ce
}
