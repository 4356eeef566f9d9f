package config

import (
	"fmt"

	"wootrat/internal/motion"
)

// DefaultPreset is the binding set used by Defaults.
const DefaultPreset = "F13-F16 Keys"

// Preset is a named set of channel bindings, in motion.Channels order.
type Preset struct {
	Name string
	Keys [motion.NumChannels]string
}

// scrollKeys are the scroll up, down, left and right bindings shared by every
// preset. F19 scrolls right and F20 scrolls left.
var scrollKeys = [4]string{"F17", "F18", "F20", "F19"}

func preset(name string, up, down, left, right string) Preset {
	return Preset{Name: name, Keys: [motion.NumChannels]string{
		up, down, left, right,
		scrollKeys[0], scrollKeys[1], scrollKeys[2], scrollKeys[3],
	}}
}

// Presets lists the built-in binding sets.
var Presets = []Preset{
	preset("Arrow Keys", "UpArrow", "DownArrow", "LeftArrow", "RightArrow"),
	preset("WASD Keys", "W", "S", "A", "D"),
	preset("F13-F16 Keys", "F13", "F15", "F14", "F16"),
}

// PresetNames returns the names of Presets in order.
func PresetNames() []string {
	names := make([]string, len(Presets))
	for i, p := range Presets {
		names[i] = p.Name
	}
	return names
}

// ApplyPreset replaces all eight bindings with the named preset.
func (s *Settings) ApplyPreset(name string) error {
	for _, p := range Presets {
		if p.Name != name {
			continue
		}
		for _, c := range motion.Channels {
			s.SetKeyName(c, p.Keys[c])
		}
		s.KeyMapping = p.Name
		return nil
	}
	return &motion.ConfigError{Field: "key_mapping", Value: name, Reason: fmt.Sprintf("must be one of %q", PresetNames())}
}
