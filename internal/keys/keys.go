// Package keys maps human-readable key names to HID keyboard usage codes.
//
// Analog keyboards report travel per HID usage, so these are the codes the
// channel mapping and the activation gate are expressed in.
package keys

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Code is a HID keyboard usage (page 0x07).
type Code = uint16

const (
	F13 Code = 0x68
	F14 Code = 0x69
	F15 Code = 0x6A
	F16 Code = 0x6B
	F17 Code = 0x6C
	F18 Code = 0x6D
	F19 Code = 0x6E
	F20 Code = 0x6F

	W Code = 0x1A
	A Code = 0x04
	S Code = 0x16
	D Code = 0x07

	Right Code = 0x4F
	Left  Code = 0x50
	Down  Code = 0x51
	Up    Code = 0x52
)

// byName holds canonical names. Aliases are added in init.
var byName = map[string]Code{
	"Enter": 0x28, "Escape": 0x29, "Backspace": 0x2A, "Tab": 0x2B, "Space": 0x2C,
	"Minus": 0x2D, "Equal": 0x2E, "LeftBracket": 0x2F, "RightBracket": 0x30,
	"Backslash": 0x31, "Semicolon": 0x33, "Quote": 0x34, "Backquote": 0x35,
	"Comma": 0x36, "Period": 0x37, "Slash": 0x38, "CapsLock": 0x39,

	"PrintScreen": 0x46, "ScrollLock": 0x47, "Pause": 0x48, "Insert": 0x49,
	"Home": 0x4A, "PageUp": 0x4B, "Delete": 0x4C, "End": 0x4D, "PageDown": 0x4E,
	"RightArrow": Right, "LeftArrow": Left, "DownArrow": Down, "UpArrow": Up,

	"NumLock": 0x53, "NumpadDivide": 0x54, "NumpadMultiply": 0x55,
	"NumpadSubtract": 0x56, "NumpadAdd": 0x57, "NumpadEnter": 0x58,
	"Numpad0": 0x62, "NumpadDecimal": 0x63, "ContextMenu": 0x65,

	"LeftCtrl": 0xE0, "LeftShift": 0xE1, "LeftAlt": 0xE2, "LeftMeta": 0xE3,
	"RightCtrl": 0xE4, "RightShift": 0xE5, "RightAlt": 0xE6, "RightMeta": 0xE7,
}

var aliases = map[string]string{
	"up": "UpArrow", "down": "DownArrow", "left": "LeftArrow", "right": "RightArrow",
	"esc": "Escape", "return": "Enter", "ctrl": "LeftCtrl", "shift": "LeftShift",
	"alt": "LeftAlt", "win": "LeftMeta", "cmd": "LeftMeta", "del": "Delete",
	"pgup": "PageUp", "pgdn": "PageDown", "menu": "ContextMenu",
}

var (
	byCode = map[Code]string{}
	folded = map[string]Code{}
)

func init() {
	for i := 0; i < 26; i++ {
		byName[string(rune('A'+i))] = Code(0x04 + i)
	}
	for i := 1; i <= 9; i++ {
		byName[strconv.Itoa(i)] = Code(0x1E + i - 1)
		byName[fmt.Sprintf("Numpad%d", i)] = Code(0x59 + i - 1)
	}
	byName["0"] = 0x27
	for i := 1; i <= 12; i++ {
		byName[fmt.Sprintf("F%d", i)] = Code(0x3A + i - 1)
	}
	for i := 13; i <= 24; i++ {
		byName[fmt.Sprintf("F%d", i)] = Code(0x68 + i - 13)
	}

	for name, code := range byName {
		byCode[code] = name
		folded[fold(name)] = code
	}
	for alias, name := range aliases {
		folded[fold(alias)] = byName[name]
	}
}

// fold lowercases and drops separators so "Up Arrow", "up_arrow" and
// "UpArrow" all resolve the same way.
func fold(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '_', '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Lookup resolves a key name.
func Lookup(name string) (Code, bool) {
	c, ok := folded[fold(name)]
	return c, ok
}

// Name returns the canonical name of code, or its hex form when unnamed.
func Name(code Code) string {
	if n, ok := byCode[code]; ok {
		return n
	}
	return fmt.Sprintf("0x%02X", code)
}

// Parse accepts a key name, a decimal code or a 0x-prefixed hex code.
func Parse(s string) (Code, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty key name")
	}
	if c, ok := Lookup(s); ok {
		return c, nil
	}
	if v, err := strconv.ParseUint(s, 0, 16); err == nil {
		return Code(v), nil
	}
	return 0, fmt.Errorf("unknown key %q", s)
}

// Names returns every canonical key name, sorted.
func Names() []string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
