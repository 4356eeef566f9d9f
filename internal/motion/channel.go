package motion

import (
	"fmt"
	"sort"
	"strings"
)

// Channel is one of the eight logical movement and scroll roles.
type Channel int

const (
	MoveUp Channel = iota
	MoveDown
	MoveLeft
	MoveRight
	ScrollUp
	ScrollDown
	ScrollLeft
	ScrollRight

	NumChannels = 8
)

var channelNames = [NumChannels]string{
	"move_up", "move_down", "move_left", "move_right",
	"scroll_up", "scroll_down", "scroll_left", "scroll_right",
}

var channelLabels = [NumChannels]string{
	"Up", "Down", "Left", "Right",
	"Scroll Up", "Scroll Down", "Scroll Left", "Scroll Right",
}

// Channels lists every channel in tick order.
var Channels = [NumChannels]Channel{
	MoveUp, MoveDown, MoveLeft, MoveRight,
	ScrollUp, ScrollDown, ScrollLeft, ScrollRight,
}

func (c Channel) String() string {
	if c < 0 || c >= NumChannels {
		return fmt.Sprintf("Channel(%d)", int(c))
	}
	return channelNames[c]
}

// Label is the human-facing name shown in settings.
func (c Channel) Label() string {
	if c < 0 || c >= NumChannels {
		return c.String()
	}
	return channelLabels[c]
}

// ParseChannel accepts either the snake_case name or the label.
func ParseChannel(s string) (Channel, error) {
	s = strings.TrimSpace(s)
	for _, c := range Channels {
		if strings.EqualFold(s, channelNames[c]) || strings.EqualFold(s, channelLabels[c]) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q", s)
}

// ChannelMapping binds every channel to a physical key code. Being an array
// it is total by construction.
type ChannelMapping [NumChannels]uint16

// Key returns the key code bound to c.
func (m ChannelMapping) Key(c Channel) uint16 { return m[c] }

// Overlaps returns every key code bound to more than one channel. Overlap is
// permitted; a shared key drives all of its channels with the same reading.
func (m ChannelMapping) Overlaps() map[uint16][]Channel {
	seen := make(map[uint16][]Channel, NumChannels)
	for _, c := range Channels {
		seen[m[c]] = append(seen[m[c]], c)
	}
	out := make(map[uint16][]Channel)
	for code, chs := range seen {
		if len(chs) > 1 {
			sort.Slice(chs, func(i, j int) bool { return chs[i] < chs[j] })
			out[code] = chs
		}
	}
	return out
}
