package motion

// Vector is one tick's output.
type Vector struct {
	DX      float64 `json:"dx"`
	DY      float64 `json:"dy"`
	ScrollX float64 `json:"scroll_x"`
	ScrollY float64 `json:"scroll_y"`
}

// Moves reports whether the pointer component is non-zero.
func (v Vector) Moves() bool { return v.DX != 0 || v.DY != 0 }

// Scrolls reports whether the scroll component is non-zero.
func (v Vector) Scrolls() bool { return v.ScrollX != 0 || v.ScrollY != 0 }

// Combine turns processed channel magnitudes into motion and scroll deltas.
// Opposing channels subtract, so equal opposite presses cancel exactly.
func Combine(p [NumChannels]float64, cfg ResponseConfig) Vector {
	ms, ss := cfg.moveSensitivity, cfg.scrollSensitivity
	damp := 1 - cfg.yDamping
	return Vector{
		DX:      p[MoveRight]*ms - p[MoveLeft]*ms,
		DY:      p[MoveDown]*ms*damp - p[MoveUp]*ms*damp,
		ScrollX: p[ScrollLeft]*ss - p[ScrollRight]*ss,
		ScrollY: p[ScrollUp]*ss - p[ScrollDown]*ss,
	}
}
