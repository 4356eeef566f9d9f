package motion

// AnalogSource reports analog travel per key, in [0,1].
//
// Initialize must succeed exactly once before the first Read.
type AnalogSource interface {
	Initialize() (devices int, err error)
	IsInitialized() bool
	Read(code uint16) (float64, error)
}

// PressedKeys reports the set of keys currently held.
type PressedKeys interface {
	CurrentlyPressed() ([]uint16, error)
}

// PointerSink moves the pointer and the scroll wheel by relative amounts.
// Scroll amounts are in wheel notches; positive Y scrolls up and positive X
// scrolls left.
type PointerSink interface {
	Move(dx, dy float64) error
	Scroll(dx, dy float64) error
}
