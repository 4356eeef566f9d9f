// Package input injects relative pointer motion and scrolling into the OS.
package input

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// ErrUnsupported is returned on platforms without an injection backend.
var ErrUnsupported = errors.New("pointer injection not supported on this platform")

var defaultLogger = zerolog.New(os.Stderr).With().Timestamp().Str("subsystem", "input").Logger()

// backend emits whole-unit relative events. Scroll units are backend
// specific; unitsPerNotch converts from wheel notches.
type backend interface {
	name() string
	unitsPerNotch() float64
	moveBy(dx, dy int32) error
	// scrollBy takes +Y as up and +X as left.
	scrollBy(dx, dy int32) error
	close() error
}

// Pointer is a motion.PointerSink backed by the platform injector.
// Fractions left over after rounding to whole units are carried into the
// next call, so slow analog motion still moves the pointer.
type Pointer struct {
	mu     sync.Mutex
	b      backend
	log    *zerolog.Logger
	move   remainder
	scroll remainder
}

// New opens the platform injector.
func New(logger *zerolog.Logger) (*Pointer, error) {
	if logger == nil {
		l := defaultLogger
		logger = &l
	}
	b, err := newBackend(logger)
	if err != nil {
		return nil, fmt.Errorf("open pointer injector: %w", err)
	}
	logger.Info().Str("backend", b.name()).Msg("pointer injector ready")
	return newPointer(b, logger), nil
}

func newPointer(b backend, logger *zerolog.Logger) *Pointer {
	return &Pointer{b: b, log: logger}
}

// Move moves the pointer by (dx, dy) pixels; +Y is down.
func (p *Pointer) Move(dx, dy float64) error {
	if !finite(dx) || !finite(dy) {
		return fmt.Errorf("move: non-finite delta (%v, %v)", dx, dy)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	x, y := p.move.take(dx, dy)
	if x == 0 && y == 0 {
		return nil
	}
	return p.b.moveBy(x, y)
}

// Scroll scrolls by (dx, dy) wheel notches; +Y is up and +X is left.
func (p *Pointer) Scroll(dx, dy float64) error {
	if !finite(dx) || !finite(dy) {
		return fmt.Errorf("scroll: non-finite delta (%v, %v)", dx, dy)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	u := p.b.unitsPerNotch()
	x, y := p.scroll.take(dx*u, dy*u)
	if x == 0 && y == 0 {
		return nil
	}
	return p.b.scrollBy(x, y)
}

// Close releases the injector.
func (p *Pointer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.b.close()
}

// remainder accumulates fractional units between calls.
type remainder struct {
	x, y float64
}

// take adds (dx, dy) and returns the whole units, keeping the fraction.
// Truncation is toward zero so the remainder always has the sign of the
// pending motion.
func (r *remainder) take(dx, dy float64) (int32, int32) {
	r.x += dx
	r.y += dy
	ix, iy := math.Trunc(r.x), math.Trunc(r.y)
	r.x -= ix
	r.y -= iy
	return int32(ix), int32(iy)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
