// Package analog reads per-key analog travel from Wooting keyboards.
//
// Two backends exist: the vendor SDK (a DLL on Windows) and direct HID
// access through hidapi. Both report travel in [0,1] keyed by HID usage code,
// and both can list the keys currently pressed, which is what the activation
// gate needs.
package analog

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"wootrat/internal/motion"
)

// Kind selects a backend.
type Kind string

const (
	Auto Kind = "auto"
	SDK  Kind = "sdk"
	HID  Kind = "hid"
)

var (
	// ErrUnsupported is returned for a backend that does not exist on this
	// platform.
	ErrUnsupported = errors.New("analog backend not supported on this platform")
	// ErrNotInitialized is wrapped by reads issued before Initialize succeeded.
	ErrNotInitialized = errors.New("analog source not initialized")
	// ErrNoDevice is returned when no analog-capable keyboard is attached.
	ErrNoDevice = errors.New("no analog keyboard found")
)

var defaultLogger = zerolog.New(os.Stderr).With().Timestamp().Str("subsystem", "analog").Logger()

// Source is an initialized-once analog reader.
type Source interface {
	motion.AnalogSource
	motion.PressedKeys
	Name() string
	Close() error
}

// Options configures Open.
type Options struct {
	// SDKPath overrides where the SDK library is loaded from.
	SDKPath string
	Logger  *zerolog.Logger
}

// ParseKind validates a backend name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Auto, SDK, HID:
		return k, nil
	case "":
		return Auto, nil
	}
	return "", fmt.Errorf("unknown analog backend %q (want auto, sdk or hid)", s)
}

// Open returns an uninitialized source of the requested kind. Auto prefers
// the SDK when its library can be loaded and falls back to HID.
func Open(kind Kind, opts Options) (Source, error) {
	if opts.Logger == nil {
		l := defaultLogger
		opts.Logger = &l
	}
	switch kind {
	case SDK:
		return newSDKSource(opts)
	case HID:
		return newHIDSource(opts), nil
	case Auto, "":
		if s, err := newSDKSource(opts); err == nil && sdkAvailable(s) {
			return s, nil
		}
		opts.Logger.Debug().Msg("SDK unavailable, using HID backend")
		return newHIDSource(opts), nil
	}
	return nil, fmt.Errorf("open analog source: unknown kind %q", kind)
}

// initOnce runs an initializer exactly once and remembers its outcome.
type initOnce struct {
	once    sync.Once
	devices int
	err     error
	done    atomic.Bool
}

func (i *initOnce) do(f func() (int, error)) (int, error) {
	i.once.Do(func() {
		i.devices, i.err = f()
		if i.err == nil {
			i.done.Store(true)
		}
	})
	return i.devices, i.err
}

func (i *initOnce) ok() bool { return i.done.Load() }

// snapshot is the travel of every key with non-zero depth at one instant.
type snapshot map[uint16]float64

func (s snapshot) pressed() []uint16 {
	out := make([]uint16, 0, len(s))
	for code, v := range s {
		if v > 0 {
			out = append(out, code)
		}
	}
	slices.Sort(out)
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func notInitialized(op string) error {
	return &motion.DeviceError{Op: op, Err: ErrNotInitialized}
}
