package motion

import (
	"errors"
	"fmt"

	"wootrat/internal/curve"
)

// ErrInvalidConfiguration matches every *ConfigError.
var ErrInvalidConfiguration = curve.ErrInvalidConfiguration

// ConfigError names the parameter that failed validation.
type ConfigError = curve.ConfigError

var (
	// ErrDevice matches every *DeviceError.
	ErrDevice = errors.New("analog device error")

	ErrNotIdle     = errors.New("loop already started")
	ErrStopTimeout = errors.New("loop did not stop in time")
)

// DeviceError reports an analog source that could not be initialized or
// was used before initialization.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("analog device: %s", e.Op)
	}
	return fmt.Sprintf("analog device: %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

func (e *DeviceError) Is(target error) bool { return target == ErrDevice }
