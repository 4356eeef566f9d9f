package curve

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is matched by every ConfigError.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ConfigError names a single parameter that failed validation.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}
