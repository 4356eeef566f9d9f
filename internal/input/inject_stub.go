//go:build !darwin && !linux && !windows

package input

import "github.com/rs/zerolog"

func newBackend(*zerolog.Logger) (backend, error) {
	return nil, ErrUnsupported
}
