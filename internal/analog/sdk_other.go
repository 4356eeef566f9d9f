//go:build !windows

package analog

import "wootrat/internal/motion"

func newSDKSource(Options) (Source, error) {
	return nil, &motion.DeviceError{Op: "open analog SDK", Err: ErrUnsupported}
}

func sdkAvailable(Source) bool { return false }
