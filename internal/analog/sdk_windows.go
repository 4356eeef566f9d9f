//go:build windows

package analog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"

	"wootrat/internal/motion"
)

const sdkLibrary = "wooting_analog_sdk.dll"

// bufferLen bounds how many pressed keys one full-buffer read returns.
const bufferLen = 64

// sdkSource binds the Wooting Analog SDK. wooting_analog_read_analog returns
// a float, which a syscall cannot carry back, so every read goes through
// wooting_analog_read_full_buffer instead.
type sdkSource struct {
	log  *zerolog.Logger
	init initOnce

	dll              *windows.LazyDLL
	procInitialise   *windows.LazyProc
	procIsInit       *windows.LazyProc
	procFullBuffer   *windows.LazyProc
	procUninitialise *windows.LazyProc

	mu     sync.Mutex
	codes  [bufferLen]uint16
	values [bufferLen]float32
}

func newSDKSource(opts Options) (Source, error) {
	path := opts.SDKPath
	if path == "" {
		path = sdkLibrary
		if exe, err := os.Executable(); err == nil {
			local := filepath.Join(filepath.Dir(exe), sdkLibrary)
			if _, err := os.Stat(local); err == nil {
				path = local
			}
		}
	}
	dll := windows.NewLazyDLL(path)
	return &sdkSource{
		log:              opts.Logger,
		dll:              dll,
		procInitialise:   dll.NewProc("wooting_analog_initialise"),
		procIsInit:       dll.NewProc("wooting_analog_is_initialised"),
		procFullBuffer:   dll.NewProc("wooting_analog_read_full_buffer"),
		procUninitialise: dll.NewProc("wooting_analog_uninitialise"),
	}, nil
}

func sdkAvailable(s Source) bool {
	sdk, ok := s.(*sdkSource)
	return ok && sdk.dll.Load() == nil
}

func (s *sdkSource) Name() string { return "sdk" }

func (s *sdkSource) Initialize() (int, error) {
	return s.init.do(func() (int, error) {
		if err := s.dll.Load(); err != nil {
			return 0, &motion.DeviceError{Op: "load " + s.dll.Name, Err: err}
		}
		r, _, _ := s.procInitialise.Call()
		n := int32(r)
		if n < 0 {
			return 0, &motion.DeviceError{Op: "wooting_analog_initialise", Err: sdkResult(n)}
		}
		if n == 0 {
			s.log.Warn().Msg("SDK initialized but no analog keyboard is connected")
		} else {
			s.log.Info().Int32("devices", n).Msg("analog SDK initialized")
		}
		return int(n), nil
	})
}

func (s *sdkSource) IsInitialized() bool {
	if !s.init.ok() {
		return false
	}
	r, _, _ := s.procIsInit.Call()
	return byte(r) != 0
}

func (s *sdkSource) read(op string) (snapshot, error) {
	if !s.init.ok() {
		return nil, notInitialized(op)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, _, _ := s.procFullBuffer.Call(
		uintptr(unsafe.Pointer(&s.codes[0])),
		uintptr(unsafe.Pointer(&s.values[0])),
		uintptr(bufferLen),
	)
	n := int32(r)
	if n < 0 {
		return nil, &motion.DeviceError{Op: op, Err: sdkResult(n)}
	}
	out := make(snapshot, n)
	for i := int32(0); i < n && i < bufferLen; i++ {
		out[s.codes[i]] = clamp01(float64(s.values[i]))
	}
	return out, nil
}

func (s *sdkSource) Read(code uint16) (float64, error) {
	snap, err := s.read("sdk read")
	if err != nil {
		return 0, err
	}
	return snap[code], nil
}

func (s *sdkSource) CurrentlyPressed() ([]uint16, error) {
	snap, err := s.read("sdk pressed keys")
	if err != nil {
		return nil, err
	}
	return snap.pressed(), nil
}

func (s *sdkSource) Close() error {
	if !s.init.ok() {
		return nil
	}
	r, _, _ := s.procUninitialise.Call()
	if n := int32(r); n < 0 {
		return &motion.DeviceError{Op: "wooting_analog_uninitialise", Err: sdkResult(n)}
	}
	return nil
}

// sdkResult names the SDK's WootingAnalogResult codes.
type sdkResult int32

func (r sdkResult) Error() string {
	switch r {
	case -2000:
		return "SDK not initialised"
	case -1999:
		return "no devices connected"
	case -1998:
		return "device disconnected"
	case -1997:
		return "SDK failure"
	case -1996:
		return "invalid argument"
	case -1995:
		return "no plugins found"
	case -1994:
		return "function not found"
	case -1993:
		return "no keycode mapping"
	case -1992:
		return "not available"
	case -1991:
		return "incompatible SDK version"
	case -1990:
		return "DLL not found"
	}
	return fmt.Sprintf("SDK error %d", int32(r))
}
