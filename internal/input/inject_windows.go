//go:build windows

package input

import (
	"fmt"
	"unsafe"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

const (
	inputMouse = 0

	mouseeventfMove   = 0x0001
	mouseeventfWheel  = 0x0800
	mouseeventfHWheel = 0x1000

	wheelDelta = 120
)

// mouseInput mirrors INPUT with its MOUSEINPUT union member.
type mouseInput struct {
	Type      uint32
	_         uint32
	Dx        int32
	Dy        int32
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type sendInput struct{}

func newBackend(*zerolog.Logger) (backend, error) {
	if err := procSendInput.Find(); err != nil {
		return nil, err
	}
	return sendInput{}, nil
}

func (sendInput) name() string           { return "sendinput" }
func (sendInput) unitsPerNotch() float64 { return wheelDelta }

func (s sendInput) moveBy(dx, dy int32) error {
	return s.send(mouseInput{Type: inputMouse, Dx: dx, Dy: dy, Flags: mouseeventfMove})
}

func (s sendInput) scrollBy(dx, dy int32) error {
	var in []mouseInput
	if dy != 0 {
		in = append(in, mouseInput{Type: inputMouse, MouseData: uint32(dy), Flags: mouseeventfWheel})
	}
	if dx != 0 {
		// HWHEEL is positive to the right.
		in = append(in, mouseInput{Type: inputMouse, MouseData: uint32(-dx), Flags: mouseeventfHWheel})
	}
	return s.send(in...)
}

func (sendInput) send(in ...mouseInput) error {
	if len(in) == 0 {
		return nil
	}
	n, _, err := procSendInput.Call(
		uintptr(len(in)),
		uintptr(unsafe.Pointer(&in[0])),
		unsafe.Sizeof(in[0]),
	)
	if int(n) != len(in) {
		return fmt.Errorf("SendInput: %d of %d events accepted: %w", n, len(in), err)
	}
	return nil
}

func (sendInput) close() error { return nil }
