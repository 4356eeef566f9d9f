//go:build linux

package input

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Constants from linux/uinput.h and linux/input-event-codes.h.
const (
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetRelBit  = 0x40045566

	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02

	synReport = 0

	relX           = 0x00
	relY           = 0x01
	relHWheel      = 0x06
	relWheel       = 0x08
	relWheelHiRes  = 0x0b
	relHWheelHiRes = 0x0c

	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112

	busVirtual = 0x06

	// hiResPerNotch is the high resolution wheel unit per detent.
	hiResPerNotch = 120
)

const deviceName = "WootRat Virtual Mouse"

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputUserDev struct {
	Name       [80]byte
	ID         inputID
	EffectsMax uint32
	Absmax     [64]int32
	Absmin     [64]int32
	Absfuzz    [64]int32
	Absflat    [64]int32
}

type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// uinputMouse is a virtual relative pointer registered with the kernel.
// Legacy wheel clients only see whole detents, so the high resolution
// stream is mirrored into REL_WHEEL once enough has accumulated.
type uinputMouse struct {
	f   *os.File
	log *zerolog.Logger

	legacyX, legacyY int32
}

func newBackend(logger *zerolog.Logger) (backend, error) {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/uinput: %w (is the uinput module loaded and writable?)", err)
	}
	m := &uinputMouse{f: f, log: logger}
	if err := m.setup(); err != nil {
		f.Close()
		return nil, err
	}
	return m, nil
}

func (m *uinputMouse) setup() error {
	fd := int(m.f.Fd())
	bits := []struct {
		req  uint
		code int
	}{
		{uiSetEvBit, evKey},
		{uiSetEvBit, evRel},
		{uiSetKeyBit, btnLeft},
		{uiSetKeyBit, btnRight},
		{uiSetKeyBit, btnMiddle},
		{uiSetRelBit, relX},
		{uiSetRelBit, relY},
		{uiSetRelBit, relWheel},
		{uiSetRelBit, relHWheel},
		{uiSetRelBit, relWheelHiRes},
		{uiSetRelBit, relHWheelHiRes},
	}
	for _, b := range bits {
		if err := unix.IoctlSetInt(fd, b.req, b.code); err != nil {
			return fmt.Errorf("uinput ioctl 0x%x(%d): %w", b.req, b.code, err)
		}
	}

	dev := uinputUserDev{ID: inputID{Bustype: busVirtual, Vendor: 0x1209, Product: 0x7772, Version: 1}}
	copy(dev.Name[:], deviceName)
	if err := binary.Write(m.f, binary.LittleEndian, &dev); err != nil {
		return fmt.Errorf("uinput device setup: %w", err)
	}
	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		return fmt.Errorf("uinput create: %w", err)
	}
	return nil
}

func (m *uinputMouse) name() string           { return "uinput" }
func (m *uinputMouse) unitsPerNotch() float64 { return hiResPerNotch }

func (m *uinputMouse) moveBy(dx, dy int32) error {
	var buf bytes.Buffer
	if dx != 0 {
		writeEvent(&buf, evRel, relX, dx)
	}
	if dy != 0 {
		writeEvent(&buf, evRel, relY, dy)
	}
	return m.flush(&buf)
}

func (m *uinputMouse) scrollBy(dx, dy int32) error {
	var buf bytes.Buffer
	if dy != 0 {
		writeEvent(&buf, evRel, relWheelHiRes, dy)
		if n := m.detents(&m.legacyY, dy); n != 0 {
			writeEvent(&buf, evRel, relWheel, n)
		}
	}
	if dx != 0 {
		// HWHEEL is positive to the right.
		writeEvent(&buf, evRel, relHWheelHiRes, -dx)
		if n := m.detents(&m.legacyX, -dx); n != 0 {
			writeEvent(&buf, evRel, relHWheel, n)
		}
	}
	return m.flush(&buf)
}

// detents folds hi-res units into acc and returns the whole detents.
func (m *uinputMouse) detents(acc *int32, units int32) int32 {
	*acc += units
	n := *acc / hiResPerNotch
	*acc -= n * hiResPerNotch
	return n
}

func (m *uinputMouse) flush(buf *bytes.Buffer) error {
	if buf.Len() == 0 {
		return nil
	}
	writeEvent(buf, evSyn, synReport, 0)
	if _, err := m.f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("uinput write: %w", err)
	}
	return nil
}

func (m *uinputMouse) close() error {
	if m.f == nil {
		return nil
	}
	if err := unix.IoctlSetInt(int(m.f.Fd()), uiDevDestroy, 0); err != nil {
		m.log.Debug().Err(err).Msg("uinput destroy")
	}
	err := m.f.Close()
	m.f = nil
	return err
}

func writeEvent(buf *bytes.Buffer, typ, code uint16, value int32) {
	// Writes to a bytes.Buffer cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, inputEvent{Type: typ, Code: code, Value: value})
}
