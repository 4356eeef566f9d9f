package analog

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sstallion/go-hid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wootrat/internal/motion"
)

type fakeReport struct {
	data []byte
	err  error
}

type fakeDevice struct {
	reports chan fakeReport
	closed  atomic.Bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{reports: make(chan fakeReport, 4)}
}

func (f *fakeDevice) ReadWithTimeout(p []byte, timeout time.Duration) (int, error) {
	select {
	case r := <-f.reports:
		if r.err != nil {
			return 0, r.err
		}
		return copy(p, r.data), nil
	case <-time.After(timeout):
		return 0, hid.ErrTimeout
	}
}

func (f *fakeDevice) Close() error {
	f.closed.Store(true)
	return nil
}

// fakeHID hands out devices in order and refuses to open while unplugged.
type fakeHID struct {
	mu        sync.Mutex
	devices   []*fakeDevice
	products  []string
	unplugged bool
	opens     int
	exits     atomic.Int32
}

func (f *fakeHID) open() (opened, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.unplugged || len(f.devices) == 0 {
		return opened{}, &motion.DeviceError{Op: "hid enumerate", Err: ErrNoDevice}
	}
	d, p := f.devices[0], f.products[0]
	f.devices, f.products = f.devices[1:], f.products[1:]
	return opened{dev: d, product: p, count: 1}, nil
}

func (f *fakeHID) setUnplugged(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unplugged = v
}

func (f *fakeHID) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func newFakeHIDSource(f *fakeHID) *hidSource {
	l := zerolog.Nop()
	h := newHIDSource(Options{Logger: &l})
	h.hidInit = func() error { return nil }
	h.hidExit = func() error {
		f.exits.Add(1)
		return nil
	}
	h.openDevice = f.open
	h.backoffMin = time.Millisecond
	h.backoffMax = 5 * time.Millisecond
	return h
}

func TestHIDReconnectsAfterReadError(t *testing.T) {
	first, second := newFakeDevice(), newFakeDevice()
	f := &fakeHID{devices: []*fakeDevice{first, second}, products: []string{"One", "Two"}}
	h := newFakeHIDSource(f)

	n, err := h.Initialize()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "hid:One", h.Name())

	first.reports <- fakeReport{data: []byte{0x00, 0x1A, 0xFF}}
	assert.Eventually(t, func() bool {
		v, err := h.Read(0x1A)
		return err == nil && v == 1
	}, time.Second, time.Millisecond)

	f.setUnplugged(true)
	first.reports <- fakeReport{err: errors.New("device disconnected")}
	assert.Eventually(t, func() bool {
		_, err := h.Read(0x1A)
		return errors.Is(err, motion.ErrDevice)
	}, time.Second, time.Millisecond)
	assert.Eventually(t, first.closed.Load, time.Second, time.Millisecond)
	_, err = h.CurrentlyPressed()
	assert.ErrorIs(t, err, motion.ErrDevice)

	// Retries continue while the keyboard is gone.
	assert.Eventually(t, func() bool { return f.openCount() >= 3 }, time.Second, time.Millisecond)

	f.setUnplugged(false)
	assert.Eventually(t, func() bool {
		v, err := h.Read(0x1A)
		return err == nil && v == 0
	}, time.Second, time.Millisecond)
	assert.Equal(t, "hid:Two", h.Name())

	second.reports <- fakeReport{data: []byte{0x00, 0x1A, 0xFF}}
	assert.Eventually(t, func() bool {
		keys, err := h.CurrentlyPressed()
		return err == nil && len(keys) == 1 && keys[0] == 0x1A
	}, time.Second, time.Millisecond)

	require.NoError(t, h.Close())
	assert.True(t, second.closed.Load())
	assert.Equal(t, int32(1), f.exits.Load())
}

func TestHIDCloseWhileReconnecting(t *testing.T) {
	dev := newFakeDevice()
	f := &fakeHID{devices: []*fakeDevice{dev}, products: []string{"One"}}
	h := newFakeHIDSource(f)
	_, err := h.Initialize()
	require.NoError(t, err)

	dev.reports <- fakeReport{err: errors.New("device disconnected")}
	assert.Eventually(t, func() bool { return f.openCount() >= 2 }, time.Second, time.Millisecond)

	require.NoError(t, h.Close())
	assert.Equal(t, int32(1), f.exits.Load())
	assert.NoError(t, h.Close())
}

func TestHIDInitializeFailureReleasesLibrary(t *testing.T) {
	f := &fakeHID{}
	h := newFakeHIDSource(f)

	_, err := h.Initialize()
	assert.ErrorIs(t, err, motion.ErrDevice)
	assert.ErrorIs(t, err, ErrNoDevice)
	assert.Equal(t, int32(1), f.exits.Load())
	assert.False(t, h.IsInitialized())

	_, err = h.Read(0x1A)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.NoError(t, h.Close())
	assert.Equal(t, int32(1), f.exits.Load())
}
