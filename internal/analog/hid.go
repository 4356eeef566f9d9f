package analog

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sstallion/go-hid"

	"wootrat/internal/motion"
)

// Wooting vendor IDs: the current one and the Atmel ID used by early boards.
var wootingVendorIDs = []uint16{0x31E3, 0x03EB}

const (
	analogUsagePage = 0xFF54
	reportSize      = 64
	readTimeout     = 100 * time.Millisecond

	reconnectMin = 250 * time.Millisecond
	reconnectMax = 5 * time.Second
)

// reportDevice is the part of *hid.Device the reader uses.
type reportDevice interface {
	ReadWithTimeout(p []byte, timeout time.Duration) (int, error)
	Close() error
}

// opened is an analog interface ready for reading.
type opened struct {
	dev     reportDevice
	product string
	// count is the number of analog interfaces seen while looking.
	count int
}

// hidSource reads the keyboard's analog report interface directly. A lost
// interface is reopened in the background; reads fail with a DeviceError
// until it is back.
type hidSource struct {
	log  *zerolog.Logger
	init initOnce

	mu      sync.RWMutex
	latest  snapshot
	readErr error
	product string

	hidInit    func() error
	hidExit    func() error
	openDevice func() (opened, error)
	backoffMin time.Duration
	backoffMax time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

func newHIDSource(opts Options) *hidSource {
	h := &hidSource{
		log:        opts.Logger,
		latest:     snapshot{},
		hidInit:    hid.Init,
		hidExit:    hid.Exit,
		backoffMin: reconnectMin,
		backoffMax: reconnectMax,
		stop:       make(chan struct{}),
	}
	h.openDevice = h.openFirstAnalog
	return h
}

func (h *hidSource) Name() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.product != "" {
		return "hid:" + h.product
	}
	return "hid"
}

// Initialize opens the first analog interface found and starts the report
// reader. It returns the number of analog interfaces seen.
func (h *hidSource) Initialize() (int, error) {
	return h.init.do(func() (int, error) {
		if err := h.hidInit(); err != nil {
			return 0, &motion.DeviceError{Op: "hid init", Err: err}
		}
		o, err := h.openDevice()
		if err != nil {
			if exitErr := h.hidExit(); exitErr != nil {
				h.log.Debug().Err(exitErr).Msg("hid exit failed")
			}
			return 0, err
		}
		h.mu.Lock()
		h.product = o.product
		h.mu.Unlock()

		h.wg.Add(1)
		go h.readReports(o.dev)
		return o.count, nil
	})
}

// openFirstAnalog enumerates Wooting analog interfaces and opens the first
// one that succeeds.
func (h *hidSource) openFirstAnalog() (opened, error) {
	var found []hid.DeviceInfo
	for _, vid := range wootingVendorIDs {
		err := hid.Enumerate(vid, 0, func(info *hid.DeviceInfo) error {
			if info.UsagePage == analogUsagePage {
				found = append(found, *info)
			}
			return nil
		})
		if err != nil {
			return opened{}, &motion.DeviceError{Op: "hid enumerate", Err: err}
		}
	}
	if len(found) == 0 {
		return opened{}, &motion.DeviceError{Op: "hid enumerate", Err: ErrNoDevice}
	}

	var lastErr error
	for _, info := range found {
		dev, err := hid.OpenPath(info.Path)
		if err != nil {
			h.log.Debug().Err(err).Str("path", info.Path).Msg("open failed")
			lastErr = err
			continue
		}
		h.log.Info().
			Str("product", info.ProductStr).
			Str("vid", fmt.Sprintf("0x%04X", info.VendorID)).
			Str("pid", fmt.Sprintf("0x%04X", info.ProductID)).
			Msg("analog interface opened")
		return opened{dev: dev, product: info.ProductStr, count: len(found)}, nil
	}
	return opened{}, &motion.DeviceError{Op: "hid open", Err: lastErr}
}

func (h *hidSource) IsInitialized() bool { return h.init.ok() }

// readReports owns dev until stop closes.
func (h *hidSource) readReports(dev reportDevice) {
	defer h.wg.Done()
	buf := make([]byte, reportSize)
	for {
		select {
		case <-h.stop:
			dev.Close()
			return
		default:
		}

		n, err := dev.ReadWithTimeout(buf, readTimeout)
		if errors.Is(err, hid.ErrTimeout) {
			continue
		}
		if err == nil {
			h.mu.Lock()
			h.latest = parseReport(buf[:n])
			h.mu.Unlock()
			continue
		}

		h.mu.Lock()
		h.readErr = err
		h.latest = snapshot{}
		h.mu.Unlock()
		h.log.Warn().Err(err).Msg("analog interface lost, reconnecting")
		dev.Close()

		if dev = h.reconnect(); dev == nil {
			return
		}
	}
}

// reconnect retries openDevice with exponential backoff. It returns nil once
// stop closes.
func (h *hidSource) reconnect() reportDevice {
	delay := h.backoffMin
	for {
		select {
		case <-h.stop:
			return nil
		case <-time.After(delay):
		}
		o, err := h.openDevice()
		if err == nil {
			h.mu.Lock()
			h.readErr = nil
			h.latest = snapshot{}
			h.product = o.product
			h.mu.Unlock()
			h.log.Info().Str("product", o.product).Msg("analog interface reopened")
			return o.dev
		}
		h.log.Debug().Err(err).Dur("retry_in", delay).Msg("analog interface still missing")
		delay = min(delay*2, h.backoffMax)
	}
}

// current returns the latest snapshot or why it cannot be trusted.
func (h *hidSource) current(op string) (snapshot, error) {
	if !h.init.ok() {
		return nil, notInitialized(op)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.readErr != nil {
		return nil, &motion.DeviceError{Op: op, Err: h.readErr}
	}
	return h.latest, nil
}

func (h *hidSource) Read(code uint16) (float64, error) {
	s, err := h.current("hid read")
	if err != nil {
		return 0, err
	}
	return s[code], nil
}

func (h *hidSource) CurrentlyPressed() ([]uint16, error) {
	s, err := h.current("hid pressed keys")
	if err != nil {
		return nil, err
	}
	return s.pressed(), nil
}

func (h *hidSource) Close() error {
	if !h.init.ok() {
		return nil
	}
	select {
	case <-h.stop:
		return nil
	default:
		close(h.stop)
	}
	h.wg.Wait()
	return h.hidExit()
}

// parseReport decodes an analog report: a sequence of 3-byte entries, a
// big-endian HID usage code followed by the travel in 1/255 steps. The first
// entry with zero travel terminates the list.
func parseReport(b []byte) snapshot {
	out := snapshot{}
	for i := 0; i+3 <= len(b); i += 3 {
		v := b[i+2]
		if v == 0 {
			break
		}
		code := uint16(b[i])<<8 | uint16(b[i+1])
		out[code] = float64(v) / 255
	}
	return out
}
