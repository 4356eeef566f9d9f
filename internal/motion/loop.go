// Package motion turns analog key travel into pointer motion and scrolling.
//
// A Loop samples eight channels once per tick on a single goroutine. Its
// configuration is fixed at construction; changing settings means stopping
// the loop and starting a new one (see Supervisor).
package motion

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the delay between the end of one tick and the start of
// the next.
const DefaultInterval = 10 * time.Millisecond

// warnEvery limits how often a repeating fault is logged above Debug.
const warnEvery = time.Second

var defaultLogger = zerolog.New(os.Stderr).With().Timestamp().Str("subsystem", "motion").Logger()

// State is the lifecycle position of a Loop.
type State int32

const (
	Idle State = iota
	Running
	Cancelling
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Cancelling:
		return "cancelling"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Tick is what one loop iteration saw and produced.
type Tick struct {
	At        time.Time            `json:"at"`
	Gated     bool                 `json:"gated"`
	Raw       [NumChannels]float64 `json:"raw"`
	Processed [NumChannels]float64 `json:"processed"`
	Vector    Vector               `json:"vector"`
}

// Options configures a Loop.
type Options struct {
	Config  ResponseConfig
	Mapping ChannelMapping
	Gate    ActivationGate

	Source AnalogSource
	Sink   PointerSink
	// Keys is required when Gate is enabled.
	Keys PressedKeys

	Interval time.Duration
	Logger   *zerolog.Logger
	Metrics  *Metrics
	// Observer receives every completed or gated tick on the loop goroutine.
	// It must not block.
	Observer func(Tick)
}

// Loop is a single-use polling loop.
type Loop struct {
	cfg      ResponseConfig
	mapping  ChannelMapping
	gate     ActivationGate
	source   AnalogSource
	sink     PointerSink
	keys     PressedKeys
	interval time.Duration
	log      *zerolog.Logger
	metrics  *Metrics
	observer func(Tick)

	state      atomic.Int32
	lastWarn   map[string]time.Time
	suppressed map[string]int
}

// NewLoop checks opts and returns an idle loop. Configuration problems are
// reported as *ConfigError, an uninitialized source as *DeviceError.
func NewLoop(opts Options) (*Loop, error) {
	if !opts.Config.Valid() {
		return nil, &ConfigError{Field: "response_config", Value: opts.Config.Params(), Reason: "not built with NewResponseConfig"}
	}
	if opts.Source == nil {
		return nil, &DeviceError{Op: "no analog source"}
	}
	if !opts.Source.IsInitialized() {
		return nil, &DeviceError{Op: "source not initialized"}
	}
	if opts.Sink == nil {
		return nil, &ConfigError{Field: "pointer_sink", Value: nil, Reason: "required"}
	}
	if opts.Gate.Enabled && opts.Keys == nil {
		return nil, &ConfigError{Field: "activation_gate", Value: opts.Gate.Key, Reason: "enabled without a pressed-key query"}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		l := defaultLogger
		opts.Logger = &l
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}

	return &Loop{
		cfg:        opts.Config,
		mapping:    opts.Mapping,
		gate:       opts.Gate,
		source:     opts.Source,
		sink:       opts.Sink,
		keys:       opts.Keys,
		interval:   opts.Interval,
		log:        opts.Logger,
		metrics:    opts.Metrics,
		observer:   opts.Observer,
		lastWarn:   make(map[string]time.Time),
		suppressed: make(map[string]int),
	}, nil
}

// State returns the current lifecycle state.
func (l *Loop) State() State { return State(l.state.Load()) }

// Config returns the loop's response configuration.
func (l *Loop) Config() ResponseConfig { return l.cfg }

// Start launches the tick goroutine. A loop can be started once.
func (l *Loop) Start(ctx context.Context) (*Handle, error) {
	if !l.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return nil, ErrNotIdle
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{loop: l, cancel: cancel, done: make(chan struct{})}

	l.log.Info().
		Dur("interval", l.interval).
		Str("curve", string(l.cfg.curve.Type)).
		Bool("gate", l.gate.Enabled).
		Msg("polling loop started")

	go l.run(ctx, h.done)
	return h, nil
}

func (l *Loop) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	defer func() {
		l.state.Store(int32(Stopped))
		l.log.Info().Msg("polling loop stopped")
	}()

	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			l.state.CompareAndSwap(int32(Running), int32(Cancelling))
			return
		}

		l.tick(ctx)

		timer.Reset(l.interval)
		select {
		case <-ctx.Done():
			l.state.CompareAndSwap(int32(Running), int32(Cancelling))
			return
		case <-timer.C:
		}
	}
}

// tick runs one iteration. Every fault is contained here.
func (l *Loop) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.fault("panic", fmt.Errorf("%v", r))
		}
	}()

	l.metrics.Ticks.Inc()
	t := Tick{At: time.Now()}

	if l.gate.Enabled {
		held, err := l.gateHeld()
		if err != nil {
			l.fault("gate", err)
			return
		}
		if !held {
			l.metrics.GatedTicks.Inc()
			t.Gated = true
			l.observe(t)
			return
		}
		if ctx.Err() != nil {
			return
		}
	}

	for _, c := range Channels {
		raw, err := l.source.Read(l.mapping[c])
		if err != nil {
			l.fault("read", fmt.Errorf("%s (key 0x%02X): %w", c, l.mapping[c], err))
			return
		}
		t.Raw[c] = raw
		t.Processed[c] = l.cfg.curve.Apply(raw)
	}

	t.Vector = Combine(t.Processed, l.cfg)

	if t.Vector.Moves() {
		if err := l.sink.Move(t.Vector.DX, t.Vector.DY); err != nil {
			l.fault("move", err)
			return
		}
		l.metrics.Moves.Inc()
	}
	if t.Vector.Scrolls() {
		if err := l.sink.Scroll(t.Vector.ScrollX, t.Vector.ScrollY); err != nil {
			l.fault("scroll", err)
			return
		}
		l.metrics.Scrolls.Inc()
	}

	l.observe(t)
}

func (l *Loop) gateHeld() (bool, error) {
	pressed, err := l.keys.CurrentlyPressed()
	if err != nil {
		return false, err
	}
	return slices.Contains(pressed, l.gate.Key), nil
}

func (l *Loop) observe(t Tick) {
	if l.observer != nil {
		l.observer(t)
	}
}

// fault logs a transient error. The first occurrence per op in each window is
// a warning; repeats inside the window go to Debug and are tallied.
func (l *Loop) fault(op string, err error) {
	l.metrics.Faults.WithLabelValues(op).Inc()

	now := time.Now()
	if now.Sub(l.lastWarn[op]) >= warnEvery {
		l.log.Warn().Err(err).Str("op", op).Int("suppressed", l.suppressed[op]).Msg("tick aborted")
		l.lastWarn[op] = now
		l.suppressed[op] = 0
		return
	}
	l.suppressed[op]++
	l.log.Debug().Err(err).Str("op", op).Msg("tick aborted")
}

// Handle controls a started Loop.
type Handle struct {
	loop   *Loop
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Loop returns the loop this handle controls.
func (h *Handle) Loop() *Loop { return h.loop }

// State returns the loop's lifecycle state.
func (h *Handle) State() State { return h.loop.State() }

// Done is closed once the loop goroutine has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel requests a stop without waiting. It is safe to call repeatedly and
// from any goroutine.
func (h *Handle) Cancel() {
	h.once.Do(func() {
		h.loop.state.CompareAndSwap(int32(Running), int32(Cancelling))
		h.cancel()
	})
}

// Stop cancels the loop and waits up to timeout for the in-flight tick to
// finish.
func (h *Handle) Stop(timeout time.Duration) error {
	h.Cancel()
	select {
	case <-h.done:
		return nil
	case <-time.After(timeout):
		return ErrStopTimeout
	}
}
