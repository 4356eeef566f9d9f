package main

import (
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"wootrat/internal/config"
	"wootrat/internal/keys"
	"wootrat/internal/motion"
	"wootrat/internal/ui"
)

// source is what the app needs from an analog backend.
type source interface {
	motion.AnalogSource
	motion.PressedKeys
	Name() string
}

// app ties settings to the running loop. Every settings change becomes a
// cooperative restart through the supervisor.
type app struct {
	mu       sync.Mutex
	settings *config.Manager
	src      source
	sink     motion.PointerSink
	sup      *motion.Supervisor
	metrics  *motion.Metrics
	observer func(motion.Tick)
	log      *zerolog.Logger

	devices   int
	paused    bool
	lastErr   error
	autostart func(bool) error
	onPause   func(bool)
	onChange  func(config.Settings)
}

// buildLoop turns settings into an idle loop.
func (a *app) buildLoop(s config.Settings) (*motion.Loop, error) {
	cfg, mapping, gate, err := s.Build()
	if err != nil {
		return nil, err
	}
	interval, err := s.Interval()
	if err != nil {
		return nil, err
	}

	overlaps := mapping.Overlaps()
	codes := make([]int, 0, len(overlaps))
	for code := range overlaps {
		codes = append(codes, int(code))
	}
	sort.Ints(codes)
	for _, code := range codes {
		names := make([]string, 0, 2)
		for _, c := range overlaps[uint16(code)] {
			names = append(names, c.String())
		}
		a.log.Warn().Str("key", keys.Name(uint16(code))).Strs("channels", names).Msg("key drives more than one channel")
	}

	return motion.NewLoop(motion.Options{
		Config:   cfg,
		Mapping:  mapping,
		Gate:     gate,
		Source:   a.src,
		Sink:     a.sink,
		Keys:     a.src,
		Interval: interval,
		Logger:   a.log,
		Metrics:  a.metrics,
		Observer: a.observer,
	})
}

// apply restarts the loop with the current settings. While paused it only
// validates them. A rejected configuration leaves the running loop alone.
func (a *app) apply() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.applyLocked()
}

func (a *app) applyLocked() error {
	l, err := a.buildLoop(a.settings.Get())
	if err != nil {
		a.lastErr = err
		return err
	}
	if a.paused {
		a.lastErr = nil
		return nil
	}
	if err := a.sup.Restart(l); err != nil {
		a.lastErr = err
		return err
	}
	a.lastErr = nil
	return nil
}

// settingsChanged is the config change callback.
func (a *app) settingsChanged() {
	if err := a.apply(); err != nil {
		a.log.Error().Err(err).Msg("settings not applied")
	} else {
		a.log.Info().Msg("settings applied")
	}
	s := a.settings.Get()
	a.mu.Lock()
	fn := a.onChange
	a.mu.Unlock()
	if a.autostart != nil {
		if err := a.autostart(s.Autostart); err != nil {
			a.log.Warn().Err(err).Msg("autostart not updated")
		}
	}
	if fn != nil {
		fn(s)
	}
}

// setHooks installs the tray callbacks.
func (a *app) setHooks(onPause func(bool), onChange func(config.Settings)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onPause = onPause
	a.onChange = onChange
}

// SetPaused stops or restarts polling.
func (a *app) SetPaused(paused bool) error {
	a.mu.Lock()
	if a.paused == paused {
		a.mu.Unlock()
		return nil
	}
	a.paused = paused
	var err error
	if paused {
		err = a.sup.Stop()
	} else {
		err = a.applyLocked()
	}
	fn := a.onPause
	a.mu.Unlock()

	if err != nil {
		return err
	}
	a.log.Info().Bool("paused", paused).Msg("polling toggled")
	if fn != nil {
		fn(paused)
	}
	return nil
}

// Paused reports whether polling is paused.
func (a *app) Paused() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paused
}

// Status implements ui.Controller.
func (a *app) Status() ui.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := ui.Status{
		State:      a.sup.State().String(),
		Paused:     a.paused,
		Backend:    a.src.Name(),
		Devices:    a.devices,
		ConfigPath: a.settings.Path(),
	}
	if a.lastErr != nil {
		st.Error = a.lastErr.Error()
	}
	return st
}

// exitCode maps startup failures to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, motion.ErrDevice), errors.Is(err, motion.ErrInvalidConfiguration):
		return 1
	}
	return 2
}
