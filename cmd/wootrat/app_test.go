package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wootrat/internal/config"
	"wootrat/internal/keys"
	"wootrat/internal/motion"
)

type fakeSource struct {
	mu     sync.Mutex
	travel map[uint16]float64
}

func (f *fakeSource) Initialize() (int, error) { return 1, nil }
func (f *fakeSource) IsInitialized() bool      { return true }
func (f *fakeSource) Name() string             { return "fake" }

func (f *fakeSource) Read(code uint16) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.travel[code], nil
}

func (f *fakeSource) CurrentlyPressed() ([]uint16, error) { return nil, nil }

func (f *fakeSource) set(code uint16, v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.travel[code] = v
}

type fakeSink struct {
	mu    sync.Mutex
	moves [][2]float64
}

func (f *fakeSink) Move(dx, dy float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, [2]float64{dx, dy})
	return nil
}

func (f *fakeSink) Scroll(dx, dy float64) error { return nil }

func (f *fakeSink) lastMove() ([2]float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.moves) == 0 {
		return [2]float64{}, false
	}
	return f.moves[len(f.moves)-1], true
}

func newTestApp(t *testing.T) (*app, *fakeSource, *fakeSink) {
	t.Helper()
	l := zerolog.Nop()
	mgr, err := config.NewManager(filepath.Join(t.TempDir(), "config.json"), &l)
	require.NoError(t, err)
	require.NoError(t, mgr.Load())

	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{travel: map[uint16]float64{}}
	sink := &fakeSink{}
	a := &app{
		settings: mgr,
		src:      src,
		sink:     sink,
		sup:      motion.NewSupervisor(ctx, &l, nil),
		log:      &l,
		devices:  1,
	}
	mgr.RegisterChangeCallback(a.settingsChanged)
	t.Cleanup(func() {
		a.sup.Stop()
		cancel()
	})
	return a, src, sink
}

func TestAppApplyStartsLoop(t *testing.T) {
	a, src, sink := newTestApp(t)
	require.NoError(t, a.apply())

	st := a.Status()
	assert.Equal(t, "running", st.State)
	assert.Equal(t, "fake", st.Backend)
	assert.Equal(t, 1, st.Devices)
	assert.Equal(t, a.settings.Path(), st.ConfigPath)
	assert.Empty(t, st.Error)

	right, err := keys.Parse(a.settings.Get().MoveRight)
	require.NoError(t, err)
	src.set(right, 1)

	assert.Eventually(t, func() bool {
		m, ok := sink.lastMove()
		return ok && m[0] == 23 && m[1] == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestAppPauseResume(t *testing.T) {
	a, _, _ := newTestApp(t)
	require.NoError(t, a.apply())

	var seen []bool
	a.setHooks(func(p bool) { seen = append(seen, p) }, nil)

	require.NoError(t, a.SetPaused(true))
	assert.True(t, a.Paused())
	assert.Equal(t, "stopped", a.Status().State)

	// Settings changes while paused are validated but do not start a loop.
	require.NoError(t, a.apply())
	assert.Equal(t, "stopped", a.Status().State)

	require.NoError(t, a.SetPaused(true))
	require.NoError(t, a.SetPaused(false))
	assert.False(t, a.Paused())
	assert.Equal(t, "running", a.Status().State)
	assert.Equal(t, []bool{true, false}, seen)
}

func TestAppRejectedSettingsKeepRunningLoop(t *testing.T) {
	a, _, _ := newTestApp(t)
	require.NoError(t, a.apply())

	s := a.settings.Get()
	s.Deadzone = 0.9
	s.OuterDeadzone = 0.5
	a.settings.Set(s)

	st := a.Status()
	assert.Equal(t, "running", st.State)
	assert.Contains(t, st.Error, "deadzone")

	s.Deadzone = 0.1
	s.OuterDeadzone = 1
	a.settings.Set(s)
	assert.Empty(t, a.Status().Error)
}

func TestAppSettingsChangedSyncsAutostart(t *testing.T) {
	a, _, _ := newTestApp(t)
	require.NoError(t, a.apply())

	var synced []bool
	a.autostart = func(want bool) error {
		synced = append(synced, want)
		return errors.New("not here")
	}
	var changed []bool
	a.setHooks(nil, func(s config.Settings) { changed = append(changed, s.Autostart) })

	s := a.settings.Get()
	s.Autostart = true
	require.NoError(t, a.settings.Update(s))

	assert.Equal(t, []bool{true}, synced)
	assert.Equal(t, []bool{true}, changed)
	assert.Equal(t, "running", a.Status().State)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(&motion.DeviceError{Op: "open"}))
	assert.Equal(t, 1, exitCode(&motion.ConfigError{Field: "curve_factor"}))
	assert.Equal(t, 2, exitCode(errors.New("other")))
}

func TestPrintPreview(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printPreview(&buf, config.Defaults()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 23)
	assert.Contains(t, lines[0], "power")
	assert.Equal(t, []string{"0.00", "0.0000", "0.000", "0.0000"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"1.00", "1.0000", "23.000", "0.4000"}, strings.Fields(lines[22]))

	s := config.Defaults()
	s.CurveFactor = 0
	assert.ErrorIs(t, printPreview(&buf, s), motion.ErrInvalidConfiguration)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	_, err = newLogger(&buf, "loud", "json")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}
