package motion

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"wootrat/internal/curve"
)

// fakeSource is a scripted analog source.
type fakeSource struct {
	mu          sync.Mutex
	values      map[uint16]float64
	pressed     []uint16
	failReads   int
	reads       int
	initialized bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{values: make(map[uint16]float64), initialized: true}
}

func (f *fakeSource) Initialize() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized = true
	return 1, nil
}

func (f *fakeSource) IsInitialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initialized
}

func (f *fakeSource) Read(code uint16) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.failReads > 0 {
		f.failReads--
		return 0, errors.New("device unplugged")
	}
	return f.values[code], nil
}

func (f *fakeSource) CurrentlyPressed() ([]uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint16(nil), f.pressed...), nil
}

func (f *fakeSource) set(code uint16, v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[code] = v
}

func (f *fakeSource) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// call is one dispatch seen by a recordingSink.
type call struct {
	tag  string
	kind string
	x, y float64
}

// journal is an ordered record shared by several sinks.
type journal struct {
	mu    sync.Mutex
	calls []call
}

func (j *journal) add(c call) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, c)
}

func (j *journal) snapshot() []call {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]call(nil), j.calls...)
}

func (j *journal) count(tag string) int {
	n := 0
	for _, c := range j.snapshot() {
		if c.tag == tag {
			n++
		}
	}
	return n
}

type recordingSink struct {
	tag       string
	j         *journal
	moveErr   error
	panicMove bool
}

func newRecordingSink(tag string, j *journal) *recordingSink {
	if j == nil {
		j = &journal{}
	}
	return &recordingSink{tag: tag, j: j}
}

func (s *recordingSink) Move(dx, dy float64) error {
	if s.panicMove {
		panic("injector blew up")
	}
	if s.moveErr != nil {
		return s.moveErr
	}
	s.j.add(call{tag: s.tag, kind: "move", x: dx, y: dy})
	return nil
}

func (s *recordingSink) Scroll(dx, dy float64) error {
	s.j.add(call{tag: s.tag, kind: "scroll", x: dx, y: dy})
	return nil
}

var testMapping = ChannelMapping{
	MoveUp: 0x68, MoveDown: 0x6A, MoveLeft: 0x69, MoveRight: 0x6B,
	ScrollUp: 0x6C, ScrollDown: 0x6D, ScrollLeft: 0x6E, ScrollRight: 0x6F,
}

func testConfig(t *testing.T) ResponseConfig {
	t.Helper()
	cfg, err := NewResponseConfig(ResponseParams{
		ActivationPoint:   0.1,
		MaximumActuation:  1.0,
		CurveFactor:       2.0,
		CurveType:         curve.Power,
		MoveSensitivity:   10,
		ScrollSensitivity: 0.5,
		YDamping:          0.25,
	})
	require.NoError(t, err)
	return cfg
}

func quietLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newTestLoop(t *testing.T, src *fakeSource, sink PointerSink, gate ActivationGate) *Loop {
	t.Helper()
	l, err := NewLoop(Options{
		Config:   testConfig(t),
		Mapping:  testMapping,
		Gate:     gate,
		Source:   src,
		Sink:     sink,
		Keys:     src,
		Interval: 2 * time.Millisecond,
		Logger:   quietLogger(),
	})
	require.NoError(t, err)
	return l
}
