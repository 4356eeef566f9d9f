package motion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisorRestartOrdersLoops(t *testing.T) {
	j := &journal{}
	src := newFakeSource()
	src.set(testMapping[MoveRight], 1)

	l1 := newTestLoop(t, src, newRecordingSink("L1", j), ActivationGate{})
	l2 := newTestLoop(t, src, newRecordingSink("L2", j), ActivationGate{})

	s := NewSupervisor(context.Background(), quietLogger(), nil)
	require.NoError(t, s.Start(l1))
	require.Eventually(t, func() bool { return j.count("L1") >= 2 }, time.Second, time.Millisecond)

	require.NoError(t, s.Restart(l2))
	assert.Equal(t, Stopped, l1.State(), "old loop is stopped before restart returns")

	require.Eventually(t, func() bool { return j.count("L2") >= 2 }, time.Second, time.Millisecond)
	require.NoError(t, s.Stop())

	calls := j.snapshot()
	firstL2 := -1
	for i, c := range calls {
		if c.tag == "L2" {
			firstL2 = i
			break
		}
	}
	require.NotEqual(t, -1, firstL2)
	for _, c := range calls[firstL2:] {
		assert.Equal(t, "L2", c.tag, "L1 dispatched after L2 started")
	}
	assert.Equal(t, Stopped, s.State())
	assert.False(t, s.Running())
}

// blockingSink holds the loop inside Move until released.
type blockingSink struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSink) Move(dx, dy float64) error {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return nil
}

func (b *blockingSink) Scroll(dx, dy float64) error { return nil }

func TestSupervisorRestartRefusedWhenOldLoopHangs(t *testing.T) {
	src := newFakeSource()
	src.set(testMapping[MoveRight], 1)
	stuck := &blockingSink{entered: make(chan struct{}, 1), release: make(chan struct{})}
	defer close(stuck.release)

	l1 := newTestLoop(t, src, stuck, ActivationGate{})
	l2 := newTestLoop(t, src, newRecordingSink("L2", nil), ActivationGate{})

	s := NewSupervisor(context.Background(), quietLogger(), nil)
	s.SetStopTimeout(20 * time.Millisecond)
	require.NoError(t, s.Start(l1))

	select {
	case <-stuck.entered:
	case <-time.After(time.Second):
		t.Fatal("loop never reached the sink")
	}

	err := s.Restart(l2)
	require.ErrorIs(t, err, ErrStopTimeout)
	assert.Equal(t, Idle, l2.State(), "new loop must not start while the old one runs")
	assert.Equal(t, Cancelling, l1.State())
}

func TestSupervisorStopWithoutLoop(t *testing.T) {
	s := NewSupervisor(context.Background(), nil, nil)
	assert.NoError(t, s.Stop())
	assert.Equal(t, Stopped, s.State())
}
