package motion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultStopTimeout bounds how long a restart waits for the old loop.
const DefaultStopTimeout = 5 * time.Second

// Supervisor owns at most one running Loop and replaces it by cooperative
// restart: the old loop is confirmed stopped before the new one starts.
//
// Its methods may be called from any goroutine; calls are serialized.
type Supervisor struct {
	mu          sync.Mutex
	ctx         context.Context
	current     *Handle
	stopTimeout time.Duration
	log         *zerolog.Logger
	metrics     *Metrics
}

// NewSupervisor returns a supervisor whose loops run under ctx.
func NewSupervisor(ctx context.Context, logger *zerolog.Logger, metrics *Metrics) *Supervisor {
	if logger == nil {
		l := defaultLogger
		logger = &l
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Supervisor{
		ctx:         ctx,
		stopTimeout: DefaultStopTimeout,
		log:         logger,
		metrics:     metrics,
	}
}

// SetStopTimeout overrides DefaultStopTimeout.
func (s *Supervisor) SetStopTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimeout = d
}

// Start starts l if nothing is running, otherwise it behaves like Restart.
func (s *Supervisor) Start(l *Loop) error {
	return s.Restart(l)
}

// Restart stops the current loop, waits for it to exit and then starts l.
// If the old loop does not stop within the timeout, l is not started and the
// old loop stays cancelled.
func (s *Supervisor) Restart(l *Loop) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		if err := s.current.Stop(s.stopTimeout); err != nil {
			s.log.Error().Err(err).Dur("timeout", s.stopTimeout).Msg("previous loop still running, restart refused")
			return fmt.Errorf("restart: %w", err)
		}
		s.current = nil
		s.metrics.Restarts.Inc()
		s.log.Debug().Msg("previous loop stopped")
	}

	h, err := l.Start(s.ctx)
	if err != nil {
		return fmt.Errorf("start loop: %w", err)
	}
	s.current = h
	return nil
}

// Stop stops the current loop, if any.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}
	if err := s.current.Stop(s.stopTimeout); err != nil {
		return err
	}
	s.current = nil
	return nil
}

// Running reports whether a loop is currently active.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.State() == Running
}

// State returns the state of the current loop, or Stopped when there is none.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Stopped
	}
	return s.current.State()
}
