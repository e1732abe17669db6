// Package sched provides a small cancellable periodic-task abstraction with
// an injectable clock, so background sweeps can be driven deterministically
// in tests.
package sched

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Clock abstracts time for periodic tasks.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of time.Ticker the scheduler needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock is the wall clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// NewTicker returns a wall-clock ticker.
func (RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// Task runs fn every interval until stopped. Start and Stop are idempotent.
type Task struct {
	name     string
	interval time.Duration
	fn       func()
	clock    Clock
	logger   *zap.Logger

	mu      sync.Mutex
	stop    chan struct{}
	stopped sync.WaitGroup
}

// NewTask creates a periodic task. A nil clock uses the wall clock.
func NewTask(name string, interval time.Duration, fn func(), clock Clock, logger *zap.Logger) *Task {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Task{
		name:     name,
		interval: interval,
		fn:       fn,
		clock:    clock,
		logger:   logger.With(zap.String("task", name)),
	}
}

// Start launches the ticker loop. Calling Start on a running task is a no-op.
func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return
	}
	if t.interval <= 0 {
		t.logger.Debug("task disabled, non-positive interval")
		return
	}

	stop := make(chan struct{})
	t.stop = stop
	t.stopped.Add(1)

	ticker := t.clock.NewTicker(t.interval)
	go func() {
		defer t.stopped.Done()
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				t.fn()
			}
		}
	}()

	t.logger.Debug("task started", zap.Duration("interval", t.interval))
}

// Stop halts the loop and waits for the in-flight run, if any, to return.
func (t *Task) Stop() {
	t.mu.Lock()
	stop := t.stop
	t.stop = nil
	t.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	t.stopped.Wait()
	t.logger.Debug("task stopped")
}
