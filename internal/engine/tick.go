package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Runner drives a model forward, optionally paced in real time.
type Runner struct {
	Model    *Model
	Interval time.Duration // Minimum wall time per step; 0 runs flat out

	// OnStep is called after every completed step with its snapshot.
	OnStep func(snap *Snapshot) error

	running  atomic.Bool
	initOnce sync.Once
	stop     chan struct{}
	stopOnce sync.Once
}

// NewRunner creates an unpaced runner for m.
func NewRunner(m *Model) *Runner {
	return &Runner{Model: m, stop: make(chan struct{})}
}

// Running reports whether Run is in progress.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Run steps the model until steps have completed (steps <= 0 means no
// limit), Stop is called or ctx is done. A step or callback error aborts.
func (r *Runner) Run(ctx context.Context, steps int) error {
	stop := r.stopChan()
	r.running.Store(true)
	defer r.running.Store(false)

	slog.Info("simulation runner started", "step", r.Model.StepCount(), "steps", steps, "interval", r.Interval)

	var err error
	stopped := false
	for done := 0; steps <= 0 || done < steps; done++ {
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-stop:
			stopped = true
		default:
		}
		if err != nil || stopped {
			break
		}

		start := time.Now()
		if err = r.Model.Step(); err != nil {
			break
		}
		if r.OnStep != nil {
			if err = r.OnStep(r.Model.Snapshot()); err != nil {
				break
			}
		}

		// Sleep for the remainder of the interval.
		if elapsed := time.Since(start); elapsed < r.Interval {
			t := time.NewTimer(r.Interval - elapsed)
			select {
			case <-ctx.Done():
			case <-stop:
			case <-t.C:
			}
			t.Stop()
		}
	}

	slog.Info("simulation runner stopped", "step", r.Model.StepCount())
	return err
}

// Stop ends Run after the step in progress. A stopped runner does not restart.
func (r *Runner) Stop() {
	stop := r.stopChan()
	r.stopOnce.Do(func() { close(stop) })
}

// stopChan creates the stop channel on first use, so a Runner built as a
// literal stops the same way as one from NewRunner.
func (r *Runner) stopChan() chan struct{} {
	r.initOnce.Do(func() {
		if r.stop == nil {
			r.stop = make(chan struct{})
		}
	})
	return r.stop
}
