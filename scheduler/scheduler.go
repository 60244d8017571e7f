// Package scheduler implements the Arbiter (spec §4.9): cooperative
// worker-pool scheduling for the process's long-running loops (Watchers,
// Controller Loops, the GC sweeper, the HTTP server). Grounded on
// worker/pool.go's Pool.Start/Stop lifecycle and
// coordinator/coordinator.go's ctx/cancel/wg shutdown pattern, generalized
// from a fixed per-queue worker pool to an arbitrary set of named
// long-running tasks fanned out via golang.org/x/sync/errgroup.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Task is one long-running unit the Arbiter supervises. It must return
// promptly once ctx is cancelled.
type Task func(ctx context.Context) error

// Arbiter spawns and supervises a fixed set of Tasks (spec §4.9: "every
// Watcher, every Controller Loop, the GC sweeper, and the HTTP listener
// run as siblings under one Arbiter so a fatal error in one can be
// observed and the rest shut down together").
type Arbiter struct {
	log *logrus.Entry

	mu    sync.Mutex
	names []string
	tasks []Task

	group  *errgroup.Group
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithLogger attaches a structured logger.
func WithLogger(log *logrus.Entry) Option {
	return func(a *Arbiter) { a.log = log }
}

// New constructs an empty Arbiter. Spawn tasks with Spawn before calling
// Run.
func New(opts ...Option) *Arbiter {
	a := &Arbiter{log: logrus.NewEntry(logrus.StandardLogger())}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Spawn registers a named task to run once Run is called. Spawn must be
// called before Run.
func (a *Arbiter) Spawn(name string, t Task) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.names = append(a.names, name)
	a.tasks = append(a.tasks, t)
}

// Run starts every registered task and blocks until ctx is cancelled or
// one task returns a non-nil error, at which point every sibling task's
// context is cancelled too (errgroup's standard fail-fast semantics). Run
// returns the first non-nil task error, if any.
func (a *Arbiter) Run(ctx context.Context) error {
	a.mu.Lock()
	names := append([]string(nil), a.names...)
	tasks := append([]Task(nil), a.tasks...)
	a.mu.Unlock()

	groupCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	defer close(a.done)

	g, gctx := errgroup.WithContext(groupCtx)
	a.group = g

	for i := range tasks {
		name, task := names[i], tasks[i]
		g.Go(func() error {
			a.log.WithField("task", name).Info("scheduler: task starting")
			err := task(gctx)
			if err != nil && gctx.Err() == nil {
				a.log.WithError(err).WithField("task", name).Error("scheduler: task failed, shutting down siblings")
			} else {
				a.log.WithField("task", name).Info("scheduler: task stopped")
			}
			return err
		})
	}

	err := g.Wait()
	cancel()
	return err
}

// Shutdown cancels every running task and waits up to deadline for them to
// return, grounded on coordinator.Close's cancel-then-wg.Wait shutdown.
func (a *Arbiter) Shutdown(deadline time.Duration) error {
	if a.cancel == nil {
		return nil
	}
	a.cancel()

	select {
	case <-a.done:
		return nil
	case <-time.After(deadline):
		return fmt.Errorf("scheduler: shutdown deadline %s exceeded", deadline)
	}
}
