// Package controller implements the Controller Loop (spec §4.4) and the
// Reconciler contract (spec §4.5): binding one Watcher to one Reconciler
// and driving it forever with retry/backoff, grounded on worker/pool.go's
// Worker.Start/processNext loop shape, generalized from a job queue to a
// typed resource Watcher.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/forgebase/forge/internal/backoff"
	"github.com/forgebase/forge/manager"
	"github.com/forgebase/forge/resource"
	"github.com/forgebase/forge/watch"
)

// maxConflictAttempts caps immediate Conflict retries before demotion to
// Transient backoff, per spec §7 ("caps at a small attempt count").
const maxConflictAttempts = 3

// Config tunes a Loop's resync and rate-limiting behavior.
type Config struct {
	// PollingInterval is the full-list resync period (spec §4.4 step 5),
	// per SPEC_FULL.md §9 a role distinct from the Watcher's reconnect
	// backoff. Default 5 minutes.
	PollingInterval time.Duration

	// RateLimit bounds reconciles/sec for this kind; zero disables
	// limiting. Grounded on golang.org/x/time/rate, a teacher go.mod
	// dependency the original worker pool never exercised.
	RateLimit rate.Limit

	// ShutdownDeadline bounds how long an in-flight reconcile is given to
	// finish once cancellation is requested (spec §5, default 30s).
	ShutdownDeadline time.Duration

	Logger *logrus.Entry
}

func (c Config) withDefaults() Config {
	if c.PollingInterval <= 0 {
		c.PollingInterval = 5 * time.Minute
	}
	if c.ShutdownDeadline <= 0 {
		c.ShutdownDeadline = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return c
}

// Loop binds one Watcher[T] to one Reconciler[T] and drives it per spec
// §4.4's algorithm.
type Loop[T resource.Object] struct {
	kind    string
	watcher *watch.Watcher[T]
	rm      *manager.RM[T]
	recon   Reconciler[T]
	cfg     Config

	limiter *rate.Limiter

	// docLocks stripes per-document mutexes so reconciles of the same
	// name are never concurrent while different names proceed in
	// parallel (spec §5).
	docLocks sync.Map // name -> *sync.Mutex
}

// New constructs a Loop for the given kind.
func New[T resource.Object](kind string, w *watch.Watcher[T], rm *manager.RM[T], r Reconciler[T], cfg Config) *Loop[T] {
	cfg = cfg.withDefaults()
	l := &Loop[T]{kind: kind, watcher: w, rm: rm, recon: r, cfg: cfg}
	if cfg.RateLimit > 0 {
		l.limiter = rate.NewLimiter(cfg.RateLimit, 1)
	}
	return l
}

// Run drives the loop until ctx is cancelled. It finishes any in-flight
// reconcile (bounded by cfg.ShutdownDeadline) before returning.
func (l *Loop[T]) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	resyncTicker := time.NewTicker(l.cfg.PollingInterval)
	defer resyncTicker.Stop()

	resyncCtx, cancelResync := context.WithCancel(ctx)
	defer cancelResync()
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.resyncLoop(resyncCtx, resyncTicker)
	}()

	err := l.watcher.Run(ctx, func(evCtx context.Context, ev watch.Event[T]) error {
		return l.handle(evCtx, ev)
	})

	cancelResync()
	wg.Wait()
	return err
}

func (l *Loop[T]) resyncLoop(ctx context.Context, ticker *time.Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.resync(ctx)
		}
	}
}

// resync re-lists every resource of this kind and reconciles each,
// guaranteeing eventual convergence even if change events were lost (spec
// §4.4 step 5).
func (l *Loop[T]) resync(ctx context.Context) {
	entities, err := l.rm.List(ctx)
	if err != nil {
		l.cfg.Logger.WithError(err).WithField("kind", l.kind).Warn("controller: resync list failed")
		return
	}
	for _, e := range entities {
		l.reconcileOnce(ctx, e)
	}
}

func (l *Loop[T]) handle(ctx context.Context, ev watch.Event[T]) error {
	l.reconcileOnce(ctx, ev.Resource)
	return nil
}

// reconcileOnce runs the reconciler for entity with the per-document lock
// held, applying the retry/backoff/conflict policy of spec §4.4.
func (l *Loop[T]) reconcileOnce(ctx context.Context, entity T) {
	name := entity.GetMetadata().Name
	lockIface, _ := l.docLocks.LoadOrStore(name, &sync.Mutex{})
	lock := lockIface.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return
		}
	}

	// rctx outlives ctx by cfg.ShutdownDeadline, so a reconcile already in
	// flight when cancellation is requested gets that long to finish.
	rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	stop := context.AfterFunc(ctx, func() { time.AfterFunc(l.cfg.ShutdownDeadline, cancel) })
	defer stop()

	seq := backoff.NewSequence(backoff.Default())
	conflictAttempts := 0

	for {
		if ctx.Err() != nil {
			return
		}
		err := l.recon.Reconcile(rctx, entity)
		if err == nil {
			return // acked
		}

		rerr, ok := err.(*ReconcileError)
		if !ok {
			l.cfg.Logger.WithError(err).WithField("kind", l.kind).WithField("name", name).
				Warn("controller: reconcile failed without classification, dropping")
			return
		}

		switch rerr.Kind {
		case Conflict:
			conflictAttempts++
			if conflictAttempts <= maxConflictAttempts {
				refreshed, gerr := l.rm.Get(ctx, name)
				if gerr != nil || any(refreshed) == nil {
					return
				}
				entity = refreshed
				continue
			}
			l.cfg.Logger.WithField("kind", l.kind).WithField("name", name).
				Warn("controller: conflict retries exhausted, demoting to transient backoff")
			fallthrough
		case Transient:
			wait := rerr.RetryAfter
			if wait <= 0 {
				wait = seq.Next()
			}
			t := time.NewTimer(wait)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return
			}
			continue
		case Invalid, Fatal:
			l.cfg.Logger.WithError(rerr.Err).WithField("kind", l.kind).WithField("name", name).
				Warn("controller: reconcile failed, dropping")
			return
		default:
			return
		}
	}
}
