package controller

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forgebase/forge/manager"
	"github.com/forgebase/forge/resource"
)

// GCConfig tunes a GCSweeper's polling interval. Defaults (30s) grounded on
// original_source/api_server/src/config/gc.rs's gc.polling_interval,
// supplementing the distilled spec with the garbage-collection sweep it
// dropped (SPEC_FULL.md §8).
type GCConfig struct {
	PollingInterval time.Duration
	Logger          *logrus.Entry
}

func (c GCConfig) withDefaults() GCConfig {
	if c.PollingInterval <= 0 {
		c.PollingInterval = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return c
}

// sweepable is the subset of manager.RM[T] a GCSweeper needs, kept as an
// interface so one Sweeper can poll several unrelated kinds.
type sweepable interface {
	sweepTombstoned(ctx context.Context) (int, error)
}

// kindSweeper adapts one manager.RM[T] into a sweepable, re-emitting a
// synthetic reconcile for every tombstoned resource of kind T so the
// finalizer path in a kind's Reconciler eventually drains resources whose
// original delete event was missed (e.g. the process was down).
type kindSweeper[T resource.Object] struct {
	kind string
	rm   *manager.RM[T]
	loop *Loop[T]
}

// NewKindSweeper binds a Loop to its Manager for GC sweeping.
func NewKindSweeper[T resource.Object](kind string, rm *manager.RM[T], loop *Loop[T]) sweepable {
	return &kindSweeper[T]{kind: kind, rm: rm, loop: loop}
}

func (s *kindSweeper[T]) sweepTombstoned(ctx context.Context) (int, error) {
	entities, err := s.rm.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entities {
		if !e.GetMetadata().IsTombstoned() {
			continue
		}
		s.loop.reconcileOnce(ctx, e)
		n++
	}
	return n, nil
}

// GCSweeper periodically re-drives finalization for tombstoned resources
// across every registered kind, independent of the per-kind Controller
// Loop's own resync timer (spec SPEC_FULL.md §8, §9).
type GCSweeper struct {
	cfg    GCConfig
	kinds  []sweepable
	names  []string
}

// NewGCSweeper constructs an empty sweeper; register kinds with Register.
func NewGCSweeper(cfg GCConfig) *GCSweeper {
	return &GCSweeper{cfg: cfg.withDefaults()}
}

// Register adds a kind to be swept.
func (s *GCSweeper) Register(name string, k sweepable) {
	s.names = append(s.names, name)
	s.kinds = append(s.kinds, k)
}

// Run polls every registered kind on cfg.PollingInterval until ctx is
// cancelled.
func (s *GCSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *GCSweeper) sweepOnce(ctx context.Context) {
	for i, k := range s.kinds {
		n, err := k.sweepTombstoned(ctx)
		if err != nil {
			s.cfg.Logger.WithError(err).WithField("kind", s.names[i]).Warn("gc: sweep failed")
			continue
		}
		if n > 0 {
			s.cfg.Logger.WithField("kind", s.names[i]).WithField("count", n).Debug("gc: swept tombstoned resources")
		}
	}
}
