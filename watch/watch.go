// Package watch implements the Watcher (spec §4.3): a lazy, typed stream of
// Event[T] over a Store's change feed for one resource kind. Grounded
// directly on db/couchdb_changes.go's ListenChanges/WatchChanges/
// GetLastSequence, with reconnect backoff grounded on
// coordinator/coordinator.go's reconnect loop.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forgebase/forge/internal/backoff"
	"github.com/forgebase/forge/resource"
	"github.com/forgebase/forge/store"
)

// EventKind distinguishes a document mutation from a tombstone.
type EventKind string

const (
	Changed EventKind = "changed"
	Deleted EventKind = "deleted"
)

// Event is one change observed for resource kind T. Deleted events carry
// the last-known document body so reconcilers can finalize by name (spec
// §4.3).
type Event[T resource.Object] struct {
	Kind     EventKind
	Resource T
	Seq      string
}

// Watcher pulls Event[T] from a Store's change feed. It is a pull source:
// if the consumer stalls, Watcher does not buffer unboundedly (spec §4.3
// backpressure).
type Watcher[T resource.Object] struct {
	st         store.Store
	tm         resource.TypeMeta
	newT       func() T
	log        *logrus.Entry
	lastSeq    string
	backoffCfg backoff.Config
}

// Option configures a Watcher.
type Option[T resource.Object] func(*Watcher[T])

// WithLogger attaches a structured logger.
func WithLogger[T resource.Object](log *logrus.Entry) Option[T] {
	return func(w *Watcher[T]) { w.log = log }
}

// WithBackoff overrides the reconnect backoff profile (default: spec §4.3's
// 1s/×2/30s/±20%).
func WithBackoff[T resource.Object](cfg backoff.Config) Option[T] {
	return func(w *Watcher[T]) { w.backoffCfg = cfg }
}

// New constructs a Watcher for kind tm.
func New[T resource.Object](st store.Store, tm resource.TypeMeta, newT func() T, opts ...Option[T]) *Watcher[T] {
	w := &Watcher[T]{
		st:         st,
		tm:         tm,
		newT:       newT,
		log:        logrus.NewEntry(logrus.StandardLogger()),
		backoffCfg: backoff.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run delivers events to handle until ctx is cancelled. It reconnects with
// exponential backoff on upstream failure, resuming from the last
// successfully delivered Seq if any, otherwise from "now" (spec §4.3).
// Delivery is at-least-once: handle must tolerate duplicates.
func (w *Watcher[T]) Run(ctx context.Context, handle func(context.Context, Event[T]) error) error {
	seq := backoff.NewSequence(w.backoffCfg)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		since := w.lastSeq
		if since == "" {
			since = "now"
		}
		feed, err := w.st.Changes(ctx, w.tm.Group(), w.tm.KindPlural, since)
		if err != nil {
			w.log.WithError(err).Warn("watch: changes feed connect failed, backing off")
			if !sleepCtx(ctx, seq.Next()) {
				return ctx.Err()
			}
			continue
		}

		err = w.drain(ctx, feed, handle)
		feed.Close()
		if err == nil {
			if ctx.Err() != nil {
				return nil // ctx cancelled cleanly mid-drain
			}
			err = fmt.Errorf("watch: changes feed ended")
		}
		w.log.WithError(err).Warn("watch: changes feed disconnected, reconnecting")
		if !sleepCtx(ctx, seq.Next()) {
			return ctx.Err()
		}
	}
}

// drain pulls from feed until it ends, ctx is cancelled, or an error
// occurs. Returns nil on clean cancellation or when the feed ends,
// otherwise the feed error. Changes to documents of other kinds sharing
// the database are skipped.
func (w *Watcher[T]) drain(ctx context.Context, feed store.ChangeFeed, handle func(context.Context, Event[T]) error) error {
	seq := backoff.NewSequence(w.backoffCfg)
	prefix := w.tm.KindPlural + ":"
	for {
		change, ok, err := feed.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !ok {
			return nil
		}
		seq.Reset()

		if !strings.HasPrefix(change.ID, prefix) {
			w.lastSeq = change.Seq
			continue
		}

		ev, err := w.decode(change)
		if err != nil {
			w.log.WithError(err).WithField("seq", change.Seq).Warn("watch: dropping undecodable change")
			w.lastSeq = change.Seq
			continue
		}
		if err := handle(ctx, ev); err != nil {
			return fmt.Errorf("watch: handler error: %w", err)
		}
		w.lastSeq = change.Seq
	}
}

func (w *Watcher[T]) decode(c store.Change) (Event[T], error) {
	entity := w.newT()
	if c.Doc != nil {
		if err := json.Unmarshal(c.Doc, entity); err != nil {
			return Event[T]{}, err
		}
		meta := entity.GetMetadata()
		meta.Rev = resource.RevOf(c.Doc)
		entity.SetMetadata(meta)
	}
	kind := Changed
	if c.Deleted {
		kind = Deleted
	}
	return Event[T]{Kind: kind, Resource: entity, Seq: c.Seq}, nil
}

// sleepCtx waits for d or ctx cancellation, returning false if cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
