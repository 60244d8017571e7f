// Package manager implements the Resource Manager (spec §4.2): a typed CRUD
// façade over the Store Adapter, generic over a resource kind. Grounded on
// the generic document helpers in db/couchdb_generic.go (SaveDocument[T],
// GetDocument[T], GetDocumentsByType[T]), adapted to derive physical
// addressing from each kind's TypeMeta instead of one configured database.
package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/forgebase/forge/resource"
	"github.com/forgebase/forge/store"
)

// RM is a typed façade over the Store for resource kind T. T is typically a
// pointer type (e.g. *User) implementing resource.Object.
type RM[T resource.Object] struct {
	typeMeta resource.TypeMeta
	st       store.Store
	newT     func() T
	bus      *Bus[T]
	now      func() time.Time
}

// New constructs an RM for kind tm. newT must return a freshly allocated,
// zero-value T (e.g. func() *User { return &User{} }) used to decode
// documents.
func New[T resource.Object](st store.Store, tm resource.TypeMeta, newT func() T) *RM[T] {
	return &RM[T]{
		typeMeta: tm,
		st:       st,
		newT:     newT,
		bus:      NewBus[T](),
		now:      time.Now,
	}
}

// Events returns a channel of lifecycle notifications for this kind.
func (m *RM[T]) Events(buffer int) <-chan Event[T] {
	return m.bus.Subscribe(buffer)
}

// EnsureDatabase creates this kind's backing database if missing. It
// installs no indexes.
func (m *RM[T]) EnsureDatabase(ctx context.Context) error {
	return m.st.EnsureDatabase(ctx, m.typeMeta.Group(), true)
}

func (m *RM[T]) addr(name string) (db, partition, id string) {
	return m.typeMeta.Group(), m.typeMeta.KindPlural, resource.DocID(m.typeMeta.KindPlural, name)
}

// Put creates or updates entity, re-reading the stored shape so the caller
// observes any server-assigned fields (per spec §4.2, "put round-trips the
// document"). entity.GetMetadata().Rev, if set, is enforced as an
// optimistic-concurrency precondition.
func (m *RM[T]) Put(ctx context.Context, entity T) (T, error) {
	meta := entity.GetMetadata()
	db, partition, id := m.addr(meta.Name)

	wasNew := meta.IsNew()

	newRev, err := m.st.Put(ctx, db, partition, id, entity, meta.Rev)
	if err != nil {
		var zero T
		return zero, err
	}
	meta.Rev = newRev
	entity.SetMetadata(meta)

	stored, err := m.Get(ctx, meta.Name)
	if err != nil {
		return entity, err
	}

	if wasNew {
		m.bus.publish(Event[T]{Kind: EventCreated, Entity: stored})
	} else {
		m.bus.publish(Event[T]{Kind: EventUpdated, Entity: stored})
	}
	return stored, nil
}

// Get returns the named entity, or the zero value and a nil error if it
// does not exist (spec §4.1: "missing document returns None, not an
// error").
func (m *RM[T]) Get(ctx context.Context, name string) (T, error) {
	db, partition, id := m.addr(name)
	raw, err := m.st.Get(ctx, db, partition, id)
	var zero T
	if err != nil {
		return zero, err
	}
	if raw == nil {
		return zero, nil
	}
	entity := m.newT()
	if err := json.Unmarshal(raw, entity); err != nil {
		return zero, fmt.Errorf("manager: decode %s %q: %w", m.typeMeta.Kind, name, err)
	}
	meta := entity.GetMetadata()
	meta.Rev = resource.RevOf(raw)
	entity.SetMetadata(meta)
	return entity, nil
}

// List returns every entity of this kind.
func (m *RM[T]) List(ctx context.Context) ([]T, error) {
	return m.Find(ctx, nil)
}

// Find runs an equality selector over this kind's partition.
func (m *RM[T]) Find(ctx context.Context, selector map[string]any) ([]T, error) {
	db, partition, _ := m.addr("")
	raws, err := m.st.Find(ctx, db, partition, selector, 0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		entity := m.newT()
		if err := json.Unmarshal(raw, entity); err != nil {
			return nil, fmt.Errorf("manager: decode %s: %w", m.typeMeta.Kind, err)
		}
		meta := entity.GetMetadata()
		meta.Rev = resource.RevOf(raw)
		entity.SetMetadata(meta)
		out = append(out, entity)
	}
	return out, nil
}

// Delete hard-deletes the named entity. Reconcilers call this only after
// finalizers have run (spec §4.5's "run-then-delete" contract, see
// SPEC_FULL.md §9).
func (m *RM[T]) Delete(ctx context.Context, name string) error {
	existing, err := m.Get(ctx, name)
	if err != nil {
		return err
	}
	db, partition, id := m.addr(name)
	meta := existing.GetMetadata()
	if err := m.st.Delete(ctx, db, partition, id, meta.Rev); err != nil {
		return err
	}
	m.bus.publish(Event[T]{Kind: EventDeleted, Entity: existing})
	return nil
}

// MarkTombstoned sets Metadata.DeletedAt to now and puts the document,
// without running finalizers or deleting it — the first half of the
// "run-then-delete" contract.
func (m *RM[T]) MarkTombstoned(ctx context.Context, entity T) (T, error) {
	meta := entity.GetMetadata()
	if meta.DeletedAt == nil {
		now := m.now()
		meta.DeletedAt = &now
		entity.SetMetadata(meta)
	}
	return m.Put(ctx, entity)
}
