// Package storetest provides an in-memory Store fake for controller and
// ACL tests, so they don't need a live CouchDB. Grounded on the teacher's
// interface-based test doubles (auth.UserStore + its *_mock.go fakes).
package storetest

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"sync"

	"github.com/forgebase/forge/store"
)

type doc struct {
	rev     int
	body    json.RawMessage
	deleted bool
}

// Store is a thread-safe, in-memory implementation of store.Store. Changes
// are numbered in per-database, monotonically increasing sequence order and
// fanned out to the feeds open at the time of the change; Changes ignores
// since and replays nothing that happened before it was called.
type Store struct {
	mu        sync.Mutex
	databases map[string]map[string]*doc
	seq       map[string]int
	subs      map[string][]*feed
}

// New returns an empty in-memory Store.
func New() *Store {
	return &Store{
		databases: make(map[string]map[string]*doc),
		seq:       make(map[string]int),
		subs:      make(map[string][]*feed),
	}
}

func (s *Store) EnsureDatabase(ctx context.Context, db string, partitioned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.databases[db]; !ok {
		s.databases[db] = make(map[string]*doc)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, db, partition, id string, body any, expectedRev string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	docs := s.databases[db]
	if docs == nil {
		docs = make(map[string]*doc)
		s.databases[db] = docs
	}
	existing, ok := docs[id]
	if expectedRev != "" {
		if !ok || strconvItoa(existing.rev) != expectedRev {
			return "", &store.Error{Kind: store.KindConflict, StatusCode: 409, Op: "put", Reason: "revision mismatch"}
		}
	}
	newRev := 1
	if ok {
		newRev = existing.rev + 1
	}
	stamped := withRev(data, newRev)
	d := &doc{rev: newRev, body: stamped}
	docs[id] = d
	s.publish(db, id, newRev, false, stamped)
	return strconvItoa(newRev), nil
}

// withRev stamps body with the store's revision token under "_rev", the
// same envelope field a real CouchStore's documents carry, so Get/Find/
// Changes round-trip it the same way production does (resource.RevOf
// recovers it on the RM/Watcher side).
func withRev(body json.RawMessage, rev int) json.RawMessage {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return body
	}
	m["_rev"] = strconvItoa(rev)
	stamped, err := json.Marshal(m)
	if err != nil {
		return body
	}
	return stamped
}

func (s *Store) Get(ctx context.Context, db, partition, id string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.databases[db][id]
	if !ok || d.deleted {
		return nil, nil
	}
	return d.body, nil
}

func (s *Store) Find(ctx context.Context, db, partition string, selector map[string]any, limit, skip int) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id := range s.databases[db] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []json.RawMessage
	for _, id := range ids {
		d := s.databases[db][id]
		if d.deleted {
			continue
		}
		if !matches(d.body, selector) {
			continue
		}
		out = append(out, d.body)
	}
	if skip > 0 && skip < len(out) {
		out = out[skip:]
	} else if skip >= len(out) {
		out = nil
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func matches(body json.RawMessage, selector map[string]any) bool {
	if len(selector) == 0 {
		return true
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return false
	}
	for k, want := range selector {
		if got, ok := m[k]; !ok || got != want {
			return false
		}
	}
	return true
}

func (s *Store) Delete(ctx context.Context, db, partition, id, expectedRev string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.databases[db][id]
	if !ok {
		return &store.Error{Kind: store.KindNotFound, StatusCode: 404, Op: "delete", Reason: "not found"}
	}
	if expectedRev != "" && strconvItoa(d.rev) != expectedRev {
		return &store.Error{Kind: store.KindConflict, StatusCode: 409, Op: "delete", Reason: "revision mismatch"}
	}
	d.deleted = true
	d.rev++
	d.body = withRev(d.body, d.rev)
	s.publish(db, id, d.rev, true, d.body)
	return nil
}

func (s *Store) EnsureIndex(ctx context.Context, db, partition string, fields []string) error {
	return nil
}

func (s *Store) Changes(ctx context.Context, db, partition, since string) (store.ChangeFeed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := &feed{ch: make(chan store.Change, 64), closed: make(chan struct{})}
	s.subs[db] = append(s.subs[db], f)
	return f, nil
}

// publish fans a change out to every subscriber of db. Must be called with
// s.mu held.
func (s *Store) publish(db, id string, rev int, deleted bool, body json.RawMessage) {
	s.seq[db]++
	seq := s.seq[db]
	change := store.Change{Seq: strconvItoa(seq), ID: id, Deleted: deleted, Doc: body}
	for _, f := range s.subs[db] {
		select {
		case f.ch <- change:
		default:
		}
	}
}

type feed struct {
	ch     chan store.Change
	closed chan struct{}
}

func (f *feed) Next(ctx context.Context) (store.Change, bool, error) {
	select {
	case c := <-f.ch:
		return c, true, nil
	case <-f.closed:
		return store.Change{}, false, nil
	case <-ctx.Done():
		return store.Change{}, false, ctx.Err()
	}
}

func (f *feed) Close() error {
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
	return nil
}

func strconvItoa(i int) string { return strconv.Itoa(i) }
