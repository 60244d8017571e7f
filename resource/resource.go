// Package resource defines the core typed document shape that every
// controller, watcher, and reconciler in forge operates on: a
// TypeMeta-addressed, kind-specific envelope persisted as one CouchDB
// document.
package resource

import (
	"encoding/json"
	"time"
)

// TypeMeta identifies a resource's schema and storage namespace. It never
// changes once a resource is created.
type TypeMeta struct {
	APIVersion string `json:"apiVersion"`
	Kind       string `json:"kind"`
	// KindPlural is the storage partition name, e.g. "users", "policies".
	KindPlural string `json:"-"`
}

// GroupVersion splits APIVersion ("group/version") into its parts.
func (t TypeMeta) GroupVersion() (group, version string) {
	for i := len(t.APIVersion) - 1; i >= 0; i-- {
		if t.APIVersion[i] == '/' {
			return t.APIVersion[:i], t.APIVersion[i+1:]
		}
	}
	return "", t.APIVersion
}

// Group returns the storage database name derived from apiVersion.
func (t TypeMeta) Group() string {
	g, _ := t.GroupVersion()
	return g
}

// Metadata carries the identity and lifecycle timestamps common to every
// resource. Name is immutable once assigned; CreatedAt is set exactly once;
// DeletedAt, once set, never un-sets (tombstone).
type Metadata struct {
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`

	// Rev is the store's opaque revision token (CouchDB "_rev"). Callers
	// should treat it as opaque and pass it back unchanged on update.
	Rev string `json:"-"`
}

// IsNew reports whether the resource has never been reconciled.
func (m Metadata) IsNew() bool { return m.CreatedAt == nil }

// IsTombstoned reports whether the resource has been marked for deletion.
func (m Metadata) IsTombstoned() bool { return m.DeletedAt != nil }

// Object is the constraint every resource kind satisfies: it can report its
// own TypeMeta and Metadata, and accept an updated Metadata back (the
// manager re-stamps Rev/CreatedAt/DeletedAt after a store round-trip).
type Object interface {
	GetTypeMeta() TypeMeta
	GetMetadata() Metadata
	SetMetadata(Metadata)
}

// Addr is the physical address of a resource document in the store:
// database name, partition, and document id.
type Addr struct {
	Database  string
	Partition string
	ID        string
}

// AddrOf derives the physical address of o from its TypeMeta and name,
// per spec §4.2: database=group, partition=kindPlural, id="<kindPlural>:<name>".
func AddrOf(o Object) Addr {
	tm := o.GetTypeMeta()
	name := o.GetMetadata().Name
	return Addr{
		Database:  tm.Group(),
		Partition: tm.KindPlural,
		ID:        tm.KindPlural + ":" + name,
	}
}

// DocID builds a document id for a given kindPlural/name pair without
// requiring a full Object, used by watchers decoding raw change records.
func DocID(kindPlural, name string) string {
	return kindPlural + ":" + name
}

// RevOf recovers the store's "_rev" revision token from a raw stored
// document. Metadata.Rev is tagged json:"-" and Metadata itself nests
// under the document's "metadata" key, so a plain json.Unmarshal of the
// document body into an Object never reaches the top-level "_rev" CouchDB
// attaches to every document; callers that decode a raw document must
// call RevOf and thread the result back in via SetMetadata, mirroring the
// teacher's docMap["_rev"] handling in db/couchdb_generic.go's
// SaveDocument/GetDocument.
func RevOf(raw json.RawMessage) string {
	var envelope struct {
		Rev string `json:"_rev"`
	}
	_ = json.Unmarshal(raw, &envelope)
	return envelope.Rev
}
