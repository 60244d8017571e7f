// Package store implements the Store Adapter (spec §4.1): a typed document
// store abstraction over a partitioned document database, grounded on the
// teacher's db package (github.com/go-kivik/kivik/v4 CouchDB driver).
package store

import (
	"context"
	"encoding/json"
)

// Store is the minimal contract the Resource Manager and Watcher depend on.
// A production implementation talks to CouchDB (see CouchStore); tests use
// store/storetest's in-memory fake.
type Store interface {
	// EnsureDatabase creates db if missing. Already-exists is success.
	EnsureDatabase(ctx context.Context, db string, partitioned bool) error

	// Put creates or updates a document. expectedRev == "" means
	// create-or-overwrite; otherwise it is enforced as an optimistic-
	// concurrency precondition and a mismatch yields a Conflict error.
	Put(ctx context.Context, db, partition, id string, doc any, expectedRev string) (newRev string, err error)

	// Get returns the raw document, or (nil, nil) if it does not exist.
	Get(ctx context.Context, db, partition, id string) (json.RawMessage, error)

	// Find runs an equality/prefix selector query.
	Find(ctx context.Context, db, partition string, selector map[string]any, limit, skip int) ([]json.RawMessage, error)

	// Delete removes a document. expectedRev is required.
	Delete(ctx context.Context, db, partition, id, expectedRev string) error

	// EnsureIndex creates a secondary index over fields if one doesn't
	// already cover them; safe to call repeatedly.
	EnsureIndex(ctx context.Context, db, partition string, fields []string) error

	// Changes returns a ChangeFeed resumable from since ("now" or a
	// previously observed Seq).
	Changes(ctx context.Context, db, partition, since string) (ChangeFeed, error)
}

// Change is one entry from a database's change feed.
type Change struct {
	Seq     string
	ID      string
	Deleted bool
	Doc     json.RawMessage
}

// ChangeFeed is a pull source of Change records. Next blocks until the next
// change is available, ctx is cancelled, or the feed is closed. Callers
// must call Close when done.
type ChangeFeed interface {
	Next(ctx context.Context) (Change, bool, error)
	Close() error
}
