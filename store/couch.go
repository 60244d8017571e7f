package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	kivik "github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb" // CouchDB driver
)

// Config configures a CouchStore connection, grounded on the teacher's
// db.CouchDBConfig.
type Config struct {
	URL      string
	Username string
	Password string
}

// CouchStore is the production Store implementation, grounded on
// db/couchdb.go's NewCouchDBServiceFromConfig and the generic document
// helpers in db/couchdb_generic.go.
type CouchStore struct {
	client *kivik.Client
	dbs    map[string]*kivik.DB
}

// NewCouchStore connects to the document database. It does not itself
// create any database; callers invoke EnsureDatabase per kind.
func NewCouchStore(ctx context.Context, cfg Config) (*CouchStore, error) {
	connectionURL := cfg.URL
	if cfg.Username != "" && cfg.Password != "" && !strings.Contains(connectionURL, "@") {
		parts := strings.SplitN(connectionURL, "://", 2)
		if len(parts) == 2 {
			connectionURL = fmt.Sprintf("%s://%s:%s@%s", parts[0], cfg.Username, cfg.Password, parts[1])
		}
	}

	client, err := kivik.New("couch", connectionURL)
	if err != nil {
		return nil, classify("connect", 0, err.Error())
	}
	return &CouchStore{client: client, dbs: make(map[string]*kivik.DB)}, nil
}

// db returns (creating on first use) the *kivik.DB handle for a database
// name. It does not create the remote database; see EnsureDatabase.
func (c *CouchStore) db(name string) *kivik.DB {
	if d, ok := c.dbs[name]; ok {
		return d
	}
	d := c.client.DB(name)
	c.dbs[name] = d
	return d
}

func (c *CouchStore) EnsureDatabase(ctx context.Context, name string, partitioned bool) error {
	exists, err := c.client.DBExists(ctx, name)
	if err != nil {
		return classify("ensure_database", kivik.HTTPStatus(err), err.Error())
	}
	if exists {
		return nil
	}
	var opts []kivik.Option
	if partitioned {
		opts = append(opts, kivik.Param("partitioned", true))
	}
	if err := c.client.CreateDB(ctx, name, opts...); err != nil {
		// "already exists" races with a concurrent creator are success.
		if kivik.HTTPStatus(err) == 412 {
			return nil
		}
		return classify("ensure_database", kivik.HTTPStatus(err), err.Error())
	}
	return nil
}

func (c *CouchStore) Put(ctx context.Context, dbName, partition, id string, doc any, expectedRev string) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("store: marshal document: %w", err)
	}
	var docMap map[string]any
	if err := json.Unmarshal(data, &docMap); err != nil {
		return "", fmt.Errorf("store: unmarshal document: %w", err)
	}
	docMap["_id"] = id
	if expectedRev != "" {
		docMap["_rev"] = expectedRev
	} else if current, err := c.db(dbName).GetRev(ctx, id); err == nil {
		// No precondition: overwrite whatever revision is current.
		docMap["_rev"] = current
	} else {
		delete(docMap, "_rev")
	}

	rev, err := c.db(dbName).Put(ctx, id, docMap)
	if err != nil {
		return "", classify("put", kivik.HTTPStatus(err), err.Error())
	}
	return rev, nil
}

func (c *CouchStore) Get(ctx context.Context, dbName, partition, id string) (json.RawMessage, error) {
	row := c.db(dbName).Get(ctx, id)
	if err := row.Err(); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return nil, nil
		}
		return nil, classify("get", kivik.HTTPStatus(err), err.Error())
	}
	var raw json.RawMessage
	if err := row.ScanDoc(&raw); err != nil {
		return nil, fmt.Errorf("store: scan document: %w", err)
	}
	return raw, nil
}

func (c *CouchStore) Find(ctx context.Context, dbName, partition string, selector map[string]any, limit, skip int) ([]json.RawMessage, error) {
	// Documents of every kind in a group share one database, so restrict
	// the query to ids of the form "<partition>:<name>".
	scoped := map[string]any{}
	if partition != "" {
		scoped["_id"] = map[string]any{"$gt": partition + ":", "$lt": partition + ";"}
	}
	for k, v := range selector {
		scoped[k] = v
	}
	query := map[string]any{"selector": scoped}
	if limit > 0 {
		query["limit"] = limit
	}
	if skip > 0 {
		query["skip"] = skip
	}
	rows := c.db(dbName).Find(ctx, query)
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var raw json.RawMessage
		if err := rows.ScanDoc(&raw); err != nil {
			return nil, fmt.Errorf("store: scan document: %w", err)
		}
		docs = append(docs, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("find", kivik.HTTPStatus(err), err.Error())
	}
	return docs, nil
}

func (c *CouchStore) Delete(ctx context.Context, dbName, partition, id, expectedRev string) error {
	_, err := c.db(dbName).Delete(ctx, id, expectedRev)
	if err != nil {
		return classify("delete", kivik.HTTPStatus(err), err.Error())
	}
	return nil
}

func (c *CouchStore) EnsureIndex(ctx context.Context, dbName, partition string, fields []string) error {
	name := partition + "-" + strings.Join(fields, "-") + "-index"
	def := map[string]any{
		"index": map[string]any{"fields": fields},
		"name":  name,
		"type":  "json",
	}
	if err := c.db(dbName).CreateIndex(ctx, "", name, def); err != nil {
		return classify("ensure_index", kivik.HTTPStatus(err), err.Error())
	}
	return nil
}

func (c *CouchStore) Changes(ctx context.Context, dbName, partition, since string) (ChangeFeed, error) {
	if since == "" {
		since = "now"
	}
	rows := c.db(dbName).Changes(ctx, kivik.Params(map[string]any{
		"since":        since,
		"feed":         "continuous",
		"include_docs": true,
		"heartbeat":    60000,
	}))
	return &couchChangeFeed{rows: rows}, nil
}

// couchChangeFeed adapts kivik's *kivik.ChangesIterator to the ChangeFeed
// contract, grounded on db/couchdb_changes.go's ListenChanges scan loop.
type couchChangeFeed struct {
	rows *kivik.ChangesIterator
}

func (f *couchChangeFeed) Next(ctx context.Context) (Change, bool, error) {
	if !f.rows.Next() {
		if err := f.rows.Err(); err != nil {
			return Change{}, false, classify("changes", kivik.HTTPStatus(err), err.Error())
		}
		return Change{}, false, nil
	}
	var raw json.RawMessage
	_ = f.rows.ScanDoc(&raw)
	return Change{
		Seq:     f.rows.Seq(),
		ID:      f.rows.ID(),
		Deleted: f.rows.Deleted(),
		Doc:     raw,
	}, true, nil
}

func (f *couchChangeFeed) Close() error {
	return f.rows.Close()
}
