package model

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erauner12/restmodel/pkg/client"
)

// Collection is an ordered list of entities of one schema plus a cache of
// every entity it has reconciled
type Collection struct {
	mu     sync.RWMutex
	schema *Schema
	items  []*Entity
	cache  []*Entity

	currentPage int
	lastPage    int
	perPage     int
	total       int
	query       map[string]any

	primaryKey string
	api        string
	baseURL    string
	loading    atomic.Bool

	client     *client.Client
	logger     *zerolog.Logger
	normalizer Normalizer
	records    []map[string]any
}

// CollectionOption configures a new collection
type CollectionOption func(*Collection)

// WithCollectionAPI sets the list path (default: the schema API)
func WithCollectionAPI(api string) CollectionOption {
	return func(c *Collection) { c.api = api }
}

// WithCollectionBaseURL sets the base URL for the list and its entities
func WithCollectionBaseURL(baseURL string) CollectionOption {
	return func(c *Collection) { c.baseURL = baseURL }
}

// WithCollectionPrimaryKey overrides the schema primary key
func WithCollectionPrimaryKey(key string) CollectionOption {
	return func(c *Collection) { c.primaryKey = key }
}

// WithCollectionClient sets the client for the list and its entities
func WithCollectionClient(cl *client.Client) CollectionOption {
	return func(c *Collection) { c.client = cl }
}

// WithCollectionLogger sets the logger for data-shape warnings
// (default: the global zerolog logger)
func WithCollectionLogger(l zerolog.Logger) CollectionOption {
	return func(c *Collection) { c.logger = &l }
}

// WithNormalizer replaces DefaultNormalizer for ReadList
func WithNormalizer(n Normalizer) CollectionOption {
	return func(c *Collection) { c.normalizer = n }
}

// WithRecords hydrates the initial items; the cache starts as a copy
func WithRecords(records []map[string]any) CollectionOption {
	return func(c *Collection) { c.records = records }
}

// NewCollection creates an empty collection for schema
func NewCollection(schema *Schema, opts ...CollectionOption) *Collection {
	if schema == nil {
		schema = &Schema{}
	}
	c := &Collection{
		schema:     schema,
		query:      map[string]any{},
		primaryKey: schema.primaryKey(),
		api:        schema.API,
		baseURL:    schema.BaseURL,
		normalizer: DefaultNormalizer,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.items = make([]*Entity, 0, len(c.records))
	for _, rec := range c.records {
		c.items = append(c.items, c.newEntity(rec))
	}
	c.cache = append([]*Entity(nil), c.items...)
	c.records = nil
	return c
}

func (c *Collection) log() *zerolog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return &log.Logger
}

func (c *Collection) newEntity(data map[string]any) *Entity {
	return NewEntity(c.schema, data,
		WithBaseURL(c.baseURL),
		WithClient(c.client),
		WithPrimaryKey(c.primaryKey),
	)
}

// Schema returns the entity schema of the collection
func (c *Collection) Schema() *Schema {
	return c.schema
}

// Items returns a copy of the visible entities
func (c *Collection) Items() []*Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Entity(nil), c.items...)
}

// Cache returns a copy of the cached entities
func (c *Collection) Cache() []*Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Entity(nil), c.cache...)
}

// Len returns the number of visible entities
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// CacheLen returns the number of cached entities
func (c *Collection) CacheLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// At returns the item at index; negative indexes count from the end.
// Out of range yields nil.
func (c *Collection) At(index int) *Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 0 {
		index += len(c.items)
	}
	if index < 0 || index >= len(c.items) {
		return nil
	}
	return c.items[index]
}

func (c *Collection) CurrentPage() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentPage
}

func (c *Collection) LastPage() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPage
}

func (c *Collection) PerPage() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.perPage
}

func (c *Collection) Total() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.total
}

// Query returns a copy of the last-used query parameters
func (c *Collection) Query() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.query))
	for k, v := range c.query {
		out[k] = v
	}
	return out
}

// Loading reports whether a list request is in flight
func (c *Collection) Loading() bool {
	return c.loading.Load()
}

// PrimaryKey returns the key used for reconciliation
func (c *Collection) PrimaryKey() string {
	return c.primaryKey
}

// BaseURL implements client.Target
func (c *Collection) BaseURL() string {
	return c.baseURL
}

// API implements client.Target
func (c *Collection) API() string {
	return c.api
}

// RequestBody implements client.Target
func (c *Collection) RequestBody(_ context.Context, opts *client.Options) (any, error) {
	return opts.Body, nil
}

var pageKeys = map[string][]string{
	"currentPage": {"current_page", "currentPage"},
	"lastPage":    {"last_page", "lastPage"},
	"perPage":     {"per_page", "perPage"},
	"total":       {"total"},
}

// Set applies pagination metadata and query. Both snake_case and camelCase
// keys are accepted; other keys are ignored.
func (c *Collection) Set(data map[string]any) *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()

	targets := map[string]*int{
		"currentPage": &c.currentPage,
		"lastPage":    &c.lastPage,
		"perPage":     &c.perPage,
		"total":       &c.total,
	}
	for name, keys := range pageKeys {
		for _, k := range keys {
			if n, ok := toInt(data[k]); ok {
				*targets[name] = n
				break
			}
		}
	}
	if q, ok := data["query"].(map[string]any); ok {
		c.query = q
	}
	return c
}

func (c *Collection) keyOf(e *Entity) string {
	if e == nil {
		return ""
	}
	v, _ := e.Get(c.primaryKey)
	return client.Stringify(v)
}

func (c *Collection) indexByKey(list []*Entity, key string) int {
	for i, e := range list {
		if e != nil && c.keyOf(e) == key {
			return i
		}
	}
	return -1
}

// PushData merges records into the visible items: a record whose key
// matches an item updates it in place, any other record is appended as a
// new entity. The cache then mirrors the items. Empty input is a no-op.
func (c *Collection) PushData(records []map[string]any) *Collection {
	if len(records) == 0 {
		return c
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rec := range records {
		key := client.Stringify(rec[c.primaryKey])
		if i := c.indexByKey(c.items, key); i >= 0 {
			c.items[i].Set(rec)
			continue
		}
		c.items = append(c.items, c.newEntity(rec))
	}
	c.cache = append([]*Entity(nil), c.items...)
	return c
}

// ReflashData merges records into the cache, updating matching entities in
// place and appending the rest, then replaces the visible items with new
// entities built from exactly the given records. Empty input is a no-op.
func (c *Collection) ReflashData(records []map[string]any) *Collection {
	if len(records) == 0 {
		return c
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cache := append([]*Entity(nil), c.cache...)
	for _, rec := range records {
		key := client.Stringify(rec[c.primaryKey])
		if i := c.indexByKey(cache, key); i >= 0 {
			cache[i].Set(cloneRecord(rec))
			continue
		}
		cache = append(cache, c.newEntity(cloneRecord(rec)))
	}
	c.cache = cache

	items := make([]*Entity, len(records))
	for i, rec := range records {
		items[i] = c.newEntity(cloneRecord(rec))
	}
	c.items = items
	return c
}

// cloneRecord copies the nested maps and slices of rec so entities built
// from the same record do not share them
func cloneRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneRecord(t)
	case []any:
		list := make([]any, len(t))
		for i, item := range t {
			list[i] = cloneValue(item)
		}
		return list
	case []map[string]any:
		list := make([]map[string]any, len(t))
		for i, item := range t {
			list[i] = cloneRecord(item)
		}
		return list
	}
	return v
}

// warnForeign reports inserted values that are not entities of the
// collection schema. The insert still happens.
func (c *Collection) warnForeign(op string, entities []*Entity) {
	for _, e := range entities {
		if e == nil || e.Schema() != c.schema {
			c.log().Warn().
				Str("op", op).
				Str("schema", c.schema.name()).
				Msg("operate data type is not the collection schema")
			return
		}
	}
}

// Push appends entities to the items and the cache and returns the new length
func (c *Collection) Push(entities ...*Entity) int {
	c.warnForeign("push", entities)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, entities...)
	c.cache = append(c.cache, entities...)
	return len(c.items)
}

// Unshift prepends entities to the items, appends them to the cache and
// returns the new length
func (c *Collection) Unshift(entities ...*Entity) int {
	c.warnForeign("unshift", entities)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(append([]*Entity(nil), entities...), c.items...)
	c.cache = append(c.cache, entities...)
	return len(c.items)
}

// Splice removes deleteCount items at start, inserts entities there and
// returns the removed items. A negative start counts from the end; both
// arguments are clamped to the item range. Inserted entities are also
// appended to the cache.
func (c *Collection) Splice(start, deleteCount int, entities ...*Entity) []*Entity {
	if len(entities) > 0 {
		c.warnForeign("splice", entities)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.items)
	if start < 0 {
		start = max(n+start, 0)
	}
	start = min(start, n)
	deleteCount = min(max(deleteCount, 0), n-start)

	removed := append([]*Entity(nil), c.items[start:start+deleteCount]...)

	items := make([]*Entity, 0, n-deleteCount+len(entities))
	items = append(items, c.items[:start]...)
	items = append(items, entities...)
	items = append(items, c.items[start+deleteCount:]...)
	c.items = items

	c.cache = append(c.cache, entities...)
	return removed
}

// Pop removes and returns the last item, or nil
func (c *Collection) Pop() *Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return nil
	}
	last := c.items[len(c.items)-1]
	c.items = c.items[:len(c.items)-1]
	return last
}

// Shift removes and returns the first item, or nil
func (c *Collection) Shift() *Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return nil
	}
	first := c.items[0]
	c.items = append([]*Entity(nil), c.items[1:]...)
	return first
}

// Find returns the first item matching fn, or nil
func (c *Collection) Find(fn func(*Entity) bool) *Entity {
	if i := c.FindIndex(fn); i >= 0 {
		return c.At(i)
	}
	return nil
}

// FindIndex returns the index of the first item matching fn, or -1
func (c *Collection) FindIndex(fn func(*Entity) bool) int {
	for i, e := range c.Items() {
		if fn(e) {
			return i
		}
	}
	return -1
}

// Filter returns the items matching fn
func (c *Collection) Filter(fn func(*Entity) bool) []*Entity {
	var out []*Entity
	for _, e := range c.Items() {
		if fn(e) {
			out = append(out, e)
		}
	}
	return out
}

// Some reports whether any item matches fn
func (c *Collection) Some(fn func(*Entity) bool) bool {
	return c.FindIndex(fn) >= 0
}

// Every reports whether all items match fn
func (c *Collection) Every(fn func(*Entity) bool) bool {
	for _, e := range c.Items() {
		if !fn(e) {
			return false
		}
	}
	return true
}

// Each calls fn for every item in order
func (c *Collection) Each(fn func(i int, e *Entity)) {
	for i, e := range c.Items() {
		fn(i, e)
	}
}

// ReadList fetches a page, applies its pagination metadata and merges its
// records with PushData when appendMode is set, otherwise with ReflashData.
// The stored query is sent as the default query and replaced by the merged
// query on success.
func (c *Collection) ReadList(ctx context.Context, opts *client.Options, appendMode bool) (*client.Response, error) {
	if opts == nil {
		opts = &client.Options{}
	}

	query := c.Query()
	for k, v := range opts.Query {
		query[k] = v
	}

	c.loading.Store(true)
	defer c.loading.Store(false)

	cl := c.client
	if cl == nil {
		cl = client.Default()
	}
	resp, err := cl.Do(ctx, c, opts, client.Defaults{Method: http.MethodGet, Query: query})
	if err != nil {
		return nil, err
	}

	data := resp.Data
	if opts.ResponseHandler != nil {
		if data, err = opts.ResponseHandler(data, opts); err != nil {
			return nil, err
		}
	}

	page, err := c.normalizer(data)
	if err != nil {
		return nil, err
	}

	c.Set(page.Meta)
	c.mu.Lock()
	c.query = query
	c.mu.Unlock()

	if appendMode {
		c.PushData(page.Records)
	} else {
		c.ReflashData(page.Records)
	}
	return resp, nil
}
