package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/erauner12/restmodel/pkg/client"
	"github.com/erauner12/restmodel/pkg/validate"
)

// Timestamp attribute names every entity starts with
const (
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldDeletedAt = "deleted_at"
)

// Entity is one remote resource.
//
// Attributes are the serializable state. Everything else lives in the
// control block and is excluded from Snapshot and MarshalJSON.
type Entity struct {
	mu    sync.RWMutex
	attrs map[string]any
	ctl   control
}

type control struct {
	schema     *Schema
	mode       Mode
	loading    atomic.Bool
	modelID    string
	baseURL    string
	api        string
	primaryKey string
	client     *client.Client
	engine     *validate.Engine
}

// EntityOption configures a new entity
type EntityOption func(*control)

// WithClient sets the client used for CRUD calls (default: client.Default())
func WithClient(c *client.Client) EntityOption {
	return func(ctl *control) { ctl.client = c }
}

// WithBaseURL overrides the schema's base URL
func WithBaseURL(baseURL string) EntityOption {
	return func(ctl *control) {
		if baseURL != "" {
			ctl.baseURL = baseURL
		}
	}
}

// WithAPI overrides the schema's path template
func WithAPI(api string) EntityOption {
	return func(ctl *control) {
		if api != "" {
			ctl.api = api
		}
	}
}

// WithMode sets the initial mode (default: static)
func WithMode(mode Mode) EntityOption {
	return func(ctl *control) { ctl.mode = mode }
}

// WithPrimaryKey overrides the schema's primary key name
func WithPrimaryKey(key string) EntityOption {
	return func(ctl *control) {
		if key != "" {
			ctl.primaryKey = key
		}
	}
}

// NewEntity creates an entity from the schema defaults and data. A nil
// schema yields a plain entity with only the common attributes.
func NewEntity(schema *Schema, data map[string]any, opts ...EntityOption) *Entity {
	if schema == nil {
		schema = &Schema{}
	}

	e := &Entity{
		attrs: schema.defaults(),
		ctl: control{
			schema:     schema,
			mode:       ModeStatic,
			modelID:    uuid.NewString(),
			baseURL:    schema.BaseURL,
			api:        schema.API,
			primaryKey: schema.primaryKey(),
		},
	}
	for _, opt := range opts {
		opt(&e.ctl)
	}
	e.ctl.engine = validate.NewEngine(e, schema.Validators, nil)

	if _, ok := e.attrs[e.ctl.primaryKey]; !ok {
		e.attrs[e.ctl.primaryKey] = 0
	}
	for _, f := range []string{FieldCreatedAt, FieldUpdatedAt, FieldDeletedAt} {
		if _, ok := e.attrs[f]; !ok {
			e.attrs[f] = nil
		}
	}

	e.Set(data)
	return e
}

// ParseEntity creates an entity from a JSON object
func ParseEntity(schema *Schema, raw []byte, opts ...EntityOption) (*Entity, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if data == nil {
		return nil, ErrInvalidJSON
	}
	return NewEntity(schema, data, opts...), nil
}

// Set applies data to the entity after the schema setter. For every key:
// a field currently holding an entity is rebuilt as a new entity of the same
// schema from the incoming object, inheriting this entity's base URL and
// client; an array on a field declared in Schema.Nested becomes a slice of
// entities of the nested schema; anything else is assigned as is.
func (e *Entity) Set(data map[string]any) *Entity {
	if len(data) == 0 {
		return e
	}
	data = e.ctl.schema.setter(data)

	e.mu.Lock()
	defer e.mu.Unlock()

	for key, incoming := range data {
		if cur, ok := e.attrs[key].(*Entity); ok && cur != nil {
			e.attrs[key] = e.hydrateOne(cur.ctl.schema, incoming)
			continue
		}
		if ns, ok := e.ctl.schema.nested(key); ok {
			if list, ok := e.hydrateMany(ns, incoming); ok {
				e.attrs[key] = list
				continue
			}
		}
		e.attrs[key] = incoming
	}
	return e
}

func (e *Entity) childOptions() []EntityOption {
	return []EntityOption{WithBaseURL(e.ctl.baseURL), WithClient(e.ctl.client)}
}

func (e *Entity) hydrateOne(schema *Schema, incoming any) *Entity {
	switch v := incoming.(type) {
	case *Entity:
		if v != nil {
			return v
		}
	case map[string]any:
		return NewEntity(schema, v, e.childOptions()...)
	}
	return NewEntity(schema, nil, e.childOptions()...)
}

func (e *Entity) hydrateMany(schema *Schema, incoming any) ([]*Entity, bool) {
	switch v := incoming.(type) {
	case []*Entity:
		return v, true
	case []map[string]any:
		out := make([]*Entity, len(v))
		for i, m := range v {
			out[i] = NewEntity(schema, m, e.childOptions()...)
		}
		return out, true
	case []any:
		out := make([]*Entity, len(v))
		for i, item := range v {
			out[i] = e.hydrateOne(schema, item)
		}
		return out, true
	}
	return nil, false
}

// Get returns the attribute stored under key
func (e *Entity) Get(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.attrs[key]
	return v, ok
}

// Field implements validate.Source
func (e *Entity) Field(name string) any {
	v, _ := e.Get(name)
	return v
}

// GetString returns a string attribute
func (e *Entity) GetString(key string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return getString(e.attrs, key)
}

// GetInt returns a numeric attribute as int
func (e *Entity) GetInt(key string) (int, bool) {
	v, _ := e.Get(key)
	return toInt(v)
}

// GetFloat returns a numeric attribute as float64
func (e *Entity) GetFloat(key string) (float64, bool) {
	v, _ := e.Get(key)
	return toFloat(v)
}

// GetMap returns an object attribute. Nested entities are returned as
// snapshots.
func (e *Entity) GetMap(key string) (map[string]any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return getMap(e.attrs, key)
}

// GetTime parses a timestamp attribute such as created_at
func (e *Entity) GetTime(key string) (time.Time, bool) {
	v, _ := e.Get(key)
	return parseTime(v)
}

// GetEntity returns a nested entity
func (e *Entity) GetEntity(key string) (*Entity, bool) {
	v, _ := e.Get(key)
	ent, ok := v.(*Entity)
	return ent, ok && ent != nil
}

// GetEntities returns a hydrated nested array
func (e *Entity) GetEntities(key string) ([]*Entity, bool) {
	v, _ := e.Get(key)
	list, ok := v.([]*Entity)
	if !ok {
		return nil, false
	}
	return append([]*Entity(nil), list...), true
}

// ID returns the primary key value
func (e *Entity) ID() any {
	v, _ := e.Get(e.ctl.primaryKey)
	return v
}

// Snapshot returns a copy of the attributes with nested entities converted
// to maps
func (e *Entity) Snapshot() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]any, len(e.attrs))
	for k, v := range e.attrs {
		out[k] = snapshotValue(v)
	}
	return out
}

func snapshotValue(v any) any {
	switch t := v.(type) {
	case *Entity:
		if t == nil {
			return nil
		}
		return t.Snapshot()
	case []*Entity:
		list := make([]any, len(t))
		for i, item := range t {
			list[i] = snapshotValue(item)
		}
		return list
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, item := range t {
			m[k] = snapshotValue(item)
		}
		return m
	case []any:
		list := make([]any, len(t))
		for i, item := range t {
			list[i] = snapshotValue(item)
		}
		return list
	}
	return v
}

// MarshalJSON encodes the attributes only
func (e *Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Snapshot())
}

// Mode returns the lifecycle mode
func (e *Entity) Mode() Mode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ctl.mode
}

// SetMode changes the lifecycle mode
func (e *Entity) SetMode(m Mode) {
	e.mu.Lock()
	e.ctl.mode = m
	e.mu.Unlock()
}

// Loading reports whether a request is in flight. It is observational only.
func (e *Entity) Loading() bool {
	return e.ctl.loading.Load()
}

// ModelID is a random client-side identifier, never sent to the server
func (e *Entity) ModelID() string {
	return e.ctl.modelID
}

// PrimaryKey returns the primary key attribute name
func (e *Entity) PrimaryKey() string {
	return e.ctl.primaryKey
}

// BaseURL implements client.Target
func (e *Entity) BaseURL() string {
	return e.ctl.baseURL
}

// API implements client.Target
func (e *Entity) API() string {
	return e.ctl.api
}

// Schema returns the entity's schema
func (e *Entity) Schema() *Schema {
	return e.ctl.schema
}

// RequestBody implements client.Target
func (e *Entity) RequestBody(ctx context.Context, opts *client.Options) (any, error) {
	if h := e.ctl.schema.RequestHandler; h != nil {
		return h(ctx, e, opts)
	}
	return opts.Body, nil
}

// Validate evaluates rules, or the schema rules when rules is nil. A nil
// Result means every rule passed.
func (e *Entity) Validate(rules validate.Rules, opts validate.Options) (validate.Result, error) {
	if rules == nil {
		rules = e.ctl.schema.Rules
	}
	return e.ctl.engine.Evaluate(rules, opts)
}

// Errors returns the result of the last Validate call
func (e *Entity) Errors() validate.Result {
	return e.ctl.engine.Errors()
}

// FirstError returns the message at index for field, or "" when the field
// has no errors. index must be below the field's error count.
func (e *Entity) FirstError(field string, index int) string {
	return e.ctl.engine.FirstError(field, index)
}

func (e *Entity) httpClient() *client.Client {
	if e.ctl.client != nil {
		return e.ctl.client
	}
	return client.Default()
}

func (e *Entity) keyed(method string) client.Defaults {
	return client.Defaults{
		Method: method,
		Params: map[string]any{e.ctl.primaryKey: e.ID()},
	}
}

// Request sends a request for this entity. Loading is true until it returns.
func (e *Entity) Request(ctx context.Context, opts *client.Options, def client.Defaults) (*client.Response, error) {
	if opts == nil {
		opts = &client.Options{}
	}

	e.ctl.loading.Store(true)
	defer e.ctl.loading.Store(false)

	return e.httpClient().Do(ctx, e, opts, def)
}

// Read fetches the entity by primary key and applies the response
func (e *Entity) Read(ctx context.Context, opts *client.Options) (*client.Response, error) {
	resp, err := e.Request(ctx, opts, e.keyed(http.MethodGet))
	if err != nil {
		return nil, err
	}
	return resp, e.apply(resp, opts)
}

// Create posts the entity and applies the response
func (e *Entity) Create(ctx context.Context, opts *client.Options) (*client.Response, error) {
	resp, err := e.Request(ctx, opts, client.Defaults{Method: http.MethodPost})
	if err != nil {
		return nil, err
	}
	return resp, e.apply(resp, opts)
}

// Update puts the entity by primary key. The response is not applied.
func (e *Entity) Update(ctx context.Context, opts *client.Options) (*client.Response, error) {
	return e.Request(ctx, opts, e.keyed(http.MethodPut))
}

// Delete deletes the entity by primary key and marks it deleted. The entity
// stays in any collection holding it.
func (e *Entity) Delete(ctx context.Context, opts *client.Options) (*client.Response, error) {
	resp, err := e.Request(ctx, opts, e.keyed(http.MethodDelete))
	if err != nil {
		return nil, err
	}
	e.SetMode(ModeDeleted)
	return resp, nil
}

func (e *Entity) apply(resp *client.Response, opts *client.Options) error {
	handler := e.ctl.schema.ResponseHandler
	if opts != nil && opts.ResponseHandler != nil {
		handler = opts.ResponseHandler
	}

	data := resp.Data
	if handler != nil {
		var err error
		if data, err = handler(data, opts); err != nil {
			return err
		}
	}

	switch v := data.(type) {
	case nil:
		return nil
	case map[string]any:
		e.Set(v)
		return nil
	case string:
		if v == "" {
			return nil
		}
	}
	return fmt.Errorf("%w: %T", ErrInvalidPayload, data)
}
