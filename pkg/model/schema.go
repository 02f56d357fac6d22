package model

import (
	"github.com/erauner12/restmodel/pkg/client"
	"github.com/erauner12/restmodel/pkg/validate"
)

// Mode describes the lifecycle intent of an entity
type Mode string

const (
	ModeStatic  Mode = "static"
	ModeCreated Mode = "created"
	ModeEdited  Mode = "edited"
	ModeDeleted Mode = "deleted"
	ModeActive  Mode = "active"
)

// DefaultPrimaryKey is used when a schema does not name one
const DefaultPrimaryKey = "id"

// Schema defines a kind of entity.
//
// API is a path template relative to the base URL. Parameters that do not
// appear in it are appended as /:name? segments, so "users" serves both the
// list endpoint and users/:id.
type Schema struct {
	Name       string
	API        string
	BaseURL    string
	PrimaryKey string

	// Defaults returns the initial attributes of a new entity. An *Entity
	// value marks a nested object: later Set calls hydrate that field into
	// a fresh entity of the same schema.
	Defaults func() map[string]any

	// Nested maps array fields to the schema of their elements
	Nested map[string]*Schema

	// Rules are evaluated by Entity.Validate when no rules are passed
	Rules validate.Rules
	// Validators defaults to validate.NewRegistry()
	Validators *validate.Registry

	// Setter rewrites incoming data before it is applied. It receives a copy.
	Setter func(data map[string]any) map[string]any

	// RequestHandler produces request bodies when the call site has none;
	// without one the call site's Options.Body is sent
	RequestHandler client.BodyHandler
	// ResponseHandler transforms read and create responses before Set
	ResponseHandler client.ResponseHandler
}

func (s *Schema) primaryKey() string {
	if s == nil || s.PrimaryKey == "" {
		return DefaultPrimaryKey
	}
	return s.PrimaryKey
}

func (s *Schema) name() string {
	if s == nil || s.Name == "" {
		return "entity"
	}
	return s.Name
}

func (s *Schema) defaults() map[string]any {
	if s == nil || s.Defaults == nil {
		return map[string]any{}
	}
	d := s.Defaults()
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func (s *Schema) setter(data map[string]any) map[string]any {
	cp := make(map[string]any, len(data))
	for k, v := range data {
		cp[k] = v
	}
	if s == nil || s.Setter == nil {
		return cp
	}
	if out := s.Setter(cp); out != nil {
		return out
	}
	return map[string]any{}
}

func (s *Schema) nested(field string) (*Schema, bool) {
	if s == nil {
		return nil, false
	}
	ns, ok := s.Nested[field]
	return ns, ok
}
