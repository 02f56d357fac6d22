package validate

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// Source exposes field values to the engine
type Source interface {
	Field(name string) any
}

// Engine evaluates rules against a Source and keeps the latest Result
type Engine struct {
	source   Source
	registry *Registry
	options  Options

	mu     sync.RWMutex
	errors Result
}

// NewEngine creates an engine bound to source. A nil registry falls back to
// NewRegistry().
func NewEngine(source Source, registry *Registry, opts Options) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Engine{
		source:   source,
		registry: registry,
		options:  opts,
	}
}

// Registry returns the validator registry used by the engine
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Evaluate runs rules against the bound source and stores the pruned result.
// opts are merged over the engine options and act as defaults for every
// validator's own options.
//
// Fields and validator names are visited in sorted order, so the order of
// errors within a field is deterministic. An unknown validator aborts the
// evaluation with ErrUnknownValidator and leaves the stored result unchanged.
func (e *Engine) Evaluate(rules Rules, opts Options) (Result, error) {
	merged := make(Options, len(e.options)+len(opts))
	for k, v := range e.options {
		merged[k] = v
	}
	for k, v := range opts {
		merged[k] = v
	}

	raw, err := e.run(rules, merged)
	if err != nil {
		return nil, err
	}

	result := prune(raw)

	e.mu.Lock()
	e.errors = result
	e.mu.Unlock()

	return result, nil
}

func (e *Engine) run(rules Rules, global Options) (Result, error) {
	fields := make([]string, 0, len(rules))
	for field := range rules {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	result := make(Result, len(fields))
	for _, field := range fields {
		validators := rules[field]
		if IsEmpty(validators) {
			continue
		}

		value := cloneValue(e.source.Field(field))

		names := make([]string, 0, len(validators))
		for name := range validators {
			names = append(names, name)
		}
		sort.Strings(names)

		errs := make([]Error, 0)
		for _, name := range names {
			fn, ok := e.registry.Lookup(name)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownValidator,
					Format("Unknown validator %{name}", map[string]any{"name": name}))
			}
			vopts := validators[name]
			msg := fn(value, withDefaults(vopts, global))
			if IsEmpty(msg) {
				continue
			}
			errs = append(errs, Error{
				Field:      field,
				Value:      value,
				Rule:       name,
				Message:    msg,
				RawRule:    validators,
				RawOptions: vopts,
			})
		}
		result[field] = errs
	}
	return result, nil
}

// withDefaults overlays a validator's own options on the engine-wide ones
func withDefaults(opts, global Options) Options {
	if len(global) == 0 {
		return opts
	}
	out := make(Options, len(global)+len(opts))
	for k, v := range global {
		out[k] = v
	}
	for k, v := range opts {
		out[k] = v
	}
	return out
}

// Errors returns the result of the last successful evaluation
func (e *Engine) Errors() Result {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.errors
}

// Reset clears the stored result
func (e *Engine) Reset() {
	e.mu.Lock()
	e.errors = nil
	e.mu.Unlock()
}

// FirstError returns the message at index in field's error list, or "" when
// the field has no errors. index must be lower than the number of errors for
// the field; a larger index panics.
func (e *Engine) FirstError(field string, index int) string {
	errs := e.Errors()[field]
	if len(errs) == 0 {
		return ""
	}
	return errs[index].Message
}

var timeType = reflect.TypeOf(time.Time{})

// cloneValue deep-copies structured values so validators cannot observe or
// mutate live state. Scalars and time values pass through unchanged.
func cloneValue(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer, reflect.Struct:
		if rv.Type() == timeType || (rv.Kind() == reflect.Pointer && rv.Type().Elem() == timeType) {
			return v
		}
		if (rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice || rv.Kind() == reflect.Pointer) && rv.IsNil() {
			return v
		}
		data, err := json.Marshal(v)
		if err != nil {
			return v
		}
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return v
		}
		return out
	}
	return v
}
