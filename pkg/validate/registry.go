package validate

import (
	"fmt"
	"sort"
	"sync"
)

// Func checks a single value. It returns the failure message, or "" when the
// value passes.
type Func func(value any, opts Options) string

// Options carries validator-specific settings. The "message" key holds the
// text reported on failure.
type Options map[string]any

// Message returns the configured failure message
func (o Options) Message() string {
	if o == nil {
		return ""
	}
	if s, ok := o["message"].(string); ok {
		return s
	}
	return ""
}

// Rules maps a field name to the validators applied to it, keyed by
// validator name.
type Rules map[string]map[string]Options

// Registry maps validator names to validator functions
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates a registry preloaded with the shipped validators
// ("empty", "idROC" and "password").
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	r.MustRegister("empty", Empty)
	r.MustRegister("idROC", IDROC)
	r.MustRegister("password", Password)
	return r
}

// Register adds a validator under name
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return fmt.Errorf("validator name cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("%w: %s", ErrNilValidator, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateValidator, name)
	}
	r.funcs[name] = fn
	return nil
}

// MustRegister registers a validator or panics on error (for init-time registration)
func (r *Registry) MustRegister(name string, fn Func) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Replace registers fn under name, overwriting any existing validator
func (r *Registry) Replace(name string, fn Func) {
	r.mu.Lock()
	r.funcs[name] = fn
	r.mu.Unlock()
}

// Lookup returns the validator registered under name
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered validator names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
