package client

import "context"

// Target is the model a request is built for
type Target interface {
	// BaseURL is the API origin, e.g. https://api.example.com
	BaseURL() string
	// API is the path template relative to the base URL, e.g. users/:id?
	API() string
	// RequestBody produces the body when the call site has no handler
	RequestBody(ctx context.Context, opts *Options) (any, error)
}

// BodyHandler produces a request body for target
type BodyHandler func(ctx context.Context, target Target, opts *Options) (any, error)

// ResponseHandler transforms decoded response data before it is applied to
// a model
type ResponseHandler func(data any, opts *Options) (any, error)

// Policy holds transport policy strings. Browser-only policies are carried
// through unchanged; HTTPTransport honours Redirect, Cache and Referrer.
type Policy struct {
	Mode        string
	Cache       string
	Redirect    string
	Referrer    string
	Integrity   string
	Credentials string
}

// DefaultPolicy returns the policy applied when no layer sets a value
func DefaultPolicy() Policy {
	return Policy{
		Mode:        "cors",
		Cache:       "default",
		Redirect:    "follow",
		Referrer:    "about:client",
		Integrity:   "",
		Credentials: "same-origin",
	}
}

// merge fills empty fields of p from fallback
func (p Policy) merge(fallback Policy) Policy {
	return Policy{
		Mode:        firstNonEmpty(p.Mode, fallback.Mode),
		Cache:       firstNonEmpty(p.Cache, fallback.Cache),
		Redirect:    firstNonEmpty(p.Redirect, fallback.Redirect),
		Referrer:    firstNonEmpty(p.Referrer, fallback.Referrer),
		Integrity:   firstNonEmpty(p.Integrity, fallback.Integrity),
		Credentials: firstNonEmpty(p.Credentials, fallback.Credentials),
	}
}

// Defaults are the per-operation values a call site can override
type Defaults struct {
	Method  string
	Params  map[string]any
	Query   map[string]any
	Headers any
	Policy  Policy
}

// Options configure a single call.
//
// Headers accepts http.Header, map[string]string, map[string][]string or
// map[string]any.
type Options struct {
	Method  string
	Params  map[string]any
	Query   map[string]any
	Headers any
	Policy  Policy

	// BaseURL and Path override the target's values
	BaseURL string
	Path    string

	// Body is returned by the default model body handlers
	Body any

	RequestHandler  BodyHandler
	ResponseHandler ResponseHandler

	Hooks Hooks
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// mergeMaps shallow-merges layers left to right into a new map
func mergeMaps(layers ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}
