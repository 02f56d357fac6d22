package client

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/erauner12/restmodel/pkg/formdata"
)

// RequestHook transforms a request before it is dispatched
type RequestHook func(req *Request, opts *Options) *Request

// ResponseHook transforms a successful response
type ResponseHook func(resp *Response, opts *Options) *Response

// ErrorHook transforms a failure. Returning nil does not swallow the
// failure; the original error is kept.
type ErrorHook func(err error, opts *Options) error

// Hooks are the four interceptor extension points
type Hooks struct {
	OnRequestReady   RequestHook
	OnRequestFailed  ErrorHook
	OnResponseReady  ResponseHook
	OnResponseFailed ErrorHook
}

// Chain holds the default hooks and composes them with per-call hooks.
// Every hook invocation runs the default first and the call-site hook on its
// output.
type Chain struct {
	mu       sync.RWMutex
	defaults Hooks
}

// NewChain creates a chain with the given defaults
func NewChain(defaults Hooks) *Chain {
	return &Chain{defaults: defaults}
}

var defaultChain = NewChain(Hooks{})

// DefaultChain returns the process-wide chain used by clients that were not
// given one
func DefaultChain() *Chain {
	return defaultChain
}

// SetDefaultHooks replaces the process-wide default hooks. It is meant to be
// called once at startup; changing defaults while requests are in flight
// gives no guarantee about which hooks those requests observe.
func SetDefaultHooks(h Hooks) {
	defaultChain.SetDefaults(h)
}

// SetDefaults replaces all default hooks
func (c *Chain) SetDefaults(h Hooks) {
	c.mu.Lock()
	c.defaults = h
	c.mu.Unlock()
}

// Defaults returns the current default hooks
func (c *Chain) Defaults() Hooks {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaults
}

// SetOnRequestReady replaces the default request-ready hook
func (c *Chain) SetOnRequestReady(fn RequestHook) {
	c.mu.Lock()
	c.defaults.OnRequestReady = fn
	c.mu.Unlock()
}

// SetOnRequestFailed replaces the default request-failed hook
func (c *Chain) SetOnRequestFailed(fn ErrorHook) {
	c.mu.Lock()
	c.defaults.OnRequestFailed = fn
	c.mu.Unlock()
}

// SetOnResponseReady replaces the default response-ready hook
func (c *Chain) SetOnResponseReady(fn ResponseHook) {
	c.mu.Lock()
	c.defaults.OnResponseReady = fn
	c.mu.Unlock()
}

// SetOnResponseFailed replaces the default response-failed hook
func (c *Chain) SetOnResponseFailed(fn ErrorHook) {
	c.mu.Lock()
	c.defaults.OnResponseFailed = fn
	c.mu.Unlock()
}

// RequestReady runs the default then the call-site request-ready hook.
// Call-site headers are reapplied between the two so the default hook cannot
// override them.
func (c *Chain) RequestReady(req *Request, opts *Options) *Request {
	if fn := c.Defaults().OnRequestReady; fn != nil {
		if out := fn(req, opts); out != nil {
			req = out
		}
		if opts != nil && opts.Headers != nil {
			ct := req.Header.Get("Content-Type")
			if err := MergeHeaders(req.Header, opts.Headers); err != nil {
				log.Warn().Err(err).Msg("call-site headers not reapplied")
			}
			// a multipart body keeps its boundary
			if _, ok := req.Body.(*formdata.Form); ok && ct != "" {
				req.Header.Set("Content-Type", ct)
			}
		}
	}
	if opts != nil && opts.Hooks.OnRequestReady != nil {
		if out := opts.Hooks.OnRequestReady(req, opts); out != nil {
			req = out
		}
	}
	return req
}

// ResponseReady runs the default then the call-site response-ready hook
func (c *Chain) ResponseReady(resp *Response, opts *Options) *Response {
	if fn := c.Defaults().OnResponseReady; fn != nil {
		if out := fn(resp, opts); out != nil {
			resp = out
		}
	}
	if opts != nil && opts.Hooks.OnResponseReady != nil {
		if out := opts.Hooks.OnResponseReady(resp, opts); out != nil {
			resp = out
		}
	}
	return resp
}

// RequestFailed runs the default then the call-site request-failed hook
func (c *Chain) RequestFailed(err error, opts *Options) error {
	var callSite ErrorHook
	if opts != nil {
		callSite = opts.Hooks.OnRequestFailed
	}
	return composeError(c.Defaults().OnRequestFailed, callSite, err, opts)
}

// ResponseFailed runs the default then the call-site response-failed hook
func (c *Chain) ResponseFailed(err error, opts *Options) error {
	var callSite ErrorHook
	if opts != nil {
		callSite = opts.Hooks.OnResponseFailed
	}
	return composeError(c.Defaults().OnResponseFailed, callSite, err, opts)
}

func composeError(global, callSite ErrorHook, err error, opts *Options) error {
	if global != nil {
		if out := global(err, opts); out != nil {
			err = out
		}
	}
	if callSite != nil {
		if out := callSite(err, opts); out != nil {
			err = out
		}
	}
	return err
}
