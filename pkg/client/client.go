package client

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/erauner12/restmodel/pkg/config"
	"github.com/erauner12/restmodel/pkg/formdata"
)

// Client builds requests for models and dispatches them through a Chain
// and a Transport
type Client struct {
	transport Transport
	chain     *Chain
	baseURL   string
	headers   http.Header
}

// Option configures a Client
type Option func(*Client)

// WithTransport sets the transport (default: HTTPTransport)
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithChain sets the interceptor chain (default: DefaultChain())
func WithChain(chain *Chain) Option {
	return func(c *Client) { c.chain = chain }
}

// WithBaseURL sets the base URL used when neither the call site nor the
// model provide one
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHeaders sets headers applied to every request, between the JSON
// content type and the operation defaults
func WithHeaders(h http.Header) Option {
	return func(c *Client) { c.headers = h.Clone() }
}

// New creates a client
func New(opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(DefaultTimeout, DefaultMaxRetries)
	}
	if c.chain == nil {
		c.chain = DefaultChain()
	}
	return c
}

// NewFromConfig creates a client with an HTTPTransport configured from cfg.
// Extra options are applied last.
func NewFromConfig(cfg *config.Config, opts ...Option) *Client {
	h := make(http.Header, len(cfg.DefaultHeaders))
	for k, v := range cfg.DefaultHeaders {
		h.Set(k, v)
	}

	base := []Option{
		WithTransport(NewHTTPTransport(time.Duration(cfg.TimeoutSeconds)*time.Second, cfg.MaxRetries)),
		WithBaseURL(cfg.APIBaseURL),
		WithHeaders(h),
	}
	return New(append(base, opts...)...)
}

var (
	defaultClient     *Client
	defaultClientOnce sync.Once
)

// Default returns a shared client with an HTTPTransport and the default chain
func Default() *Client {
	defaultClientOnce.Do(func() {
		defaultClient = New()
	})
	return defaultClient
}

// BaseURL returns the client's fallback base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Chain returns the interceptor chain
func (c *Client) Chain() *Chain {
	return c.chain
}

// Build resolves a request for target from the operation defaults and the
// call-site options.
//
// Headers are layered as: JSON content type, client headers, defaults, call
// site. The method is the call-site method, else the default, else GET. The
// body comes from opts.RequestHandler when set, else from the target. A
// multipart body forces POST; when the original method was not POST it is
// sent as a _method field and the Content-Type switches to multipart.
func (c *Client) Build(ctx context.Context, target Target, opts *Options, def Defaults) (*Request, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if opts == nil {
		opts = &Options{}
	}

	req := NewRequest()
	req.BaseURL = firstNonEmpty(opts.BaseURL, target.BaseURL(), c.baseURL)
	req.Path = firstNonEmpty(opts.Path, target.API())
	req.Params = mergeMaps(def.Params, opts.Params)
	req.Query = mergeMaps(def.Query, opts.Query)

	if err := MergeHeaders(req.Header, c.headers, def.Headers, opts.Headers); err != nil {
		return nil, err
	}

	req.Method = firstNonEmpty(strings.ToUpper(opts.Method), strings.ToUpper(def.Method), req.Method)
	req.Policy = opts.Policy.merge(def.Policy).merge(req.Policy)

	var (
		body any
		err  error
	)
	if opts.RequestHandler != nil {
		body, err = opts.RequestHandler(ctx, target, opts)
	} else {
		body, err = target.RequestBody(ctx, opts)
	}
	if err != nil {
		return nil, err
	}

	if form, ok := body.(*formdata.Form); ok {
		original := req.Method
		req.Method = http.MethodPost
		if original != http.MethodPost {
			form.Set("_method", original)
			req.Header.Set("Content-Type", form.ContentType())
		}
	}
	req.Body = body

	req.ResolveURL()
	return req, nil
}

// Do builds and sends a request. It returns exactly one of a response or an
// error. Build failures pass through OnRequestFailed; transport failures and
// non-OK responses (as *ResponseError) pass through OnResponseFailed.
func (c *Client) Do(ctx context.Context, target Target, opts *Options, def Defaults) (*Response, error) {
	if opts == nil {
		opts = &Options{}
	}

	req, err := c.Build(ctx, target, opts, def)
	if err != nil {
		log.Debug().Err(err).Msg("request build failed")
		return nil, c.chain.RequestFailed(err, opts)
	}

	req = c.chain.RequestReady(req, opts)

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return nil, c.chain.ResponseFailed(err, opts)
	}
	if !resp.OK {
		return nil, c.chain.ResponseFailed(&ResponseError{Response: resp}, opts)
	}

	return c.chain.ResponseReady(resp, opts), nil
}
