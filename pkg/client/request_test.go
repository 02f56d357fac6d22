package client

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_ResolveURL(t *testing.T) {
	tests := []struct {
		name   string
		req    *Request
		want   string
		method string
	}{
		{
			name: "optional placeholder substituted",
			req: &Request{
				BaseURL: "https://api.example.com/",
				Path:    "/users/:id?",
				Params:  map[string]any{"id": 5},
			},
			want: "https://api.example.com/users/5",
		},
		{
			name: "param appended when absent from path",
			req: &Request{
				BaseURL: "https://api.example.com",
				Path:    "users",
				Params:  map[string]any{"id": float64(12)},
			},
			want: "https://api.example.com/users/12",
		},
		{
			name: "params appended in key order",
			req: &Request{
				BaseURL: "https://api.example.com",
				Path:    "orgs",
				Params:  map[string]any{"team": "core", "org": "acme"},
			},
			want: "https://api.example.com/orgs/acme/core",
		},
		{
			name: "unresolved placeholder left literal",
			req: &Request{
				BaseURL: "https://api.example.com",
				Path:    "users/:id?",
			},
			want: "https://api.example.com/users/:id?",
		},
		{
			name: "values are path escaped",
			req: &Request{
				BaseURL: "https://api.example.com",
				Path:    "files/:name?",
				Params:  map[string]any{"name": "a b/c"},
			},
			want: "https://api.example.com/files/a%20b%2Fc",
		},
		{
			name: "query string appended",
			req: &Request{
				BaseURL: "https://api.example.com",
				Path:    "users",
				Query:   map[string]any{"page": 2, "tags": []string{"a", "b"}},
			},
			want: "https://api.example.com/users?page=2&tags=a&tags=b",
		},
		{
			name:   "GET body folds into the query",
			method: http.MethodGet,
			req: &Request{
				BaseURL: "https://api.example.com",
				Path:    "users",
				Query:   map[string]any{"page": 1},
				Body:    map[string]any{"name": "kim"},
			},
			want: "https://api.example.com/users?page=1&name=kim",
		},
		{
			name:   "POST body stays out of the query",
			method: http.MethodPost,
			req: &Request{
				BaseURL: "https://api.example.com",
				Path:    "users",
				Body:    map[string]any{"name": "kim"},
			},
			want: "https://api.example.com/users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Method = tt.method
			if tt.req.Method == "" {
				tt.req.Method = http.MethodGet
			}
			assert.Equal(t, tt.want, tt.req.ResolveURL())
			assert.Equal(t, tt.want, tt.req.URL)
		})
	}
}

// record is a pointer type exposing its attributes like a model does
type record struct {
	attrs map[string]any
}

func (r *record) Snapshot() map[string]any { return r.attrs }

func TestRequest_QueryPointerValues(t *testing.T) {
	req := NewRequest()
	req.BaseURL = "http://h"
	req.Path = "users"
	req.Query = map[string]any{
		"owner":   &record{attrs: map[string]any{"id": 1, "name": "kim"}},
		"missing": (*record)(nil),
		"page":    1,
	}
	req.Body = map[string]any{"team": &record{attrs: map[string]any{"id": 2}}}
	req.ResolveURL()

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, `{"id":1,"name":"kim"}`, q.Get("owner"))
	assert.Equal(t, `{"id":2}`, q.Get("team"))
	assert.Equal(t, "1", q.Get("page"))
	assert.NotContains(t, q, "missing", "nil pointers are skipped")
}

func TestRequest_ParamsURLKeepsPlaceholders(t *testing.T) {
	req := NewRequest()
	req.BaseURL = "http://h"
	req.Path = "users"
	req.Params = map[string]any{"id": 7}
	req.ResolveURL()

	assert.Equal(t, "http://h/users/:id?", req.ParamsURL)
	assert.Equal(t, "http://h/users/7", req.URL)
}

func TestNewRequest_Defaults(t *testing.T) {
	req := NewRequest()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, ContentTypeJSON, req.Header.Get("Content-Type"))
	assert.Equal(t, DefaultPolicy(), req.Policy)
	assert.Empty(t, req.QueryString())
}

func TestStringify(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{float64(5), "5"},
		{float64(1e21), "1000000000000000000000"},
		{2.5, "2.5"},
		{42, "42"},
		{true, "true"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Stringify(c.in), "Stringify(%v)", c.in)
	}
}

func TestMergeHeaders(t *testing.T) {
	h := make(http.Header)
	h.Set("Content-Type", ContentTypeJSON)

	err := MergeHeaders(h,
		nil,
		http.Header{"X-Layer": {"client"}, "Accept": {"a", "b"}},
		map[string]string{"X-Layer": "defaults"},
		map[string]any{"X-Count": 3},
		map[string][]string{"Accept": {"c"}},
	)
	require.NoError(t, err)

	assert.Equal(t, "defaults", h.Get("X-Layer"), "later layer wins")
	assert.Equal(t, "3", h.Get("X-Count"))
	assert.Equal(t, []string{"c"}, h.Values("Accept"))
	assert.Equal(t, ContentTypeJSON, h.Get("Content-Type"))

	assert.ErrorIs(t, MergeHeaders(h, 42), ErrUnsupportedHeaders)
}
