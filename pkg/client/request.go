package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// placeholderRegexp matches optional path placeholders such as /:id?
var placeholderRegexp = regexp.MustCompile(`/:(\S*?)\?`)

// Request is a fully resolved, transport-ready description of one call
type Request struct {
	BaseURL string
	Path    string
	Params  map[string]any
	Query   map[string]any
	Header  http.Header
	Method  string
	Body    any
	Policy  Policy

	// ParamsURL is the URL before placeholder substitution
	ParamsURL string
	// URL is the final request URL
	URL string
}

// NewRequest returns a request with the JSON content type, GET and the
// default policy
func NewRequest() *Request {
	h := make(http.Header)
	h.Set("Content-Type", ContentTypeJSON)
	return &Request{
		Params: map[string]any{},
		Query:  map[string]any{},
		Header: h,
		Method: http.MethodGet,
		Policy: DefaultPolicy(),
	}
}

// ParamsString returns a /:key? placeholder for every param whose
// placeholder does not already appear in the path, in sorted key order
func (r *Request) ParamsString() string {
	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		ph := "/:" + k + "?"
		if strings.Contains(r.Path, ph) || strings.HasPrefix(r.Path, ph[1:]) {
			continue
		}
		b.WriteString(ph)
	}
	return b.String()
}

// QueryString returns the encoded query, including the leading "?", or ""
// when there are no pairs. For GET and DELETE the body contributes
// additional pairs after the declared query.
func (r *Request) QueryString() string {
	var parts []string
	if q := toValues(r.Query).Encode(); q != "" {
		parts = append(parts, q)
	}
	if r.Method == http.MethodGet || r.Method == http.MethodDelete {
		if q := toValues(r.Body).Encode(); q != "" {
			parts = append(parts, q)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "?" + strings.Join(parts, "&")
}

// ResolveURL assembles base URL, path, params and query, substitutes
// placeholders and stores the result in URL
func (r *Request) ResolveURL() string {
	r.ParamsURL = strings.TrimRight(r.BaseURL, "/") + "/" + strings.TrimLeft(r.Path, "/") + r.ParamsString() + r.QueryString()
	r.URL = r.substitute(r.ParamsURL)
	return r.URL
}

// substitute replaces /:name? with /<value>. Placeholders without a
// matching param are left as they are.
func (r *Request) substitute(raw string) string {
	return placeholderRegexp.ReplaceAllStringFunc(raw, func(match string) string {
		name := placeholderRegexp.FindStringSubmatch(match)[1]
		v, ok := r.Params[name]
		if !ok {
			log.Warn().
				Str("placeholder", match).
				Str("url", raw).
				Msg("unresolved path placeholder")
			return match
		}
		return "/" + url.PathEscape(Stringify(v))
	})
}

// Stringify formats scalar values for URLs and key comparison. Integral
// floats (as produced by JSON decoding) are rendered without exponent or
// fraction.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

// snapshotter is implemented by models that can expose their attributes
type snapshotter interface {
	Snapshot() map[string]any
}

// toValues converts query-like values into url.Values. Unsupported values
// yield no pairs.
func toValues(v any) url.Values {
	out := url.Values{}
	switch t := v.(type) {
	case nil:
	case url.Values:
		for k, vs := range t {
			out[k] = append([]string(nil), vs...)
		}
	case map[string]string:
		for k, s := range t {
			out.Set(k, s)
		}
	case map[string][]string:
		for k, vs := range t {
			out[k] = append([]string(nil), vs...)
		}
	case map[string]any:
		for k, item := range t {
			addValue(out, k, item)
		}
	case snapshotter:
		return toValues(t.Snapshot())
	}
	return out
}

func addValue(out url.Values, key string, v any) {
	if v == nil {
		return
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return
		}
		if s, ok := v.(snapshotter); ok {
			addValue(out, key, s.Snapshot())
			return
		}
		if _, ok := v.(fmt.Stringer); !ok {
			addValue(out, key, rv.Elem().Interface())
			return
		}
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			out.Add(key, string(rv.Bytes()))
			return
		}
		for i := 0; i < rv.Len(); i++ {
			addValue(out, key, rv.Index(i).Interface())
		}
	case reflect.Map, reflect.Struct:
		if _, ok := v.(fmt.Stringer); ok {
			out.Add(key, Stringify(v))
			return
		}
		data, err := json.Marshal(v)
		if err != nil {
			out.Add(key, fmt.Sprint(v))
			return
		}
		out.Add(key, string(data))
	default:
		out.Add(key, Stringify(v))
	}
}
