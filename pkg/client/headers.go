package client

import (
	"fmt"
	"net/http"
)

// ContentTypeJSON is the Content-Type every request starts with
const ContentTypeJSON = "application/json; charset=utf-8"

// MergeHeaders applies each layer onto dst in order; later layers replace
// same-named keys. nil layers are skipped.
func MergeHeaders(dst http.Header, layers ...any) error {
	for _, layer := range layers {
		switch h := layer.(type) {
		case nil:
		case http.Header:
			for k, values := range h {
				dst.Del(k)
				for _, v := range values {
					dst.Add(k, v)
				}
			}
		case map[string][]string:
			if err := MergeHeaders(dst, http.Header(h)); err != nil {
				return err
			}
		case map[string]string:
			for k, v := range h {
				dst.Set(k, v)
			}
		case map[string]any:
			for k, v := range h {
				dst.Set(k, fmt.Sprint(v))
			}
		default:
			return fmt.Errorf("%w: %T", ErrUnsupportedHeaders, layer)
		}
	}
	return nil
}
