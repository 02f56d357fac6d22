package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/erauner12/restmodel/pkg/formdata"
)

// ContentTypeCBOR selects the CBOR codec for request and response bodies
const ContentTypeCBOR = "application/cbor"

var cborDecMode = mustCBORDecMode()

func mustCBORDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	return mt
}

func isJSON(mt string) bool {
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// encodeBody serializes the request body. GET and DELETE never carry a
// body; their body is already part of the query string. The returned
// content type is non-empty only when the encoding dictates one.
func encodeBody(req *Request) ([]byte, string, error) {
	if req.Body == nil {
		return nil, "", nil
	}
	switch req.Method {
	case http.MethodGet, http.MethodDelete, http.MethodHead:
		return nil, "", nil
	}

	switch b := req.Body.(type) {
	case *formdata.Form:
		r, ct, err := b.Encode()
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode multipart body: %w", err)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, "", err
		}
		return data, ct, nil
	case []byte:
		return b, "", nil
	case string:
		return []byte(b), "", nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read request body: %w", err)
		}
		return data, "", nil
	}

	if mediaType(req.Header.Get("Content-Type")) == ContentTypeCBOR {
		v := req.Body
		if s, ok := v.(snapshotter); ok {
			v = s.Snapshot()
		}
		data, err := cbor.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal cbor body: %w", err)
		}
		return data, "", nil
	}

	data, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal json body: %w", err)
	}
	return data, "", nil
}

// decodeBody decodes raw according to the response Content-Type
func decodeBody(header http.Header, raw []byte) (any, error) {
	mt := mediaType(header.Get("Content-Type"))
	switch {
	case isJSON(mt):
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, nil
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to decode json response: %w", err)
		}
		return v, nil
	case mt == ContentTypeCBOR:
		if len(raw) == 0 {
			return nil, nil
		}
		var v any
		if err := cborDecMode.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to decode cbor response: %w", err)
		}
		return v, nil
	default:
		return string(raw), nil
	}
}
