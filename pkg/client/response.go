package client

import "net/http"

// Response is a decoded HTTP response
type Response struct {
	Status int
	OK     bool
	Header http.Header
	// Data is the decoded body: JSON and CBOR bodies decode to maps, slices
	// and scalars, anything else is returned as a string
	Data any
	// Raw is the undecoded body
	Raw []byte
}

// IsOK reports whether status is in the 2xx range
func IsOK(status int) bool {
	return status >= 200 && status <= 299
}
