package client

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedHeaders indicates a header layer of an unknown type
	ErrUnsupportedHeaders = errors.New("unsupported header set")

	// ErrNilTarget indicates a request was built without a target model
	ErrNilTarget = errors.New("request target cannot be nil")
)

// ResponseError is returned for non-OK responses. It carries the full
// decoded response.
type ResponseError struct {
	Response *Response
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.Response.Status)
}

// ErrRateLimited is returned when the server keeps answering 429
type ErrRateLimited struct {
	RetryAfter int // seconds
}

func (e ErrRateLimited) Error() string {
	return fmt.Sprintf("rate limited, retry after %d seconds", e.RetryAfter)
}

// StatusCode extracts the HTTP status from a ResponseError, or 0
func StatusCode(err error) int {
	var respErr *ResponseError
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.Status
	}
	return 0
}
