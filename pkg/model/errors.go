package model

import "errors"

var (
	// ErrInvalidPayload indicates response data that cannot be applied to a
	// model, e.g. a list endpoint answering with a scalar
	ErrInvalidPayload = errors.New("invalid response payload")

	// ErrInvalidJSON indicates a ParseEntity input that is not a JSON object
	ErrInvalidJSON = errors.New("entity source is not a JSON object")
)
