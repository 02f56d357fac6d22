package validate

import "errors"

var (
	// ErrUnknownValidator indicates a rule references a validator name that is
	// not registered. It is a configuration error, not a validation failure.
	ErrUnknownValidator = errors.New("unknown validator")

	// ErrDuplicateValidator indicates a validator name is already registered
	ErrDuplicateValidator = errors.New("validator already registered")

	// ErrNilValidator indicates a nil validator function was registered
	ErrNilValidator = errors.New("validator cannot be nil")
)
