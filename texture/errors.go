package texture

import "errors"

// Errors returned by Manager operations. They mirror the GLES2 error codes a
// decoder reports to its client.
var (
	// ErrInvalidEnum is returned for an unknown target, parameter or value.
	ErrInvalidEnum = errors.New("texture: invalid enum")

	// ErrInvalidValue is returned for out-of-range sizes, levels or
	// parameter values.
	ErrInvalidValue = errors.New("texture: invalid value")

	// ErrInvalidOperation is returned when the call is not allowed in the
	// texture's current state.
	ErrInvalidOperation = errors.New("texture: invalid operation")

	// ErrInvalidCombination is returned when (internal format, format,
	// type) is not in the format compatibility table.
	ErrInvalidCombination = errors.New("texture: invalid format combination")
)
