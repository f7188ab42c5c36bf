package compositor

import "errors"

var (
	// ErrNoHALDevice is returned by NewContext when a device provider does
	// not expose usable HAL objects.
	ErrNoHALDevice = errors.New("compositor: provider has no HAL device")

	// ErrClosed is returned by frame operations after Close.
	ErrClosed = errors.New("compositor: context closed")

	// ErrNilFrame is returned by DrawFrame for a nil frame.
	ErrNilFrame = errors.New("compositor: nil frame")
)
