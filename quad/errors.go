package quad

import (
	"errors"
	"fmt"
)

// Model and codec errors.
var (
	// ErrTruncated is returned when the stream ends inside a value.
	ErrTruncated = errors.New("quad: truncated stream")

	// ErrInvalidMaterial is returned for an unknown material tag.
	ErrInvalidMaterial = errors.New("quad: invalid material")

	// ErrNoPasses is returned for a frame without render passes.
	ErrNoPasses = errors.New("quad: frame has no render passes")

	// ErrTooManyPasses is returned when a frame exceeds Limits.MaxPasses.
	ErrTooManyPasses = errors.New("quad: too many render passes")

	// ErrTooManySharedQuadStates is returned when a pass exceeds
	// Limits.MaxSharedQuadStates.
	ErrTooManySharedQuadStates = errors.New("quad: too many shared quad states")

	// ErrTooManyQuads is returned when a pass exceeds Limits.MaxQuads.
	ErrTooManyQuads = errors.New("quad: too many quads")

	// ErrVisibleOutsideRect is returned when a quad's visible rect is not
	// contained in its rect.
	ErrVisibleOutsideRect = errors.New("quad: visible rect outside quad rect")

	// ErrOpaqueOutsideRect is returned when a non-empty opaque rect is not
	// contained in the quad rect.
	ErrOpaqueOutsideRect = errors.New("quad: opaque rect outside quad rect")

	// ErrMissingSharedQuadState is returned when a quad refers to a shared
	// quad state that does not exist.
	ErrMissingSharedQuadState = errors.New("quad: missing shared quad state")

	// ErrUnknownPass is returned when a render pass quad refers to a pass
	// that is not drawn before it.
	ErrUnknownPass = errors.New("quad: reference to unknown render pass")

	// ErrDuplicatePass is returned when two passes share an id.
	ErrDuplicatePass = errors.New("quad: duplicate render pass id")

	// ErrTooManyResources is returned when a quad uses more than
	// MaxQuadResources resources.
	ErrTooManyResources = errors.New("quad: too many resources")
)

// QuadError locates a validation or decoding failure inside a frame.
// Quad is -1 when the failure concerns the pass itself.
type QuadError struct {
	Pass PassID
	Quad int
	Err  error
}

func (e *QuadError) Error() string {
	if e.Quad < 0 {
		return fmt.Sprintf("render pass %d: %v", e.Pass, e.Err)
	}
	return fmt.Sprintf("render pass %d quad %d: %v", e.Pass, e.Quad, e.Err)
}

func (e *QuadError) Unwrap() error { return e.Err }
