package quad

import (
	"fmt"

	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/gpucore"
)

// DrawQuad is one drawable rectangle of a render pass.
type DrawQuad struct {
	// Rect is the quad's extent in quad space.
	Rect geometry.Rect

	// OpaqueRect is the part of Rect known to be fully opaque, or empty.
	OpaqueRect geometry.Rect

	// VisibleRect is the part of Rect that is not occluded.
	VisibleRect geometry.Rect

	NeedsBlending bool

	// SharedQuadState indexes the owning pass's SharedQuadStates.
	SharedQuadState int

	Content Content
}

// Material returns the material of the quad's payload.
func (q *DrawQuad) Material() Material {
	if q.Content == nil {
		return MaterialInvalid
	}
	return q.Content.Material()
}

// Resources returns the resources referenced by the payload.
func (q *DrawQuad) Resources() []gpucore.ResourceID {
	if q.Content == nil {
		return nil
	}
	return q.Content.Resources()
}

// ShouldDrawWithBlending reports whether the quad must be blended with what
// is below it given its shared state.
func (q *DrawQuad) ShouldDrawWithBlending(sqs *SharedQuadState) bool {
	return q.NeedsBlending || sqs.Opacity < 1 || !q.OpaqueRect.Contains(q.VisibleRect)
}

// Validate checks the rectangle invariants and resource count of q.
func (q *DrawQuad) Validate() error {
	if !q.Material().IsValid() {
		return ErrInvalidMaterial
	}
	if !q.Rect.Contains(q.VisibleRect) {
		return fmt.Errorf("%w: visible %v, rect %v", ErrVisibleOutsideRect, q.VisibleRect, q.Rect)
	}
	if !q.OpaqueRect.IsEmpty() && !q.Rect.Contains(q.OpaqueRect) {
		return fmt.Errorf("%w: opaque %v, rect %v", ErrOpaqueOutsideRect, q.OpaqueRect, q.Rect)
	}
	if n := len(q.Resources()); n > MaxQuadResources {
		return fmt.Errorf("%w: %d", ErrTooManyResources, n)
	}
	return nil
}

func (q *DrawQuad) String() string {
	return fmt.Sprintf("DrawQuad[%s rect=%v visible=%v sqs=%d]", q.Material(), q.Rect, q.VisibleRect, q.SharedQuadState)
}
