package overlay

import (
	"fmt"

	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/gpucore"
	"github.com/gogpu/compositor/quad"
)

// Candidate is a quad proposed for presentation on a display plane.
type Candidate struct {
	// Pass is the render pass the quad came from.
	Pass quad.PassID

	// DisplayRect is the quad's rectangle in target space.
	DisplayRect geometry.RectF

	// UVRect is the part of the resource shown, in normalized coordinates.
	UVRect geometry.RectF

	Transform Transform

	// ZOrder is the plane position relative to the primary plane (0):
	// negative planes are underlays.
	ZOrder int

	ResourceID   gpucore.ResourceID
	ResourceSize geometry.Size
	Format       gpucore.Format

	IsClipped bool
	ClipRect  geometry.Rect

	// OverlayHandled is set by the Validator when the plane can be shown.
	OverlayHandled bool
}

func (c Candidate) String() string {
	return fmt.Sprintf("Candidate{pass=%d z=%d res=%d rect=%v uv=%v %v handled=%v}",
		c.Pass, c.ZOrder, c.ResourceID, c.DisplayRect, c.UVRect, c.Transform, c.OverlayHandled)
}

// Reason explains why a quad is not an overlay candidate.
type Reason uint8

// Rejection reasons.
const (
	Accepted Reason = iota
	RejectMaterial
	RejectPremultiplied
	RejectBlending
	RejectBackground
	RejectOpacity
	RejectBlendMode
	RejectTransform
	RejectClipped
	RejectNotAllowed
	RejectOccluded
	RejectSortingContext
)

var reasonNames = [...]string{
	Accepted:             "Accepted",
	RejectMaterial:       "Material",
	RejectPremultiplied:  "PremultipliedAlpha",
	RejectBlending:       "Blending",
	RejectBackground:     "BackgroundColor",
	RejectOpacity:        "Opacity",
	RejectBlendMode:      "BlendMode",
	RejectTransform:      "UnsupportedTransform",
	RejectClipped:        "Clipped",
	RejectNotAllowed:     "NotAllowed",
	RejectOccluded:       "Occluded",
	RejectSortingContext: "SortingContext",
}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("Reason(%d)", r)
}

// ResourceSource answers resource questions for the selector.
// *resource.Registry implements it.
type ResourceSource interface {
	// AllowOverlay reports whether the resource may be scanned out.
	AllowOverlay(id gpucore.ResourceID) bool

	// SetInUseByConsumer records whether a display plane still reads the
	// resource.
	SetInUseByConsumer(id gpucore.ResourceID, inUse bool) error

	// Format returns the pixel format of the resource.
	Format(id gpucore.ResourceID) (gpucore.Format, bool)
}

// FromDrawQuad builds a candidate for quad i of pass. resources may be nil,
// in which case only the quad's own overlay flag is consulted and the
// plane is assumed to be RGBA8888.
func FromDrawQuad(pass *quad.RenderPass, i int, resources ResourceSource) (Candidate, Reason) {
	q := &pass.Quads[i]
	sqs := pass.SharedQuadStateOf(i)
	if sqs == nil {
		return Candidate{}, RejectMaterial
	}
	if q.NeedsBlending {
		return Candidate{}, RejectBlending
	}
	if sqs.Opacity != 1 {
		return Candidate{}, RejectOpacity
	}
	if sqs.BlendMode != quad.BlendNormal {
		return Candidate{}, RejectBlendMode
	}
	// Quads in a 3D sorting context are ordered by depth, not by position
	// in the pass.
	if sqs.SortingContextID != 0 {
		return Candidate{}, RejectSortingContext
	}

	var (
		c      Candidate
		reason Reason
	)
	switch content := q.Content.(type) {
	case quad.TextureContent:
		c, reason = fromTexture(content, sqs)
	case quad.StreamVideoContent:
		c, reason = fromStreamVideo(content, sqs)
	case quad.CheckerboardContent, quad.DebugBorderContent, quad.IOSurfaceContent,
		quad.RenderPassContent, quad.SolidColorContent, quad.SurfaceContent,
		quad.TileContent, quad.YUVVideoContent:
		return Candidate{}, RejectMaterial
	default:
		return Candidate{}, RejectMaterial
	}
	if reason != Accepted {
		return Candidate{}, reason
	}
	c.Format = gpucore.FormatRGBA8888
	if resources != nil {
		if !resources.AllowOverlay(c.ResourceID) {
			return Candidate{}, RejectNotAllowed
		}
		format, ok := resources.Format(c.ResourceID)
		if !ok {
			return Candidate{}, RejectNotAllowed
		}
		c.Format = format
	}

	c.Pass = pass.ID
	c.DisplayRect = sqs.QuadToTargetTransform.MapRect(q.Rect.ToRectF())
	c.IsClipped = sqs.IsClipped
	c.ClipRect = sqs.ClipRect
	if c.IsClipped && !c.ClipRect.Contains(c.DisplayRect.ToEnclosingRect()) {
		return Candidate{}, RejectClipped
	}
	return c, Accepted
}

func fromTexture(t quad.TextureContent, sqs *quad.SharedQuadState) (Candidate, Reason) {
	if !t.AllowOverlay {
		return Candidate{}, RejectNotAllowed
	}
	if t.PremultipliedAlpha {
		return Candidate{}, RejectPremultiplied
	}
	if t.BackgroundColor != quad.ColorTransparent {
		return Candidate{}, RejectBackground
	}
	tr := TransformFor(sqs.QuadToTargetTransform, t.YFlipped)
	if tr == TransformInvalid {
		return Candidate{}, RejectTransform
	}
	return Candidate{
		ResourceID:   t.ResourceID,
		ResourceSize: t.ResourceSize,
		Transform:    tr,
		UVRect:       geometry.BoundingRectF(t.UVTopLeft, t.UVBottomRight),
	}, Accepted
}

// fromStreamVideo folds mirrors in the texture matrix into the plane
// transform. A matrix that swaps the texture axes cannot be expressed.
func fromStreamVideo(v quad.StreamVideoContent, sqs *quad.SharedQuadState) (Candidate, Reason) {
	if !v.AllowOverlay {
		return Candidate{}, RejectNotAllowed
	}
	tr := TransformFor(sqs.QuadToTargetTransform, false)
	if tr == TransformInvalid || !v.Matrix.IsScaleOrTranslation() {
		return Candidate{}, RejectTransform
	}

	uv0 := v.Matrix.MapPoint(geometry.PointF{})
	uv1 := v.Matrix.MapPoint(geometry.PointF{X: 1, Y: 1})
	if uv1.X < uv0.X {
		tr = Compose(tr, TransformFlipHorizontal)
		uv0.X, uv1.X = uv1.X, uv0.X
	}
	if uv1.Y < uv0.Y {
		tr = Compose(tr, TransformFlipVertical)
		uv0.Y, uv1.Y = uv1.Y, uv0.Y
	}
	if tr == TransformInvalid {
		return Candidate{}, RejectTransform
	}
	return Candidate{
		ResourceID:   v.ResourceID,
		ResourceSize: v.ResourceSize,
		Transform:    tr,
		UVRect:       geometry.BoundingRectF(uv0, uv1),
	}, Accepted
}

// isInvisible reports whether quad i contributes nothing to the output:
// a blended solid color whose effective alpha is zero.
func isInvisible(pass *quad.RenderPass, i int) bool {
	sc, ok := pass.Quads[i].Content.(quad.SolidColorContent)
	if !ok {
		return false
	}
	sqs := pass.SharedQuadStateOf(i)
	if sqs == nil {
		return false
	}
	alpha := float32(sc.Color.Alpha()) / 255 * sqs.Opacity
	return pass.Quads[i].ShouldDrawWithBlending(sqs) && alpha < epsilon
}

// epsilon is the float32 machine epsilon.
const epsilon = 1.1920929e-07

// isOccluded reports whether a visible quad above quad i overlaps rect.
func isOccluded(pass *quad.RenderPass, i int, rect geometry.RectF) bool {
	for j := i + 1; j < len(pass.Quads); j++ {
		sqs := pass.SharedQuadStateOf(j)
		if sqs == nil {
			continue
		}
		r := sqs.QuadToTargetTransform.MapRect(pass.Quads[j].Rect.ToRectF())
		if r.Intersects(rect) && !isInvisible(pass, j) {
			return true
		}
	}
	return false
}
