package quad

import (
	"fmt"
	"slices"

	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/gpucore"
)

// MaxQuadResources is the largest number of resources a single quad uses.
const MaxQuadResources = 4

// Content is the material-specific payload of a DrawQuad. The set of
// implementations is closed; see the package documentation.
type Content interface {
	// Material returns the material tag of the payload.
	Material() Material

	// Resources returns the registry resources the payload samples from,
	// at most MaxQuadResources of them.
	Resources() []gpucore.ResourceID

	isContent()
}

// CheckerboardContent paints a checkerboard pattern for missing content.
type CheckerboardContent struct {
	Color Color
	Scale float32
}

// DebugBorderContent outlines the quad rectangle.
type DebugBorderContent struct {
	Color Color
	Width int32
}

// IOSurfaceOrientation is the row order of an IOSurface.
type IOSurfaceOrientation uint8

// IOSurface orientations.
const (
	IOSurfaceFlipped IOSurfaceOrientation = iota
	IOSurfaceUnflipped
)

// IOSurfaceContent draws a platform IOSurface.
type IOSurfaceContent struct {
	Size        geometry.Size
	ResourceID  gpucore.ResourceID
	Orientation IOSurfaceOrientation
}

// FilterKind identifies a render pass filter operation.
type FilterKind uint8

// Filter kinds.
const (
	FilterGrayscale FilterKind = iota
	FilterSepia
	FilterSaturate
	FilterHueRotate
	FilterInvert
	FilterBrightness
	FilterContrast
	FilterOpacity
	FilterBlur
	FilterZoom
)

// FilterOperation is one entry of a filter chain.
type FilterOperation struct {
	Kind   FilterKind
	Amount float32
}

// RenderPassContent draws the output of an earlier render pass.
type RenderPassContent struct {
	PassID          PassID
	MaskResourceID  gpucore.ResourceID
	MaskUVScale     geometry.PointF
	MaskTextureSize geometry.Size
	Filters         []FilterOperation
}

// SolidColorContent fills the quad with a color.
type SolidColorContent struct {
	Color                Color
	ForceAntiAliasingOff bool
}

// StreamVideoContent draws an external video texture sampled through
// Matrix, a texture-coordinate transform.
type StreamVideoContent struct {
	ResourceID   gpucore.ResourceID
	ResourceSize geometry.Size
	AllowOverlay bool
	Matrix       geometry.Transform
}

// SurfaceContent embeds another compositor's surface.
type SurfaceContent struct {
	SurfaceID uint64
}

// TextureContent draws a texture resource.
type TextureContent struct {
	ResourceID         gpucore.ResourceID
	ResourceSize       geometry.Size
	AllowOverlay       bool
	PremultipliedAlpha bool
	UVTopLeft          geometry.PointF
	UVBottomRight      geometry.PointF
	BackgroundColor    Color
	VertexOpacity      [4]float32
	YFlipped           bool
	NearestNeighbor    bool
}

// TileContent draws one tile of a tiled layer.
type TileContent struct {
	ResourceID      gpucore.ResourceID
	TexCoordRect    geometry.RectF
	TextureSize     geometry.Size
	SwizzleContents bool
	NearestNeighbor bool
}

// YUVColorSpace selects the YUV to RGB conversion matrix.
type YUVColorSpace uint8

// YUV color spaces.
const (
	ColorSpaceREC601 YUVColorSpace = iota
	ColorSpaceREC709
	ColorSpaceJPEG
)

// YUVVideoContent draws planar video from three or four plane resources.
type YUVVideoContent struct {
	YPlane, UPlane, VPlane, APlane gpucore.ResourceID
	YATexCoordRect                 geometry.RectF
	UVTexCoordRect                 geometry.RectF
	YATexSize                      geometry.Size
	UVTexSize                      geometry.Size
	ColorSpace                     YUVColorSpace
}

func (CheckerboardContent) Material() Material { return MaterialCheckerboard }
func (DebugBorderContent) Material() Material  { return MaterialDebugBorder }
func (IOSurfaceContent) Material() Material    { return MaterialIOSurfaceContent }
func (RenderPassContent) Material() Material   { return MaterialRenderPass }
func (SolidColorContent) Material() Material   { return MaterialSolidColor }
func (StreamVideoContent) Material() Material  { return MaterialStreamVideo }
func (SurfaceContent) Material() Material      { return MaterialSurface }
func (TextureContent) Material() Material      { return MaterialTexture }
func (TileContent) Material() Material         { return MaterialTile }
func (YUVVideoContent) Material() Material     { return MaterialYUVVideo }

func (CheckerboardContent) Resources() []gpucore.ResourceID { return nil }
func (DebugBorderContent) Resources() []gpucore.ResourceID  { return nil }
func (SolidColorContent) Resources() []gpucore.ResourceID   { return nil }
func (SurfaceContent) Resources() []gpucore.ResourceID      { return nil }

func (c IOSurfaceContent) Resources() []gpucore.ResourceID {
	return []gpucore.ResourceID{c.ResourceID}
}

func (c RenderPassContent) Resources() []gpucore.ResourceID {
	if !c.MaskResourceID.IsValid() {
		return nil
	}
	return []gpucore.ResourceID{c.MaskResourceID}
}

func (c StreamVideoContent) Resources() []gpucore.ResourceID {
	return []gpucore.ResourceID{c.ResourceID}
}

func (c TextureContent) Resources() []gpucore.ResourceID {
	return []gpucore.ResourceID{c.ResourceID}
}

func (c TileContent) Resources() []gpucore.ResourceID {
	return []gpucore.ResourceID{c.ResourceID}
}

func (c YUVVideoContent) Resources() []gpucore.ResourceID {
	ids := []gpucore.ResourceID{c.YPlane, c.UPlane, c.VPlane}
	if c.APlane.IsValid() {
		ids = append(ids, c.APlane)
	}
	return ids
}

func (CheckerboardContent) isContent() {}
func (DebugBorderContent) isContent()  {}
func (IOSurfaceContent) isContent()    {}
func (RenderPassContent) isContent()   {}
func (SolidColorContent) isContent()   {}
func (StreamVideoContent) isContent()  {}
func (SurfaceContent) isContent()      {}
func (TextureContent) isContent()      {}
func (TileContent) isContent()         {}
func (YUVVideoContent) isContent()     {}

// cloneContent returns a copy of c that shares no memory with it.
func cloneContent(c Content) Content {
	switch v := c.(type) {
	case RenderPassContent:
		v.Filters = slices.Clone(v.Filters)
		return v
	case CheckerboardContent, DebugBorderContent, IOSurfaceContent, SolidColorContent,
		StreamVideoContent, SurfaceContent, TextureContent, TileContent, YUVVideoContent:
		return v
	case nil:
		return nil
	default:
		panic(fmt.Sprintf("quad: unknown content type %T", c))
	}
}

// contentEqual compares two payloads by value.
func contentEqual(a, b Content) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Material() != b.Material() {
		return false
	}
	if ra, ok := a.(RenderPassContent); ok {
		rb := b.(RenderPassContent)
		return ra.PassID == rb.PassID &&
			ra.MaskResourceID == rb.MaskResourceID &&
			ra.MaskUVScale == rb.MaskUVScale &&
			ra.MaskTextureSize == rb.MaskTextureSize &&
			slices.Equal(ra.Filters, rb.Filters)
	}
	return a == b
}
