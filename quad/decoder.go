package quad

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/gpucore"
)

// minQuadBytes is the smallest encoded quad: material, three rects, the
// blending flag and the new-state flag.
const minQuadBytes = 1 + 3*16 + 1 + 1

// Decoder reads frames written by Encoder, enforcing Limits.
//
// Reads past the end of the stream set a sticky ErrTruncated and return
// zero values, so decoding code checks the error once per value group.
type Decoder struct {
	data   []byte
	pos    int
	limits Limits
	err    error
}

// NewDecoder creates a decoder over data.
func NewDecoder(data []byte, limits Limits) *Decoder {
	return &Decoder{data: data, limits: limits}
}

// Position returns the current byte offset.
func (d *Decoder) Position() int { return d.pos }

// HasMore reports whether unread bytes remain.
func (d *Decoder) HasMore() bool { return d.pos < len(d.data) }

// DecodeFrame reads one frame and validates pass references.
func (d *Decoder) DecodeFrame() (*Frame, error) {
	f := &Frame{DeviceScaleFactor: d.f32()}
	n := d.u32()
	if d.err != nil {
		return nil, d.err
	}
	if n == 0 {
		return nil, ErrNoPasses
	}
	if int64(n) > int64(d.limits.MaxPasses) {
		slogger().Warn("quad: rejecting frame", "passes", n, "limit", d.limits.MaxPasses)
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyPasses, n, d.limits.MaxPasses)
	}
	f.Passes = make([]*RenderPass, 0, n)
	for range n {
		p, err := d.DecodeRenderPass()
		if err != nil {
			return nil, err
		}
		f.Passes = append(f.Passes, p)
	}
	if err := f.Validate(d.limits); err != nil {
		slogger().Warn("quad: rejecting frame", "err", err)
		return nil, err
	}
	return f, nil
}

// DecodeRenderPass reads one pass. Quad rectangles are validated as they are
// read; references to other passes are left to Frame.Validate.
func (d *Decoder) DecodeRenderPass() (*RenderPass, error) {
	p := &RenderPass{ID: PassID(d.i32())}
	p.OutputRect = d.rect()
	p.DamageRect = d.rect()
	p.TransformToRoot = d.transform()
	p.HasTransparentBackground = d.bool()
	n := d.u32()
	if d.err != nil {
		return nil, d.err
	}
	if int64(n) > int64(d.limits.MaxQuads) {
		return nil, &QuadError{Pass: p.ID, Quad: -1, Err: ErrTooManyQuads}
	}
	if int64(n)*minQuadBytes > int64(len(d.data)-d.pos) {
		return nil, &QuadError{Pass: p.ID, Quad: -1, Err: ErrTruncated}
	}
	if n > 0 {
		p.Quads = make([]DrawQuad, 0, n)
	}

	for i := range int(n) {
		q, err := d.quad()
		if err != nil {
			return nil, &QuadError{Pass: p.ID, Quad: i, Err: err}
		}
		if d.bool() {
			if len(p.SharedQuadStates) >= d.limits.MaxSharedQuadStates {
				return nil, &QuadError{Pass: p.ID, Quad: i, Err: ErrTooManySharedQuadStates}
			}
			p.SharedQuadStates = append(p.SharedQuadStates, d.sharedQuadState())
		}
		if d.err != nil {
			return nil, &QuadError{Pass: p.ID, Quad: i, Err: d.err}
		}
		if len(p.SharedQuadStates) == 0 {
			return nil, &QuadError{Pass: p.ID, Quad: i, Err: ErrMissingSharedQuadState}
		}
		q.SharedQuadState = len(p.SharedQuadStates) - 1
		if err := q.Validate(); err != nil {
			slogger().Warn("quad: invalid quad", "pass", p.ID, "quad", i, "err", err)
			return nil, &QuadError{Pass: p.ID, Quad: i, Err: err}
		}
		p.Quads = append(p.Quads, q)
	}
	return p, nil
}

func (d *Decoder) quad() (DrawQuad, error) {
	m := Material(d.u8())
	q := DrawQuad{
		Rect:          d.rect(),
		OpaqueRect:    d.rect(),
		VisibleRect:   d.rect(),
		NeedsBlending: d.bool(),
	}
	if d.err != nil {
		return q, d.err
	}
	switch m {
	case MaterialCheckerboard:
		q.Content = CheckerboardContent{Color: Color(d.u32()), Scale: d.f32()}
	case MaterialDebugBorder:
		q.Content = DebugBorderContent{Color: Color(d.u32()), Width: d.i32()}
	case MaterialIOSurfaceContent:
		q.Content = IOSurfaceContent{
			Size:        d.size(),
			ResourceID:  d.resource(),
			Orientation: IOSurfaceOrientation(d.u8()),
		}
	case MaterialRenderPass:
		c := RenderPassContent{
			PassID:          PassID(d.i32()),
			MaskResourceID:  d.resource(),
			MaskUVScale:     d.pointF(),
			MaskTextureSize: d.size(),
		}
		n := d.u32()
		if int64(n)*5 > int64(len(d.data)-d.pos) {
			return q, ErrTruncated
		}
		for range n {
			c.Filters = append(c.Filters, FilterOperation{Kind: FilterKind(d.u8()), Amount: d.f32()})
		}
		q.Content = c
	case MaterialSolidColor:
		q.Content = SolidColorContent{Color: Color(d.u32()), ForceAntiAliasingOff: d.bool()}
	case MaterialStreamVideo:
		q.Content = StreamVideoContent{
			ResourceID:   d.resource(),
			ResourceSize: d.size(),
			AllowOverlay: d.bool(),
			Matrix:       d.transform(),
		}
	case MaterialSurface:
		q.Content = SurfaceContent{SurfaceID: d.u64()}
	case MaterialTexture:
		c := TextureContent{
			ResourceID:         d.resource(),
			ResourceSize:       d.size(),
			AllowOverlay:       d.bool(),
			PremultipliedAlpha: d.bool(),
			UVTopLeft:          d.pointF(),
			UVBottomRight:      d.pointF(),
			BackgroundColor:    Color(d.u32()),
		}
		for i := range c.VertexOpacity {
			c.VertexOpacity[i] = d.f32()
		}
		c.YFlipped = d.bool()
		c.NearestNeighbor = d.bool()
		q.Content = c
	case MaterialTile:
		q.Content = TileContent{
			ResourceID:      d.resource(),
			TexCoordRect:    d.rectF(),
			TextureSize:     d.size(),
			SwizzleContents: d.bool(),
			NearestNeighbor: d.bool(),
		}
	case MaterialYUVVideo:
		q.Content = YUVVideoContent{
			YPlane:         d.resource(),
			UPlane:         d.resource(),
			VPlane:         d.resource(),
			APlane:         d.resource(),
			YATexCoordRect: d.rectF(),
			UVTexCoordRect: d.rectF(),
			YATexSize:      d.size(),
			UVTexSize:      d.size(),
			ColorSpace:     YUVColorSpace(d.u8()),
		}
	default:
		return q, fmt.Errorf("%w: tag %d", ErrInvalidMaterial, m)
	}
	return q, d.err
}

func (d *Decoder) sharedQuadState() SharedQuadState {
	return SharedQuadState{
		QuadToTargetTransform: d.transform(),
		LayerBounds:           d.size(),
		VisibleLayerRect:      d.rect(),
		ClipRect:              d.rect(),
		IsClipped:             d.bool(),
		Opacity:               d.f32(),
		BlendMode:             BlendMode(d.u32()),
		SortingContextID:      d.i32(),
	}
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.data)-d.pos < n {
		d.err = ErrTruncated
		return nil
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b
}

func (d *Decoder) u8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *Decoder) u32() uint32 {
	if b := d.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *Decoder) u64() uint64 {
	if b := d.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (d *Decoder) i32() int32   { return int32(d.u32()) }
func (d *Decoder) f32() float32 { return math.Float32frombits(d.u32()) }
func (d *Decoder) bool() bool   { return d.u8() != 0 }
func (d *Decoder) resource() gpucore.ResourceID {
	return gpucore.ResourceID(d.u64())
}

func (d *Decoder) rect() geometry.Rect {
	return geometry.Rect{X: int(d.i32()), Y: int(d.i32()), Width: int(d.i32()), Height: int(d.i32())}
}

func (d *Decoder) rectF() geometry.RectF {
	return geometry.RectF{X: d.f32(), Y: d.f32(), Width: d.f32(), Height: d.f32()}
}

func (d *Decoder) size() geometry.Size {
	return geometry.Size{Width: int(d.i32()), Height: int(d.i32())}
}

func (d *Decoder) pointF() geometry.PointF {
	return geometry.PointF{X: d.f32(), Y: d.f32()}
}

func (d *Decoder) transform() geometry.Transform {
	return geometry.Transform{
		A: d.f32(), B: d.f32(), C: d.f32(),
		D: d.f32(), E: d.f32(), F: d.f32(),
		G: d.f32(), H: d.f32(), I: d.f32(),
	}
}

// UnmarshalFrame decodes a frame from data, rejecting trailing bytes.
func UnmarshalFrame(data []byte, limits Limits) (*Frame, error) {
	d := NewDecoder(data, limits)
	f, err := d.DecodeFrame()
	if err != nil {
		return nil, err
	}
	if d.HasMore() {
		return nil, fmt.Errorf("quad: %d trailing bytes", len(data)-d.Position())
	}
	return f, nil
}
