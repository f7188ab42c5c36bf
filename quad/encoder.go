package quad

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/compositor/geometry"
)

// Stream layout (all integers little-endian):
//
//	frame:  f32 device scale | u32 pass count | pass...
//	pass:   i32 id | rect output | rect damage | transform | u8 transparent |
//	        u32 quad count | quad...
//	quad:   u8 material | rect | rect opaque | rect visible | u8 blending |
//	        payload | u8 new state | [shared quad state]
//	rect:   4 x i32 (x, y, w, h)
//	transform: 9 x f32, row-major
//
// The first quad of a pass always carries a new shared quad state.

// Encoder serializes frames into a byte stream.
// The zero value is ready to use.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an encoder with capacity preallocated for size bytes.
func NewEncoder(size int) *Encoder {
	return &Encoder{buf: make([]byte, 0, size)}
}

// Reset discards the encoded bytes, keeping the buffer.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

// Bytes returns the encoded stream. The slice is valid until the next call
// to Reset or an Encode method.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of encoded bytes.
func (e *Encoder) Len() int { return len(e.buf) }

// EncodeFrame appends f to the stream.
func (e *Encoder) EncodeFrame(f *Frame) error {
	e.putF32(f.DeviceScaleFactor)
	e.putU32(uint32(len(f.Passes)))
	for _, p := range f.Passes {
		if err := e.EncodeRenderPass(p); err != nil {
			return err
		}
	}
	return nil
}

// EncodeRenderPass appends p to the stream. Every quad must refer to an
// existing shared quad state.
func (e *Encoder) EncodeRenderPass(p *RenderPass) error {
	e.putI32(int32(p.ID))
	e.putRect(p.OutputRect)
	e.putRect(p.DamageRect)
	e.putTransform(p.TransformToRoot)
	e.putBool(p.HasTransparentBackground)
	e.putU32(uint32(len(p.Quads)))

	last := -1
	for i := range p.Quads {
		q := &p.Quads[i]
		sqs := p.SharedQuadStateOf(i)
		if sqs == nil {
			return &QuadError{Pass: p.ID, Quad: i, Err: ErrMissingSharedQuadState}
		}
		if err := e.putQuad(q); err != nil {
			return &QuadError{Pass: p.ID, Quad: i, Err: err}
		}
		if q.SharedQuadState != last {
			e.putBool(true)
			e.putSharedQuadState(sqs)
			last = q.SharedQuadState
		} else {
			e.putBool(false)
		}
	}
	return nil
}

func (e *Encoder) putQuad(q *DrawQuad) error {
	m := q.Material()
	if !m.IsValid() {
		return ErrInvalidMaterial
	}
	e.buf = append(e.buf, byte(m))
	e.putRect(q.Rect)
	e.putRect(q.OpaqueRect)
	e.putRect(q.VisibleRect)
	e.putBool(q.NeedsBlending)

	switch c := q.Content.(type) {
	case CheckerboardContent:
		e.putU32(uint32(c.Color))
		e.putF32(c.Scale)
	case DebugBorderContent:
		e.putU32(uint32(c.Color))
		e.putI32(c.Width)
	case IOSurfaceContent:
		e.putSize(c.Size)
		e.putU64(uint64(c.ResourceID))
		e.buf = append(e.buf, byte(c.Orientation))
	case RenderPassContent:
		e.putI32(int32(c.PassID))
		e.putU64(uint64(c.MaskResourceID))
		e.putPointF(c.MaskUVScale)
		e.putSize(c.MaskTextureSize)
		e.putU32(uint32(len(c.Filters)))
		for _, f := range c.Filters {
			e.buf = append(e.buf, byte(f.Kind))
			e.putF32(f.Amount)
		}
	case SolidColorContent:
		e.putU32(uint32(c.Color))
		e.putBool(c.ForceAntiAliasingOff)
	case StreamVideoContent:
		e.putU64(uint64(c.ResourceID))
		e.putSize(c.ResourceSize)
		e.putBool(c.AllowOverlay)
		e.putTransform(c.Matrix)
	case SurfaceContent:
		e.putU64(c.SurfaceID)
	case TextureContent:
		e.putU64(uint64(c.ResourceID))
		e.putSize(c.ResourceSize)
		e.putBool(c.AllowOverlay)
		e.putBool(c.PremultipliedAlpha)
		e.putPointF(c.UVTopLeft)
		e.putPointF(c.UVBottomRight)
		e.putU32(uint32(c.BackgroundColor))
		for _, o := range c.VertexOpacity {
			e.putF32(o)
		}
		e.putBool(c.YFlipped)
		e.putBool(c.NearestNeighbor)
	case TileContent:
		e.putU64(uint64(c.ResourceID))
		e.putRectF(c.TexCoordRect)
		e.putSize(c.TextureSize)
		e.putBool(c.SwizzleContents)
		e.putBool(c.NearestNeighbor)
	case YUVVideoContent:
		e.putU64(uint64(c.YPlane))
		e.putU64(uint64(c.UPlane))
		e.putU64(uint64(c.VPlane))
		e.putU64(uint64(c.APlane))
		e.putRectF(c.YATexCoordRect)
		e.putRectF(c.UVTexCoordRect)
		e.putSize(c.YATexSize)
		e.putSize(c.UVTexSize)
		e.buf = append(e.buf, byte(c.ColorSpace))
	default:
		panic(fmt.Sprintf("quad: unknown content type %T", q.Content))
	}
	return nil
}

func (e *Encoder) putSharedQuadState(s *SharedQuadState) {
	e.putTransform(s.QuadToTargetTransform)
	e.putSize(s.LayerBounds)
	e.putRect(s.VisibleLayerRect)
	e.putRect(s.ClipRect)
	e.putBool(s.IsClipped)
	e.putF32(s.Opacity)
	e.putU32(uint32(s.BlendMode))
	e.putI32(s.SortingContextID)
}

func (e *Encoder) putU32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *Encoder) putU64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }
func (e *Encoder) putI32(v int32)  { e.putU32(uint32(v)) }
func (e *Encoder) putF32(v float32) {
	e.putU32(math.Float32bits(v))
}

func (e *Encoder) putBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

func (e *Encoder) putRect(r geometry.Rect) {
	e.putI32(int32(r.X))
	e.putI32(int32(r.Y))
	e.putI32(int32(r.Width))
	e.putI32(int32(r.Height))
}

func (e *Encoder) putRectF(r geometry.RectF) {
	e.putF32(r.X)
	e.putF32(r.Y)
	e.putF32(r.Width)
	e.putF32(r.Height)
}

func (e *Encoder) putSize(s geometry.Size) {
	e.putI32(int32(s.Width))
	e.putI32(int32(s.Height))
}

func (e *Encoder) putPointF(p geometry.PointF) {
	e.putF32(p.X)
	e.putF32(p.Y)
}

func (e *Encoder) putTransform(t geometry.Transform) {
	for _, v := range [9]float32{t.A, t.B, t.C, t.D, t.E, t.F, t.G, t.H, t.I} {
		e.putF32(v)
	}
}

// MarshalFrame encodes f into a new byte slice.
func MarshalFrame(f *Frame) ([]byte, error) {
	var e Encoder
	if err := e.EncodeFrame(f); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}
