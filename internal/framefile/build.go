package framefile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/gpucore"
	"github.com/gogpu/compositor/quad"
	"github.com/gogpu/compositor/resource"
	"github.com/gogpu/compositor/video"
)

// Scene is a description realized on a compositor context.
type Scene struct {
	Frame     *quad.Frame
	Resources map[string]gpucore.ResourceID
	Videos    map[string]video.ExternalResources

	sizes map[string]geometry.Size
}

// Release returns the video resources of the scene to their updater once
// token has passed.
func (s *Scene) Release(token gpucore.SyncToken) {
	for _, ext := range s.Videos {
		for _, cb := range ext.ReleaseCallbacks {
			cb(token, false)
		}
		if ext.SoftwareRelease != nil {
			ext.SoftwareRelease(token, false)
		}
	}
	s.Videos = nil
}

// Build allocates the resources and video frames of d on c and assembles
// the frame. The frame is not validated; DrawFrame does that.
func (d *Description) Build(c *compositor.Context) (*Scene, error) {
	s := &Scene{
		Frame:     &quad.Frame{DeviceScaleFactor: d.DeviceScaleFactor},
		Resources: make(map[string]gpucore.ResourceID),
		Videos:    make(map[string]video.ExternalResources),
		sizes:     make(map[string]geometry.Size),
	}
	for _, r := range d.Resources {
		if err := s.addResource(c, r); err != nil {
			s.Release(gpucore.NoSyncToken)
			return nil, err
		}
	}
	for _, v := range d.Videos {
		if err := s.addVideo(c, v); err != nil {
			s.Release(gpucore.NoSyncToken)
			return nil, err
		}
	}
	for i := range d.Passes {
		p, err := s.buildPass(&d.Passes[i])
		if err != nil {
			s.Release(gpucore.NoSyncToken)
			return nil, fmt.Errorf("pass %d: %w", d.Passes[i].ID, err)
		}
		s.Frame.Passes = append(s.Frame.Passes, p)
	}
	return s, nil
}

func (s *Scene) claim(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty resource name", ErrBadValue)
	}
	if _, dup := s.Resources[name]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	return nil
}

func (s *Scene) addResource(c *compositor.Context, r Resource) error {
	if err := s.claim(r.Name); err != nil {
		return err
	}
	size, err := sizeOf(r.Size)
	if err != nil {
		return fmt.Errorf("resource %q: %w", r.Name, err)
	}
	format := gpucore.FormatRGBA8888
	if r.Format != "" {
		if format, err = parseFormat(r.Format); err != nil {
			return fmt.Errorf("resource %q: %w", r.Name, err)
		}
	}
	hint := resource.HintDefault
	if r.Overlay {
		hint |= resource.HintOverlay
	}
	id, err := c.Registry().Allocate(size, format, hint)
	if err != nil {
		return fmt.Errorf("resource %q: %w", r.Name, err)
	}
	s.Resources[r.Name] = id
	s.sizes[r.Name] = size

	if r.Fill == "" {
		return nil
	}
	if format != gpucore.FormatRGBA8888 {
		return fmt.Errorf("resource %q: %w: fill needs %v", r.Name, ErrBadValue, gpucore.FormatRGBA8888)
	}
	col, err := parseColor(r.Fill)
	if err != nil {
		return fmt.Errorf("resource %q: %w", r.Name, err)
	}
	v := uint32(col)
	px := [4]byte{byte(v >> 16), byte(v >> 8), byte(v), byte(v >> 24)}
	pix := make([]byte, size.Area()*4)
	for i := 0; i < len(pix); i += 4 {
		copy(pix[i:i+4], px[:])
	}
	if err := c.Registry().CopyInto(id, pix, size.Width*4, geometry.RectFromSize(size)); err != nil {
		return fmt.Errorf("resource %q: %w", r.Name, err)
	}
	return nil
}

func (s *Scene) addVideo(c *compositor.Context, v Video) error {
	if err := s.claim(v.Name); err != nil {
		return err
	}
	format, err := parseVideoFormat(v.Format)
	if err != nil {
		return fmt.Errorf("video %q: %w", v.Name, err)
	}
	size, err := sizeOf(v.Size)
	if err != nil {
		return fmt.Errorf("video %q: %w", v.Name, err)
	}
	yuv := [3]byte{16, 128, 128}
	if v.YUV != nil {
		if len(v.YUV) != 3 {
			return fmt.Errorf("video %q: %w: yuv needs 3 values", v.Name, ErrBadValue)
		}
		for i, val := range v.YUV {
			if val < 0 || val > 255 {
				return fmt.Errorf("video %q: %w: yuv value %d", v.Name, ErrBadValue, val)
			}
			yuv[i] = byte(val)
		}
	}

	f := video.NewFrame(format, size, time.Duration(v.Timestamp)*time.Millisecond)
	f.AllowOverlay = v.Overlay
	fillPlanes(f, yuv)

	ext := c.Video().Convert(f)
	var id gpucore.ResourceID
	switch {
	case len(ext.SoftwareResources) > 0:
		id = ext.SoftwareResources[0]
	case len(ext.Resources) > 0:
		id = ext.Resources[0]
	default:
		return fmt.Errorf("video %q: %w (%v %v)", v.Name, ErrVideoFailed, format, size)
	}
	s.Resources[v.Name] = id
	s.sizes[v.Name] = size
	s.Videos[v.Name] = ext
	return nil
}

func fillPlanes(f *video.Frame, yuv [3]byte) {
	for plane, data := range f.Data {
		var b byte
		switch {
		case plane == video.PlaneY:
			b = yuv[0]
		case f.Format == video.FormatNV12:
			for i := range data {
				data[i] = yuv[1+i%2]
			}
			continue
		case plane == video.PlaneU:
			b = yuv[1]
		case plane == video.PlaneV:
			b = yuv[2]
		default:
			b = 0xff
		}
		for i := range data {
			data[i] = b
		}
	}
}

func (s *Scene) buildPass(in *Pass) (*quad.RenderPass, error) {
	output, err := rectOf(in.Output)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	damage := output
	if in.Damage != nil {
		if damage, err = rectOf(in.Damage); err != nil {
			return nil, fmt.Errorf("damage: %w", err)
		}
	}
	p := quad.NewRenderPass(quad.PassID(in.ID), output, damage)
	p.HasTransparentBackground = in.TransparentBackground

	states := in.States
	if len(states) == 0 {
		states = []State{{}}
	}
	for i, st := range states {
		sqs, err := buildState(st, output.Size())
		if err != nil {
			return nil, fmt.Errorf("state %d: %w", i, err)
		}
		p.AppendSharedQuadState(sqs)
	}
	for i := range in.Quads {
		q, err := s.buildQuad(&in.Quads[i])
		if err != nil {
			return nil, fmt.Errorf("quad %d: %w", i, err)
		}
		p.AppendQuad(q)
	}
	return p, nil
}

func buildState(in State, defaultBounds geometry.Size) (quad.SharedQuadState, error) {
	bounds := defaultBounds
	if in.Bounds != nil {
		var err error
		if bounds, err = sizeOf(in.Bounds); err != nil {
			return quad.SharedQuadState{}, fmt.Errorf("bounds: %w", err)
		}
	}
	s := quad.DefaultSharedQuadState(bounds)
	if in.Transform != nil {
		if len(in.Transform) != 6 {
			return s, fmt.Errorf("%w: transform needs 6 values", ErrBadValue)
		}
		t := in.Transform
		s.QuadToTargetTransform = geometry.Affine(t[0], t[1], t[2], t[3], t[4], t[5])
	}
	if in.Opacity != nil {
		if *in.Opacity < 0 || *in.Opacity > 1 {
			return s, fmt.Errorf("%w: opacity %g", ErrBadValue, *in.Opacity)
		}
		s.Opacity = *in.Opacity
	}
	if in.BlendMode != "" {
		mode, ok := quad.ParseBlendMode(in.BlendMode)
		if !ok {
			return s, fmt.Errorf("%w: blend mode %q", ErrBadValue, in.BlendMode)
		}
		s.BlendMode = mode
	}
	if in.Clip != nil {
		clip, err := rectOf(in.Clip)
		if err != nil {
			return s, fmt.Errorf("clip: %w", err)
		}
		s.ClipRect, s.IsClipped = clip, true
	}
	s.SortingContextID = in.SortingContext
	return s, nil
}

func (s *Scene) buildQuad(in *Quad) (quad.DrawQuad, error) {
	rect, err := rectOf(in.Rect)
	if err != nil {
		return quad.DrawQuad{}, fmt.Errorf("rect: %w", err)
	}
	q := quad.DrawQuad{
		Rect:            rect,
		VisibleRect:     rect,
		NeedsBlending:   in.NeedsBlending,
		SharedQuadState: in.State,
	}
	if in.Visible != nil {
		if q.VisibleRect, err = rectOf(in.Visible); err != nil {
			return q, fmt.Errorf("visible: %w", err)
		}
	}

	opaque := !in.NeedsBlending
	switch strings.ToLower(in.Material) {
	case "solid_color":
		col, err := parseColor(in.Color)
		if err != nil {
			return q, err
		}
		q.Content = quad.SolidColorContent{Color: col}
		opaque = opaque && col.IsOpaque()
	case "checkerboard":
		col, err := parseColor(in.Color)
		if err != nil {
			return q, err
		}
		q.Content = quad.CheckerboardContent{Color: col, Scale: 1}
	case "debug_border":
		col, err := parseColor(in.Color)
		if err != nil {
			return q, err
		}
		q.Content = quad.DebugBorderContent{Color: col, Width: in.Width}
		opaque = false
	case "texture":
		q.Content, err = s.textureContent(in)
		if err != nil {
			return q, err
		}
	case "stream_video":
		q.Content, err = s.streamVideoContent(in)
		if err != nil {
			return q, err
		}
	case "render_pass":
		q.Content = quad.RenderPassContent{PassID: quad.PassID(in.Pass)}
		opaque = false
	default:
		return q, fmt.Errorf("%w: %q", ErrUnknownMaterial, in.Material)
	}

	switch {
	case in.Opaque != nil:
		if q.OpaqueRect, err = rectOf(in.Opaque); err != nil {
			return q, fmt.Errorf("opaque: %w", err)
		}
	case opaque:
		q.OpaqueRect = rect
	}
	return q, nil
}

func (s *Scene) lookup(name string) (gpucore.ResourceID, error) {
	id, ok := s.Resources[name]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: %q", ErrUnknownResource, name)
	}
	return id, nil
}

func (s *Scene) textureContent(in *Quad) (quad.TextureContent, error) {
	id, err := s.lookup(in.Resource)
	if err != nil {
		return quad.TextureContent{}, err
	}
	c := quad.TextureContent{
		ResourceID:         id,
		ResourceSize:       s.sizes[in.Resource],
		AllowOverlay:       in.AllowOverlay,
		PremultipliedAlpha: in.Premultiplied,
		UVBottomRight:      geometry.PointF{X: 1, Y: 1},
		VertexOpacity:      [4]float32{1, 1, 1, 1},
		YFlipped:           in.YFlipped,
		NearestNeighbor:    in.NearestNeighbor,
	}
	if in.UV != nil {
		if len(in.UV) != 4 {
			return c, fmt.Errorf("%w: uv needs 4 values", ErrBadValue)
		}
		c.UVTopLeft = geometry.PointF{X: in.UV[0], Y: in.UV[1]}
		c.UVBottomRight = geometry.PointF{X: in.UV[2], Y: in.UV[3]}
	}
	if in.Background != "" {
		if c.BackgroundColor, err = parseColor(in.Background); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (s *Scene) streamVideoContent(in *Quad) (quad.StreamVideoContent, error) {
	id, err := s.lookup(in.Resource)
	if err != nil {
		return quad.StreamVideoContent{}, err
	}
	c := quad.StreamVideoContent{
		ResourceID:   id,
		ResourceSize: s.sizes[in.Resource],
		AllowOverlay: in.AllowOverlay,
		Matrix:       geometry.Identity(),
	}
	if in.Matrix != nil {
		if len(in.Matrix) != 6 {
			return c, fmt.Errorf("%w: matrix needs 6 values", ErrBadValue)
		}
		m := in.Matrix
		c.Matrix = geometry.Affine(m[0], m[1], m[2], m[3], m[4], m[5])
	}
	return c, nil
}

func sizeOf(v []int) (geometry.Size, error) {
	if len(v) != 2 || v[0] <= 0 || v[1] <= 0 {
		return geometry.Size{}, fmt.Errorf("%w: size %v", ErrBadValue, v)
	}
	return geometry.Sz(v[0], v[1]), nil
}

func rectOf(v []int) (geometry.Rect, error) {
	if len(v) != 4 || v[2] < 0 || v[3] < 0 {
		return geometry.Rect{}, fmt.Errorf("%w: rect %v", ErrBadValue, v)
	}
	return geometry.R(v[0], v[1], v[2], v[3]), nil
}

// parseColor reads #RRGGBB or #AARRGGBB.
func parseColor(s string) (quad.Color, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return 0, fmt.Errorf("%w: color %q", ErrBadValue, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: color %q", ErrBadValue, s)
	}
	if len(hex) == 6 {
		v |= 0xff000000
	}
	return quad.Color(v), nil
}

func parseFormat(name string) (gpucore.Format, error) {
	for f := gpucore.FormatRGBA8888; f <= gpucore.FormatRed8; f++ {
		if strings.EqualFold(f.String(), name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: resource format %q", ErrBadValue, name)
}

func parseVideoFormat(name string) (video.Format, error) {
	for f := video.FormatYV12; f <= video.FormatXRGB; f++ {
		if strings.EqualFold(f.String(), name) {
			return f, nil
		}
	}
	return video.FormatUnknown, fmt.Errorf("%w: video format %q", ErrBadValue, name)
}
