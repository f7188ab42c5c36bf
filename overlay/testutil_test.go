package overlay

import (
	"testing"

	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/gpucore"
	"github.com/gogpu/compositor/quad"
)

var (
	overlayRect     = geometry.R(0, 0, 128, 128)
	topLeftRect     = geometry.R(0, 0, 64, 64)
	bottomRightRect = geometry.R(64, 64, 64, 64)

	uvTopLeft     = geometry.PointF{X: 0.1, Y: 0.2}
	uvBottomRight = geometry.PointF{X: 1, Y: 1}
)

// acceptAll handles every candidate.
var acceptAll = ValidatorFunc(func(cs []Candidate) {
	for i := range cs {
		cs[i].OverlayHandled = true
	}
})

func newPass(id quad.PassID) *quad.RenderPass {
	p := quad.NewRenderPass(id, geometry.R(0, 0, 256, 256), geometry.R(0, 0, 256, 256))
	p.HasTransparentBackground = true
	p.AppendSharedQuadState(quad.DefaultSharedQuadState(geometry.Sz(256, 256)))
	return p
}

func lastState(p *quad.RenderPass) int { return len(p.SharedQuadStates) - 1 }

var nextResource gpucore.ResourceID = 100

func addCandidateAt(p *quad.RenderPass, r geometry.Rect) *quad.DrawQuad {
	nextResource++
	p.AppendQuad(quad.DrawQuad{
		Rect:            r,
		OpaqueRect:      r,
		VisibleRect:     r,
		SharedQuadState: lastState(p),
		Content: quad.TextureContent{
			ResourceID:    nextResource,
			ResourceSize:  geometry.Sz(64, 64),
			AllowOverlay:  true,
			UVTopLeft:     uvTopLeft,
			UVBottomRight: uvBottomRight,
			VertexOpacity: [4]float32{1, 1, 1, 1},
		},
	})
	return &p.Quads[len(p.Quads)-1]
}

func addVideoAt(p *quad.RenderPass, r geometry.Rect, matrix geometry.Transform) *quad.DrawQuad {
	nextResource++
	p.AppendQuad(quad.DrawQuad{
		Rect:            r,
		OpaqueRect:      r,
		VisibleRect:     r,
		SharedQuadState: lastState(p),
		Content: quad.StreamVideoContent{
			ResourceID:   nextResource,
			ResourceSize: geometry.Sz(64, 64),
			AllowOverlay: true,
			Matrix:       matrix,
		},
	})
	return &p.Quads[len(p.Quads)-1]
}

func addCheckerAt(p *quad.RenderPass, r geometry.Rect) {
	p.AppendQuad(quad.DrawQuad{
		Rect:            r,
		OpaqueRect:      r,
		VisibleRect:     r,
		SharedQuadState: lastState(p),
		Content:         quad.CheckerboardContent{Scale: 1},
	})
}

func addSolidColorAt(p *quad.RenderPass, r geometry.Rect, c quad.Color) *quad.DrawQuad {
	q := quad.DrawQuad{
		Rect:            r,
		VisibleRect:     r,
		SharedQuadState: lastState(p),
		Content:         quad.SolidColorContent{Color: c},
	}
	if c.IsOpaque() {
		q.OpaqueRect = r
	}
	p.AppendQuad(q)
	return &p.Quads[len(p.Quads)-1]
}

func addState(p *quad.RenderPass, opacity float32) {
	s := quad.DefaultSharedQuadState(geometry.Sz(256, 256))
	s.Opacity = opacity
	p.AppendSharedQuadState(s)
}

func copyPass(t *testing.T, p *quad.RenderPass) *quad.RenderPass {
	t.Helper()
	cp, err := p.DeepCopy()
	if err != nil {
		t.Fatalf("DeepCopy: %v", err)
	}
	return cp
}

func textureResource(q *quad.DrawQuad) gpucore.ResourceID {
	switch c := q.Content.(type) {
	case quad.TextureContent:
		return c.ResourceID
	case quad.StreamVideoContent:
		return c.ResourceID
	}
	return gpucore.InvalidID
}
