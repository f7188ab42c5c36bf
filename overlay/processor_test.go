package overlay

import (
	"slices"
	"testing"

	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/gpucore"
	"github.com/gogpu/compositor/quad"
)

func TestNoValidatorIsNoop(t *testing.T) {
	p := newPass(1)
	addCheckerAt(p, overlayRect)
	addCandidateAt(p, overlayRect)
	orig := copyPass(t, p)

	proc := NewProcessor(nil, nil)
	if proc.Enabled() {
		t.Error("Enabled() = true without validator")
	}
	if got := proc.Process([]*quad.RenderPass{p}); got != nil {
		t.Errorf("Process() = %v, want nil", got)
	}
	if !quad.Equal(p, orig) {
		t.Error("pass modified without validator")
	}
}

func TestDefaultStrategies(t *testing.T) {
	proc := NewProcessor(acceptAll, nil)
	var names []string
	for _, s := range proc.Strategies() {
		names = append(names, s.Name())
	}
	if !slices.Equal(names, []string{"SingleOnTop", "Underlay"}) {
		t.Errorf("strategies = %v", names)
	}
}

func TestSingleOnTopPromotesTopQuad(t *testing.T) {
	p := newPass(1)
	addCheckerAt(p, overlayRect)
	addCheckerAt(p, overlayRect)
	id := textureResource(addCandidateAt(p, overlayRect))

	got := NewProcessor(acceptAll, nil).Process([]*quad.RenderPass{p})
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].ZOrder != 0 || got[0].ResourceID != id || !got[0].OverlayHandled {
		t.Errorf("candidate = %v", got[0])
	}
	if len(p.Quads) != 2 {
		t.Fatalf("pass has %d quads, want 2", len(p.Quads))
	}
	for i := range p.Quads {
		if p.Quads[i].Material() == quad.MaterialTexture {
			t.Errorf("quad %d is still a texture quad", i)
		}
	}
}

func TestNoCandidates(t *testing.T) {
	p := newPass(1)
	addCheckerAt(p, overlayRect)
	addCheckerAt(p, overlayRect)
	orig := copyPass(t, p)

	if got := NewProcessor(acceptAll, nil).Process([]*quad.RenderPass{p}); len(got) != 0 {
		t.Errorf("got %d candidates, want 0", len(got))
	}
	if !quad.Equal(p, orig) {
		t.Error("pass modified")
	}
}

func TestSingleOnTopRejectsOccluded(t *testing.T) {
	p := newPass(1)
	addCandidateAt(p, overlayRect)
	addCheckerAt(p, overlayRect)
	addCheckerAt(p, overlayRect)
	orig := copyPass(t, p)

	proc := NewProcessor(acceptAll, nil, WithStrategies(SingleOnTop{}))
	if got := proc.Process([]*quad.RenderPass{p}); len(got) != 0 {
		t.Errorf("got %d candidates, want 0", len(got))
	}
	if !quad.Equal(p, orig) {
		t.Error("pass modified")
	}
}

func TestUnderlayReplacesOccludedQuad(t *testing.T) {
	p := newPass(1)
	id := textureResource(addCandidateAt(p, overlayRect))
	addCheckerAt(p, overlayRect)

	got := NewProcessor(acceptAll, nil).Process([]*quad.RenderPass{p})
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].ZOrder != -1 || got[0].ResourceID != id {
		t.Errorf("candidate = %v, want underlay of resource %d", got[0], id)
	}
	if len(p.Quads) != 2 {
		t.Fatalf("pass has %d quads, want 2", len(p.Quads))
	}
	q := p.Quads[0]
	sc, ok := q.Content.(quad.SolidColorContent)
	if !ok {
		t.Fatalf("quad 0 is %v, want SolidColor", q.Material())
	}
	if sc.Color != quad.ColorTransparent || !sc.ForceAntiAliasingOff {
		t.Errorf("placeholder = %+v", sc)
	}
	if q.Rect != overlayRect || q.OpaqueRect != overlayRect || q.VisibleRect != overlayRect {
		t.Errorf("placeholder rects = %v %v %v, want %v", q.Rect, q.OpaqueRect, q.VisibleRect, overlayRect)
	}
	if p.Quads[1].Material() != quad.MaterialCheckerboard {
		t.Errorf("quad 1 is %v, want Checkerboard", p.Quads[1].Material())
	}
}

func TestAllowNotTopIfNotOccluded(t *testing.T) {
	p := newPass(1)
	addCandidateAt(p, bottomRightRect)
	addCheckerAt(p, topLeftRect)

	proc := NewProcessor(acceptAll, nil, WithStrategies(SingleOnTop{}))
	got := proc.Process([]*quad.RenderPass{p})
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].DisplayRect != bottomRightRect.ToRectF() {
		t.Errorf("DisplayRect = %v, want %v", got[0].DisplayRect, bottomRightRect)
	}
	if len(p.Quads) != 1 || p.Quads[0].Material() != quad.MaterialCheckerboard {
		t.Errorf("remaining quads = %v", p.Quads)
	}
}

func TestQuadsOnTop(t *testing.T) {
	tests := []struct {
		name    string
		opacity float32
		color   quad.Color
		opaque  bool
		want    int
	}{
		{"transparent layer", 0, quad.ARGB(255, 0, 0, 0), false, 1},
		{"transparent color", 1, quad.ColorTransparent, false, 1},
		{"half opaque color", 0.5, quad.ARGB(255, 0, 0, 0), false, 0},
		{"transparent color without blending", 1, quad.ColorTransparent, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPass(1)
			addCandidateAt(p, bottomRightRect)
			addState(p, tt.opacity)
			q := addSolidColorAt(p, bottomRightRect, tt.color)
			if tt.opaque {
				q.OpaqueRect = q.Rect
			}

			proc := NewProcessor(acceptAll, nil, WithStrategies(SingleOnTop{}))
			if got := proc.Process([]*quad.RenderPass{p}); len(got) != tt.want {
				t.Errorf("got %d candidates, want %d", len(got), tt.want)
			}
		})
	}
}

func TestStreamVideoSharedStateTransforms(t *testing.T) {
	tests := []struct {
		name string
		tr   geometry.Transform
		want int
	}{
		{"basis swap", geometry.Affine(0, 1, 0, 1, 0, 0), 0},
		{"y mirror", geometry.Affine(1, 0, 0, 0, -1, 128), 1},
		{"x mirror", geometry.Affine(-1, 0, 128, 0, 1, 0), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPass(1)
			p.SharedQuadStates[0].QuadToTargetTransform = tt.tr
			addVideoAt(p, overlayRect, geometry.Identity())

			got := NewProcessor(acceptAll, nil).Process([]*quad.RenderPass{p})
			if len(got) != tt.want {
				t.Fatalf("got %d candidates, want %d", len(got), tt.want)
			}
			if tt.want == 1 && got[0].DisplayRect != overlayRect.ToRectF() {
				t.Errorf("DisplayRect = %v, want %v", got[0].DisplayRect, overlayRect)
			}
		})
	}
}

func TestValidatorRejectionLeavesPassUnchanged(t *testing.T) {
	p := newPass(1)
	addCheckerAt(p, overlayRect)
	addCandidateAt(p, overlayRect)
	orig := copyPass(t, p)

	var calls int
	reject := ValidatorFunc(func([]Candidate) { calls++ })
	if got := NewProcessor(reject, nil).Process([]*quad.RenderPass{p}); len(got) != 0 {
		t.Errorf("got %d candidates, want 0", len(got))
	}
	if calls != 2 {
		t.Errorf("validator called %d times, want once per strategy", calls)
	}
	if !quad.Equal(p, orig) {
		t.Error("pass modified after rejection")
	}
}

func TestValidatorFallsBackToUnderlay(t *testing.T) {
	p := newPass(1)
	addCheckerAt(p, overlayRect)
	addCandidateAt(p, overlayRect)

	underlaysOnly := ValidatorFunc(func(cs []Candidate) {
		for i := range cs {
			cs[i].OverlayHandled = cs[i].ZOrder < 0
		}
	})
	got := NewProcessor(underlaysOnly, nil).Process([]*quad.RenderPass{p})
	if len(got) != 1 || got[0].ZOrder != -1 {
		t.Fatalf("candidates = %v, want one underlay", got)
	}
	if len(p.Quads) != 2 || p.Quads[1].Material() != quad.MaterialSolidColor {
		t.Errorf("top quad not replaced: %v", p.Quads)
	}
}

func TestMultipleRenderPasses(t *testing.T) {
	first := newPass(1)
	addCheckerAt(first, overlayRect)
	addCandidateAt(first, overlayRect)
	empty := newPass(2)
	last := newPass(3)
	addCheckerAt(last, overlayRect)
	addCandidateAt(last, overlayRect)

	got := NewProcessor(acceptAll, nil).Process([]*quad.RenderPass{first, empty, last})
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].Pass != 1 || got[1].Pass != 3 {
		t.Errorf("candidate passes = %d, %d, want 1, 3", got[0].Pass, got[1].Pass)
	}
}

func TestPlaneValidator(t *testing.T) {
	v := PlaneValidator{MaxOverlays: 1, Bounds: geometry.R(0, 0, 256, 256)}
	cs := []Candidate{
		{ZOrder: -1, DisplayRect: overlayRect.ToRectF()},
		{ZOrder: 0, Transform: TransformRotate90, DisplayRect: overlayRect.ToRectF()},
		{ZOrder: 0, DisplayRect: geometry.RectF{X: 200, Y: 200, Width: 100, Height: 100}},
		{ZOrder: 0, Transform: TransformFlipVertical, DisplayRect: overlayRect.ToRectF()},
		{ZOrder: 0, DisplayRect: overlayRect.ToRectF()},
	}
	v.CheckOverlaySupport(cs)
	want := []bool{false, false, false, true, false}
	for i := range cs {
		if cs[i].OverlayHandled != want[i] {
			t.Errorf("candidate %d handled = %v, want %v", i, cs[i].OverlayHandled, want[i])
		}
	}
}

func TestPlaneValidatorFormats(t *testing.T) {
	v := PlaneValidator{MaxOverlays: 2, Formats: []gpucore.Format{gpucore.FormatBGRA8888}}
	cs := []Candidate{
		{Format: gpucore.FormatRGBA8888, DisplayRect: overlayRect.ToRectF()},
		{Format: gpucore.FormatBGRA8888, DisplayRect: overlayRect.ToRectF()},
	}
	v.CheckOverlaySupport(cs)
	if cs[0].OverlayHandled || !cs[1].OverlayHandled {
		t.Errorf("handled = %v, %v, want false, true", cs[0].OverlayHandled, cs[1].OverlayHandled)
	}
}

type fakeResources struct {
	inUse map[gpucore.ResourceID]bool
}

func (f *fakeResources) AllowOverlay(gpucore.ResourceID) bool { return true }

func (f *fakeResources) Format(gpucore.ResourceID) (gpucore.Format, bool) {
	return gpucore.FormatRGBA8888, true
}

func (f *fakeResources) SetInUseByConsumer(id gpucore.ResourceID, inUse bool) error {
	f.inUse[id] = inUse
	return nil
}

func TestDidSwapTracksInUse(t *testing.T) {
	res := &fakeResources{inUse: make(map[gpucore.ResourceID]bool)}
	proc := NewProcessor(acceptAll, res)

	p := newPass(1)
	a := textureResource(addCandidateAt(p, overlayRect))
	proc.Process([]*quad.RenderPass{p})
	if res.inUse[a] {
		t.Fatal("resource in use before swap")
	}
	proc.DidSwap()
	if !res.inUse[a] {
		t.Fatal("resource not in use after swap")
	}

	p = newPass(1)
	b := textureResource(addCandidateAt(p, overlayRect))
	proc.Process([]*quad.RenderPass{p})
	if !res.inUse[a] {
		t.Error("previous plane released before the next swap")
	}
	proc.DidSwap()
	if res.inUse[a] || !res.inUse[b] {
		t.Errorf("after second swap in use: a=%v b=%v, want false true", res.inUse[a], res.inUse[b])
	}
	if got := proc.InUse(); !slices.Equal(got, []gpucore.ResourceID{b}) {
		t.Errorf("InUse() = %v, want [%d]", got, b)
	}
}
