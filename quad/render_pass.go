package quad

import (
	"github.com/gogpu/compositor/geometry"
)

// PassID identifies a render pass within a frame.
type PassID int32

// RenderPass is a list of quads drawn into one target, bottom quad first.
type RenderPass struct {
	ID         PassID
	OutputRect geometry.Rect
	DamageRect geometry.Rect

	TransformToRoot          geometry.Transform
	HasTransparentBackground bool

	// SharedQuadStates is the arena quads index into.
	SharedQuadStates []SharedQuadState

	// Quads are in draw order: the last quad is topmost.
	Quads []DrawQuad
}

// NewRenderPass returns an empty pass with an identity root transform.
func NewRenderPass(id PassID, output, damage geometry.Rect) *RenderPass {
	return &RenderPass{
		ID:              id,
		OutputRect:      output,
		DamageRect:      damage,
		TransformToRoot: geometry.Identity(),
	}
}

// AppendSharedQuadState adds s to the arena and returns its index.
func (p *RenderPass) AppendSharedQuadState(s SharedQuadState) int {
	p.SharedQuadStates = append(p.SharedQuadStates, s)
	return len(p.SharedQuadStates) - 1
}

// AppendQuad adds q on top of the existing quads.
func (p *RenderPass) AppendQuad(q DrawQuad) {
	p.Quads = append(p.Quads, q)
}

// SharedQuadStateOf returns the state quad i refers to, or nil if the
// reference is out of range.
func (p *RenderPass) SharedQuadStateOf(i int) *SharedQuadState {
	if i < 0 || i >= len(p.Quads) {
		return nil
	}
	idx := p.Quads[i].SharedQuadState
	if idx < 0 || idx >= len(p.SharedQuadStates) {
		return nil
	}
	return &p.SharedQuadStates[idx]
}

// RemoveQuad deletes quad i, keeping the order of the rest.
func (p *RenderPass) RemoveQuad(i int) {
	p.Quads = append(p.Quads[:i], p.Quads[i+1:]...)
}

// ReplaceQuad overwrites quad i in place.
func (p *RenderPass) ReplaceQuad(i int, q DrawQuad) {
	p.Quads[i] = q
}

// Validate checks every quad and shared state reference against limits.
func (p *RenderPass) Validate(limits Limits) error {
	if len(p.SharedQuadStates) > limits.MaxSharedQuadStates {
		return &QuadError{Pass: p.ID, Quad: -1, Err: ErrTooManySharedQuadStates}
	}
	if len(p.Quads) > limits.MaxQuads {
		return &QuadError{Pass: p.ID, Quad: -1, Err: ErrTooManyQuads}
	}
	for i := range p.Quads {
		if p.SharedQuadStateOf(i) == nil {
			return &QuadError{Pass: p.ID, Quad: i, Err: ErrMissingSharedQuadState}
		}
		if err := p.Quads[i].Validate(); err != nil {
			return &QuadError{Pass: p.ID, Quad: i, Err: err}
		}
	}
	return nil
}
