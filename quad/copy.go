package quad

import (
	"fmt"

	"github.com/jinzhu/copier"
)

// CopyWithoutQuads returns a pass with p's header and the given id but no
// quads or shared states.
func (p *RenderPass) CopyWithoutQuads(id PassID) *RenderPass {
	return &RenderPass{
		ID:                       id,
		OutputRect:               p.OutputRect,
		DamageRect:               p.DamageRect,
		TransformToRoot:          p.TransformToRoot,
		HasTransparentBackground: p.HasTransparentBackground,
	}
}

// DeepCopy returns a copy of p that shares no memory with it. Quads in the
// copy refer to the copy's shared states at the same indices, so the sharing
// pattern is preserved.
func (p *RenderPass) DeepCopy() (*RenderPass, error) {
	out := p.CopyWithoutQuads(p.ID)
	if len(p.SharedQuadStates) > 0 {
		if err := copier.CopyWithOption(&out.SharedQuadStates, &p.SharedQuadStates, copier.Option{DeepCopy: true}); err != nil {
			return nil, fmt.Errorf("quad: copy shared quad states of pass %d: %w", p.ID, err)
		}
	}
	if len(p.Quads) > 0 {
		out.Quads = make([]DrawQuad, len(p.Quads))
		for i, q := range p.Quads {
			q.Content = cloneContent(q.Content)
			out.Quads[i] = q
		}
	}
	return out, nil
}

// DeepCopy copies every pass of f.
func (f *Frame) DeepCopy() (*Frame, error) {
	out := &Frame{DeviceScaleFactor: f.DeviceScaleFactor, Passes: make([]*RenderPass, len(f.Passes))}
	for i, p := range f.Passes {
		cp, err := p.DeepCopy()
		if err != nil {
			return nil, err
		}
		out.Passes[i] = cp
	}
	return out, nil
}
