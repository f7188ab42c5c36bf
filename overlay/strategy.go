package overlay

import (
	"github.com/gogpu/compositor/quad"
)

// Proposal is a strategy's suggestion for one pass: the candidates to
// validate and the change to make to the pass if all are handled.
type Proposal struct {
	Candidates []Candidate
	apply      func(pass *quad.RenderPass)
}

// Apply makes the proposal's change to pass.
func (p Proposal) Apply(pass *quad.RenderPass) {
	if p.apply != nil {
		p.apply(pass)
	}
}

// Strategy finds overlay candidates in a render pass. Propose must not
// modify pass.
type Strategy interface {
	Name() string
	Propose(pass *quad.RenderPass, resources ResourceSource) (Proposal, bool)
}

// SingleOnTop promotes the topmost eligible quad that is not covered by a
// visible quad to a plane above the primary plane. The quad is removed
// from the pass.
type SingleOnTop struct{}

// Name implements Strategy.
func (SingleOnTop) Name() string { return "SingleOnTop" }

// Propose implements Strategy.
func (SingleOnTop) Propose(pass *quad.RenderPass, resources ResourceSource) (Proposal, bool) {
	for i := len(pass.Quads) - 1; i >= 0; i-- {
		c, reason := FromDrawQuad(pass, i, resources)
		if reason == Accepted && isOccluded(pass, i, c.DisplayRect) {
			reason = RejectOccluded
		}
		if reason != Accepted {
			slogger().Debug("overlay: quad rejected", "strategy", "SingleOnTop",
				"pass", pass.ID, "quad", i, "material", pass.Quads[i].Material(), "reason", reason)
			continue
		}
		c.ZOrder = 0
		index := i
		return Proposal{
			Candidates: []Candidate{c},
			apply:      func(p *quad.RenderPass) { p.RemoveQuad(index) },
		}, true
	}
	return Proposal{}, false
}

// Underlay promotes the topmost eligible quad to a plane below the primary
// plane, regardless of what covers it. The quad is replaced by a
// transparent solid color quad of the same geometry so that the primary
// plane is see-through where the underlay shows.
type Underlay struct{}

// Name implements Strategy.
func (Underlay) Name() string { return "Underlay" }

// Propose implements Strategy.
func (Underlay) Propose(pass *quad.RenderPass, resources ResourceSource) (Proposal, bool) {
	for i := len(pass.Quads) - 1; i >= 0; i-- {
		c, reason := FromDrawQuad(pass, i, resources)
		if reason != Accepted {
			slogger().Debug("overlay: quad rejected", "strategy", "Underlay",
				"pass", pass.ID, "quad", i, "material", pass.Quads[i].Material(), "reason", reason)
			continue
		}
		c.ZOrder = -1
		index := i
		return Proposal{
			Candidates: []Candidate{c},
			apply: func(p *quad.RenderPass) {
				orig := p.Quads[index]
				p.ReplaceQuad(index, quad.DrawQuad{
					Rect:            orig.Rect,
					OpaqueRect:      orig.Rect,
					VisibleRect:     orig.Rect,
					SharedQuadState: orig.SharedQuadState,
					Content: quad.SolidColorContent{
						Color:                quad.ColorTransparent,
						ForceAntiAliasingOff: true,
					},
				})
			},
		}, true
	}
	return Proposal{}, false
}

// DefaultStrategies returns the strategies tried when none are configured.
func DefaultStrategies() []Strategy {
	return []Strategy{SingleOnTop{}, Underlay{}}
}
