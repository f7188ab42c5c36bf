package overlay

import (
	"slices"
	"sync"

	"github.com/gogpu/compositor/gpucore"
	"github.com/gogpu/compositor/quad"
)

// Processor selects overlay planes for each frame.
//
// Process and DidSwap are called from the compositor thread; Processor
// guards its swap bookkeeping so that DidSwap may also run from a
// presentation callback.
type Processor struct {
	validator  Validator
	resources  ResourceSource
	strategies []Strategy

	mu      sync.Mutex
	pending []gpucore.ResourceID
	inUse   []gpucore.ResourceID
}

// Option configures a Processor.
type Option func(*Processor)

// WithStrategies replaces the default strategies. They are tried in order.
func WithStrategies(s ...Strategy) Option {
	return func(p *Processor) { p.strategies = s }
}

// NewProcessor returns a processor. A nil validator disables overlays.
// resources may be nil.
func NewProcessor(validator Validator, resources ResourceSource, opts ...Option) *Processor {
	p := &Processor{
		validator:  validator,
		resources:  resources,
		strategies: DefaultStrategies(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enabled reports whether a validator is present.
func (p *Processor) Enabled() bool { return p.validator != nil }

// Strategies returns the configured strategies.
func (p *Processor) Strategies() []Strategy { return slices.Clone(p.strategies) }

// Process promotes quads of passes to overlay planes and returns the
// accepted candidates, ordered by pass and then by z-order. A pass is
// modified only by a strategy whose candidates were all handled by the
// validator. Without a validator Process returns nil and touches nothing.
func (p *Processor) Process(passes []*quad.RenderPass) []Candidate {
	if p.validator == nil {
		return nil
	}

	var out []Candidate
	for _, pass := range passes {
		if pass == nil || len(pass.Quads) == 0 {
			continue
		}
		out = append(out, p.processPass(pass)...)
	}

	ids := make([]gpucore.ResourceID, 0, len(out))
	for _, c := range out {
		ids = append(ids, c.ResourceID)
	}
	p.mu.Lock()
	p.pending = ids
	p.mu.Unlock()
	return out
}

func (p *Processor) processPass(pass *quad.RenderPass) []Candidate {
	for _, s := range p.strategies {
		prop, ok := s.Propose(pass, p.resources)
		if !ok {
			continue
		}
		checked := slices.Clone(prop.Candidates)
		p.validator.CheckOverlaySupport(checked)
		if !allHandled(checked) {
			slogger().Debug("overlay: validator rejected proposal",
				"strategy", s.Name(), "pass", pass.ID, "candidates", len(checked))
			continue
		}
		prop.Apply(pass)
		slices.SortStableFunc(checked, func(a, b Candidate) int { return a.ZOrder - b.ZOrder })
		slogger().Debug("overlay: promoted", "strategy", s.Name(), "pass", pass.ID, "candidates", len(checked))
		return checked
	}
	return nil
}

func allHandled(cs []Candidate) bool {
	if len(cs) == 0 {
		return false
	}
	for _, c := range cs {
		if !c.OverlayHandled {
			return false
		}
	}
	return true
}

// DidSwap is called once the frame from the last Process call is on
// screen. Resources shown by the previous frame's planes are no longer in
// use by the display; the new frame's planes are.
func (p *Processor) DidSwap() {
	p.mu.Lock()
	prev, cur := p.inUse, p.pending
	p.inUse, p.pending = cur, nil
	p.mu.Unlock()

	if p.resources == nil {
		return
	}
	for _, id := range prev {
		if slices.Contains(cur, id) {
			continue
		}
		if err := p.resources.SetInUseByConsumer(id, false); err != nil {
			slogger().Debug("overlay: release plane resource", "id", id, "err", err)
		}
	}
	for _, id := range cur {
		if err := p.resources.SetInUseByConsumer(id, true); err != nil {
			slogger().Debug("overlay: hold plane resource", "id", id, "err", err)
		}
	}
}

// InUse returns the resources shown by the planes of the last swapped frame.
func (p *Processor) InUse() []gpucore.ResourceID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.inUse)
}
