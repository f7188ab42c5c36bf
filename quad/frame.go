package quad

import "fmt"

// Limits bounds the size of a frame accepted from another process.
type Limits struct {
	MaxPasses           int
	MaxSharedQuadStates int
	MaxQuads            int
}

// DefaultLimits returns the limits applied to untrusted frames.
func DefaultLimits() Limits {
	return Limits{
		MaxPasses:           10000,
		MaxSharedQuadStates: 100000,
		MaxQuads:            1000000,
	}
}

// Frame is the set of render passes submitted for one compositor frame.
// Passes are in draw order: a pass can only be drawn by passes after it, and
// the last pass is the root.
type Frame struct {
	DeviceScaleFactor float32
	Passes            []*RenderPass
}

// RootPass returns the last pass, or nil for an empty frame.
func (f *Frame) RootPass() *RenderPass {
	if len(f.Passes) == 0 {
		return nil
	}
	return f.Passes[len(f.Passes)-1]
}

// Validate checks pass counts, pass id uniqueness, pass references and every
// pass against limits.
func (f *Frame) Validate(limits Limits) error {
	if len(f.Passes) == 0 {
		return ErrNoPasses
	}
	if len(f.Passes) > limits.MaxPasses {
		return fmt.Errorf("%w: %d > %d", ErrTooManyPasses, len(f.Passes), limits.MaxPasses)
	}
	seen := make(map[PassID]struct{}, len(f.Passes))
	for _, p := range f.Passes {
		if _, dup := seen[p.ID]; dup {
			return &QuadError{Pass: p.ID, Quad: -1, Err: ErrDuplicatePass}
		}
		if err := p.Validate(limits); err != nil {
			return err
		}
		for i := range p.Quads {
			rp, ok := p.Quads[i].Content.(RenderPassContent)
			if !ok {
				continue
			}
			if _, known := seen[rp.PassID]; !known {
				return &QuadError{Pass: p.ID, Quad: i, Err: fmt.Errorf("%w: %d", ErrUnknownPass, rp.PassID)}
			}
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
