package compositor

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/compositor/gpucore"
	"github.com/gogpu/compositor/overlay"
	"github.com/gogpu/compositor/quad"
)

// DrawnFrame is a frame accepted by DrawFrame and not yet swapped.
type DrawnFrame struct {
	Frame *quad.Frame

	// Overlays are the planes promoted out of the frame, ordered by pass
	// and then by z-order.
	Overlays []overlay.Candidate

	// Resources are the distinct resources the frame references. Each
	// holds one reference until the frame is swapped.
	Resources []gpucore.ResourceID
}

// DecodeFrame reads a serialized frame, enforcing the context's frame
// limits.
func (c *Context) DecodeFrame(data []byte) (*quad.Frame, error) {
	f, err := quad.UnmarshalFrame(data, c.frameLimits)
	if err != nil {
		slogger().Warn("compositor: frame rejected", "err", err)
		return nil, err
	}
	return f, nil
}

// DrawFrame validates f, takes a reference on every resource it uses and
// promotes quads to overlay planes. The passes of f are modified in place
// by overlay promotion. The references are released by DidSwap.
func (c *Context) DrawFrame(f *quad.Frame) (*DrawnFrame, error) {
	if f == nil {
		return nil, ErrNilFrame
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if err := f.Validate(c.frameLimits); err != nil {
		return nil, err
	}

	ids := frameResources(f)
	for i, id := range ids {
		if err := c.registry.MarkInUse(id); err != nil {
			for _, taken := range ids[:i] {
				_ = c.registry.DropRef(taken)
			}
			return nil, fmt.Errorf("compositor: frame resource: %w", err)
		}
	}

	planes := c.overlays.Process(f.Passes)

	c.mu.Lock()
	c.frames++
	n := c.frames
	c.mu.Unlock()
	slogger().Debug("compositor: frame drawn",
		"frame", n, "passes", len(f.Passes), "resources", len(ids), "overlays", len(planes))

	return &DrawnFrame{Frame: f, Overlays: planes, Resources: ids}, nil
}

// frameResources returns the distinct resources of f in first-use order.
func frameResources(f *quad.Frame) []gpucore.ResourceID {
	var ids []gpucore.ResourceID
	seen := make(map[gpucore.ResourceID]struct{})
	for _, p := range f.Passes {
		for i := range p.Quads {
			for _, id := range p.Quads[i].Resources() {
				if !id.IsValid() {
					continue
				}
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// DidSwap completes d after its output has been presented. The frame's
// references are released behind a new fence and the overlay planes of
// the previous swap are returned to their producers.
//
// References are never released before their fence is issued. If no
// fence can be inserted on a live context they are held and released
// behind the token of a later swap. Once the context is lost nothing can
// read them and they are released at once.
func (c *Context) DidSwap(d *DrawnFrame) error {
	c.mu.Lock()
	ids := c.deferred
	c.deferred = nil
	c.mu.Unlock()
	if d != nil {
		ids = append(ids, d.Resources...)
	}

	var errs []error
	if len(ids) > 0 {
		token, err := c.InsertFence()
		switch {
		case err == nil:
		case c.registry.HaveContext():
			slogger().Warn("compositor: release deferred", "resources", len(ids), "err", err)
			c.mu.Lock()
			c.deferred = append(c.deferred, ids...)
			c.mu.Unlock()
			ids = nil
			errs = append(errs, err)
		default:
			slogger().Debug("compositor: releasing without fence after context loss", "resources", len(ids))
			token = gpucore.NoSyncToken
		}
		for _, id := range ids {
			if err := c.registry.MarkReleased(id, token, nil); err != nil {
				errs = append(errs, err)
			}
		}
	}
	c.overlays.DidSwap()
	return errors.Join(errs...)
}

// OverlayResources returns the resources currently scanned out by overlay
// planes.
func (c *Context) OverlayResources() []gpucore.ResourceID {
	return slices.Clone(c.overlays.InUse())
}
