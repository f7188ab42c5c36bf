package overlay

import (
	"slices"

	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/gpucore"
)

// Validator decides which candidates the display hardware can present.
// CheckOverlaySupport sets OverlayHandled on each candidate it accepts and
// must not change any other field.
type Validator interface {
	CheckOverlaySupport(candidates []Candidate)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(candidates []Candidate)

// CheckOverlaySupport calls f.
func (f ValidatorFunc) CheckOverlaySupport(candidates []Candidate) { f(candidates) }

// PlaneValidator accepts candidates that fit a fixed set of display
// planes. It is a simple model of a display controller.
type PlaneValidator struct {
	// MaxOverlays is the number of planes besides the primary one.
	MaxOverlays int

	// Bounds, if not empty, is the display area planes must lie within.
	Bounds geometry.Rect

	// AllowUnderlays enables planes below the primary plane.
	AllowUnderlays bool

	// AllowRotation enables quarter-turn transforms. Flips are always
	// supported.
	AllowRotation bool

	// Formats lists the buffer formats the planes can scan out. Empty
	// accepts any format.
	Formats []gpucore.Format
}

// CheckOverlaySupport implements Validator.
func (v PlaneValidator) CheckOverlaySupport(candidates []Candidate) {
	used := 0
	for i := range candidates {
		c := &candidates[i]
		switch {
		case used >= v.MaxOverlays:
		case c.ZOrder < 0 && !v.AllowUnderlays:
		case !v.AllowRotation && (c.Transform == TransformRotate90 || c.Transform == TransformRotate270):
		case !v.Bounds.IsEmpty() && !v.Bounds.ToRectF().Contains(c.DisplayRect):
		case len(v.Formats) > 0 && !slices.Contains(v.Formats, c.Format):
		default:
			c.OverlayHandled = true
			used++
		}
	}
}
