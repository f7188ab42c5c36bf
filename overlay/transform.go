package overlay

import (
	"fmt"

	"github.com/gogpu/compositor/geometry"
)

// Transform is the orientation a display plane applies to its buffer.
type Transform uint8

// Plane transforms. Rotations are clockwise.
const (
	TransformInvalid Transform = iota
	TransformNone
	TransformFlipHorizontal
	TransformFlipVertical
	TransformRotate90
	TransformRotate180
	TransformRotate270
)

func (t Transform) String() string {
	switch t {
	case TransformInvalid:
		return "Invalid"
	case TransformNone:
		return "None"
	case TransformFlipHorizontal:
		return "FlipHorizontal"
	case TransformFlipVertical:
		return "FlipVertical"
	case TransformRotate90:
		return "Rotate90"
	case TransformRotate180:
		return "Rotate180"
	case TransformRotate270:
		return "Rotate270"
	default:
		return fmt.Sprintf("Transform(%d)", t)
	}
}

// TransformFor classifies a quad-to-target transform. Only transforms that
// keep rectangles axis aligned map to a plane transform; a basis swap
// without rotation (a transpose) does not. yFlipped inverts the quad's
// vertical axis first.
func TransformFor(t geometry.Transform, yFlipped bool) Transform {
	if !t.Preserves2DAxisAlignment() {
		return TransformInvalid
	}
	// Images of the unit x and y axes.
	xx, xy := t.A, t.D
	yx, yy := t.B, t.E
	if yFlipped {
		yx, yy = -yx, -yy
	}

	switch {
	case xx > 0:
		if yy > 0 {
			return TransformNone
		}
		return TransformFlipVertical
	case xx < 0:
		if yy > 0 {
			return TransformFlipHorizontal
		}
		return TransformRotate180
	case xy > 0:
		if yx < 0 {
			return TransformRotate90
		}
	case xy < 0:
		if yx > 0 {
			return TransformRotate270
		}
	}
	return TransformInvalid
}

// Compose returns the transform equivalent to applying in and then delta.
// Only flips compose; a quarter rotation followed by a flip has no plane
// transform and yields TransformInvalid.
func Compose(in, delta Transform) Transform {
	switch delta {
	case TransformNone:
		return in
	case TransformFlipHorizontal:
		switch in {
		case TransformNone:
			return TransformFlipHorizontal
		case TransformFlipVertical:
			return TransformRotate180
		case TransformRotate180:
			return TransformFlipVertical
		case TransformFlipHorizontal:
			return TransformNone
		}
	case TransformFlipVertical:
		switch in {
		case TransformNone:
			return TransformFlipVertical
		case TransformFlipHorizontal:
			return TransformRotate180
		case TransformRotate180:
			return TransformFlipHorizontal
		case TransformFlipVertical:
			return TransformNone
		}
	}
	return TransformInvalid
}
