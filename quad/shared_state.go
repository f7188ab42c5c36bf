package quad

import (
	"fmt"

	"github.com/gogpu/compositor/geometry"
)

// BlendMode represents a compositing blend mode.
type BlendMode uint32

// Blend mode constants. BlendNormal is source-over and the only mode
// eligible for overlay promotion.
const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendDarken
	BlendLighten
	BlendColorDodge
	BlendColorBurn
	BlendHardLight
	BlendSoftLight
	BlendDifference
	BlendExclusion
	BlendHue
	BlendSaturation
	BlendColor
	BlendLuminosity
	// Porter-Duff modes
	BlendClear
	BlendCopy
	BlendDestination
	BlendDestinationOver
	BlendSourceIn
	BlendDestinationIn
	BlendSourceOut
	BlendDestinationOut
	BlendSourceAtop
	BlendDestinationAtop
	BlendXor
	BlendPlus

	blendModeLast = BlendPlus
)

var blendModeNames = [...]string{
	BlendNormal:          "Normal",
	BlendMultiply:        "Multiply",
	BlendScreen:          "Screen",
	BlendOverlay:         "Overlay",
	BlendDarken:          "Darken",
	BlendLighten:         "Lighten",
	BlendColorDodge:      "ColorDodge",
	BlendColorBurn:       "ColorBurn",
	BlendHardLight:       "HardLight",
	BlendSoftLight:       "SoftLight",
	BlendDifference:      "Difference",
	BlendExclusion:       "Exclusion",
	BlendHue:             "Hue",
	BlendSaturation:      "Saturation",
	BlendColor:           "Color",
	BlendLuminosity:      "Luminosity",
	BlendClear:           "Clear",
	BlendCopy:            "Copy",
	BlendDestination:     "Destination",
	BlendDestinationOver: "DestinationOver",
	BlendSourceIn:        "SourceIn",
	BlendDestinationIn:   "DestinationIn",
	BlendSourceOut:       "SourceOut",
	BlendDestinationOut:  "DestinationOut",
	BlendSourceAtop:      "SourceAtop",
	BlendDestinationAtop: "DestinationAtop",
	BlendXor:             "Xor",
	BlendPlus:            "Plus",
}

// String returns a human-readable name for the blend mode.
func (mode BlendMode) String() string {
	if mode <= blendModeLast {
		return blendModeNames[mode]
	}
	return fmt.Sprintf("BlendMode(%d)", uint32(mode))
}

// ParseBlendMode returns the mode whose String matches name.
func ParseBlendMode(name string) (BlendMode, bool) {
	for i, n := range blendModeNames {
		if n == name {
			return BlendMode(i), true
		}
	}
	return BlendNormal, false
}

// SharedQuadState holds the properties common to a run of quads produced by
// one layer. All fields are comparable so states can be compared with ==.
type SharedQuadState struct {
	// QuadToTargetTransform maps quad space into the render pass target.
	QuadToTargetTransform geometry.Transform

	// LayerBounds is the size of the originating layer.
	LayerBounds geometry.Size

	// VisibleLayerRect is the part of the layer that is on screen.
	VisibleLayerRect geometry.Rect

	// ClipRect applies in target space when IsClipped is set.
	ClipRect  geometry.Rect
	IsClipped bool

	// Opacity is in [0, 1].
	Opacity float32

	BlendMode        BlendMode
	SortingContextID int32
}

// DefaultSharedQuadState returns an identity-transformed, opaque state with
// the normal blend mode covering bounds.
func DefaultSharedQuadState(bounds geometry.Size) SharedQuadState {
	return SharedQuadState{
		QuadToTargetTransform: geometry.Identity(),
		LayerBounds:           bounds,
		VisibleLayerRect:      geometry.RectFromSize(bounds),
		Opacity:               1,
	}
}
